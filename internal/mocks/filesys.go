package mocks

import (
	"io"
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/lc/projset/internal/filesys"
)

var (
	_ filesys.FileOps = (*MockOsFS)(nil)
	_ filesys.ReadFS  = (*MockReadFS)(nil)
	_ filesys.Mounter = (*MockMounter)(nil)
)

// MockOsFS is a mock implementation of the FileOps interface.
// It is generated using testify/mock and adheres to the methods defined in the OsFS struct.
type MockOsFS struct {
	mock.Mock
}

// Stat mocks the Stat method.
func (m *MockOsFS) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	// Need to handle potential nil interface return
	var fileInfo fs.FileInfo
	if args.Get(0) != nil {
		fileInfo = args.Get(0).(fs.FileInfo)
	}
	return fileInfo, args.Error(1)
}

// MkdirAll mocks the MkdirAll method.
func (m *MockOsFS) MkdirAll(p string, mode os.FileMode) error {
	args := m.Called(p, mode)
	return args.Error(0)
}

// Open mocks the Open method.
func (m *MockOsFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	var file *os.File
	if args.Get(0) != nil {
		file = args.Get(0).(*os.File)
	}
	return file, args.Error(1)
}

// ReadFile mocks the ReadFile method.
func (m *MockOsFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

// CreateTemp mocks the CreateTemp method.
func (m *MockOsFS) CreateTemp(dir, pat string) (*os.File, error) {
	args := m.Called(dir, pat)
	var file *os.File
	if args.Get(0) != nil {
		file = args.Get(0).(*os.File)
	}
	return file, args.Error(1)
}

// Rename mocks the Rename method.
func (m *MockOsFS) Rename(old, newPath string) error {
	args := m.Called(old, newPath)
	return args.Error(0)
}

// Remove mocks the Remove method.
func (m *MockOsFS) Remove(p string) error {
	args := m.Called(p)
	return args.Error(0)
}

// Chmod mocks the Chmod method.
func (m *MockOsFS) Chmod(p string, mode os.FileMode) error {
	args := m.Called(p, mode)
	return args.Error(0)
}

// MockReadFS is a mock implementation of the ReadFS interface.
type MockReadFS struct {
	mock.Mock
}

// Open mocks the Open method.
func (m *MockReadFS) Open(name string) (io.ReadCloser, error) {
	args := m.Called(name)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	return rc, args.Error(1)
}

// Stat mocks the Stat method.
func (m *MockReadFS) Stat(name string) (fs.FileInfo, error) {
	args := m.Called(name)
	var fi fs.FileInfo
	if args.Get(0) != nil {
		fi = args.Get(0).(fs.FileInfo)
	}
	return fi, args.Error(1)
}

// MockMounter is a mock implementation of the Mounter interface.
type MockMounter struct {
	mock.Mock
}

// Mount mocks the Mount method.
func (m *MockMounter) Mount(path string, replace bool, offset int64) bool {
	args := m.Called(path, replace, offset)
	return args.Bool(0)
}

// Mounted mocks the Mounted method.
func (m *MockMounter) Mounted() bool {
	args := m.Called()
	return args.Bool(0)
}
