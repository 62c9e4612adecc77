package filesys_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/mocks"
)

type FilesysTestSuite struct {
	suite.Suite
	dir string
}

func (s *FilesysTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *FilesysTestSuite) TestAtomicWrite() {
	dst := filepath.Join(s.dir, "project.cfg")
	s.Require().NoError(filesys.AtomicWrite(filesys.OS(), dst, []byte("a=1\n"), 0o644))
	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("a=1\n", string(data))

	fi, err := os.Stat(dst)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o644), fi.Mode().Perm())

	// overwrite in place, no temp files left behind.
	s.Require().NoError(filesys.AtomicWrite(filesys.OS(), dst, []byte("a=2\n"), 0o644))
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FilesysTestSuite) TestAtomicWriteCreateTempFails() {
	m := &mocks.MockOsFS{}
	m.On("CreateTemp", "/proj", ".projset-*").Return(nil, errors.New("read-only"))
	err := filesys.AtomicWrite(m, "/proj/project.cfg", []byte("x"), 0o644)
	s.EqualError(err, "read-only")
	m.AssertExpectations(s.T())
}

func (s *FilesysTestSuite) TestAtomicWriteRenameFailsRemovesTemp() {
	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	s.Require().NoError(err)

	m := &mocks.MockOsFS{}
	m.On("CreateTemp", "/proj", ".projset-*").Return(tmp, nil)
	m.On("Chmod", tmp.Name(), os.FileMode(0o644)).Return(nil)
	m.On("Rename", tmp.Name(), "/proj/project.cfg").Return(errors.New("cross-device"))
	m.On("Remove", tmp.Name()).Return(nil)

	err = filesys.AtomicWrite(m, "/proj/project.cfg", []byte("x"), 0o644)
	s.EqualError(err, "cross-device")
	m.AssertExpectations(s.T())
	m.AssertNotCalled(s.T(), "Open", mock.Anything)
}

func (s *FilesysTestSuite) TestFromFS() {
	fsys := filesys.FromFS(fstest.MapFS{
		"proj/project.cfg": {Data: []byte("config_version=5\n")},
	})
	data, err := filesys.ReadFile(fsys, "/proj/project.cfg")
	s.Require().NoError(err)
	s.Equal("config_version=5\n", string(data))
	s.True(filesys.Exists(fsys, "/proj"))
	s.True(filesys.Exists(fsys, "/"))

	_, err = fsys.Open("/proj/project.binary")
	s.True(filesys.IsNotExist(err))
}

func (s *FilesysTestSuite) TestDisk() {
	p := filepath.Join(s.dir, "a.txt")
	s.Require().NoError(os.WriteFile(p, []byte("hi"), 0o600))
	data, err := filesys.ReadFile(filesys.Disk(), filepath.ToSlash(p))
	s.Require().NoError(err)
	s.Equal("hi", string(data))

	_, err = filesys.Disk().Open(filepath.ToSlash(filepath.Join(s.dir, "missing")))
	s.True(filesys.IsNotExist(err))
}

func (s *FilesysTestSuite) TestResolveDir() {
	got, ok := filesys.ResolveDir(s.dir)
	s.True(ok)
	want, err := filepath.EvalSymlinks(s.dir)
	s.Require().NoError(err)
	s.Equal(filepath.ToSlash(want), got)

	p := filepath.Join(s.dir, "file")
	s.Require().NoError(os.WriteFile(p, nil, 0o600))
	_, ok = filesys.ResolveDir(p)
	s.False(ok)
	_, ok = filesys.ResolveDir(filepath.Join(s.dir, "missing"))
	s.False(ok)
}

func zipBytes(s *FilesysTestSuite, files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		s.Require().NoError(err)
		_, err = io.WriteString(w, content)
		s.Require().NoError(err)
	}
	s.Require().NoError(zw.Close())
	return buf.Bytes()
}

func (s *FilesysTestSuite) writePack(name string, prefix []byte, files map[string]string) string {
	p := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(p, append(prefix, zipBytes(s, files)...), 0o600))
	return p
}

func (s *FilesysTestSuite) TestPackMount() {
	pack := s.writePack("game.pck", nil, map[string]string{
		"project.binary": "ECFG",
		"icons/a.png":    "png",
	})

	pfs := filesys.NewPackFS()
	defer pfs.Close()
	s.False(pfs.Mounted())
	s.True(pfs.Mount(pack, false, 0))
	s.True(pfs.Mounted())
	s.Equal(2, pfs.Files())

	data, err := filesys.ReadFile(pfs, "res://project.binary")
	s.Require().NoError(err)
	s.Equal("ECFG", string(data))
	s.True(filesys.Exists(pfs, "res://icons/a.png"))
	s.True(filesys.Exists(pfs, "icons/./a.png"))

	_, err = pfs.Open("res://missing")
	s.True(filesys.IsNotExist(err))
}

func (s *FilesysTestSuite) TestPackReplace() {
	first := s.writePack("a.pck", nil, map[string]string{"f.txt": "first"})
	second := s.writePack("b.pck", nil, map[string]string{"f.txt": "second"})
	third := s.writePack("c.pck", nil, map[string]string{"f.txt": "third"})

	pfs := filesys.NewPackFS()
	defer pfs.Close()
	s.Require().True(pfs.Mount(first, false, 0))
	s.Require().True(pfs.Mount(second, false, 0))
	data, _ := filesys.ReadFile(pfs, "res://f.txt")
	s.Equal("first", string(data))

	s.Require().True(pfs.Mount(third, true, 0))
	data, _ = filesys.ReadFile(pfs, "res://f.txt")
	s.Equal("third", string(data))
}

func (s *FilesysTestSuite) TestPackEmbedded() {
	prefix := bytes.Repeat([]byte{0x7f}, 128)
	exe := s.writePack("game.x86_64", prefix, map[string]string{"project.binary": "ECFG"})

	pfs := filesys.NewPackFS()
	defer pfs.Close()
	s.True(pfs.Mount(exe, false, int64(len(prefix))))
	s.True(filesys.Exists(pfs, "res://project.binary"))
}

func (s *FilesysTestSuite) TestPackMountFailures() {
	plain := filepath.Join(s.dir, "plain.bin")
	s.Require().NoError(os.WriteFile(plain, []byte("not a zip"), 0o600))

	pfs := filesys.NewPackFS()
	defer pfs.Close()
	s.False(pfs.Mount(filepath.Join(s.dir, "missing.pck"), false, 0))
	s.False(pfs.Mount(plain, false, 0))
	s.False(pfs.Mount(plain, false, 1<<20))
	s.False(pfs.Mount(s.dir, false, 0))
	s.False(pfs.Mounted())

	pack := s.writePack("ok.pck", nil, map[string]string{"x": "y"})
	pfs.Disable()
	s.False(pfs.Mount(pack, false, 0))
}

func (s *FilesysTestSuite) TestPackClose() {
	pack := s.writePack("ok.pck", nil, map[string]string{"x": "y"})
	pfs := filesys.NewPackFS()
	s.Require().True(pfs.Mount(pack, false, 0))
	s.NoError(pfs.Close())
	s.False(pfs.Mounted())
	s.Equal(0, pfs.Files())
}

func TestFilesysSuite(t *testing.T) {
	suite.Run(t, new(FilesysTestSuite))
}
