// Package filesys provides file system abstractions and utilities for projset.
// It defines the read surface discovery and the codecs consume, the write
// surface the save path needs for its atomic write, and implementations that
// delegate to the standard library so callers can be tested without a disk.
package filesys

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lc/projset/internal/log"
)

// ReadFS is the read-only surface discovery needs. Paths are
// slash-separated; a missing file reports an error matching fs.ErrNotExist.
type ReadFS interface {
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (fs.FileInfo, error)
}

// ReadWriteFS is the tiny surface the tool config loader needs.
// It is intentionally smaller than FileOps because callers
// never need temp files or renames.
type ReadWriteFS interface {
	ReadFS
	MkdirAll(string, os.FileMode) error
	WriteFile(string, []byte, os.FileMode) error
}

// FileOps is what the save path needs for AtomicWrite.
type FileOps interface {
	Open(string) (*os.File, error)
	ReadFile(string) ([]byte, error)
	MkdirAll(string, os.FileMode) error
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
	Stat(string) (fs.FileInfo, error)
}

// OS returns a file system implementation that delegates to the standard library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements FileOps against the local disk.
// All methods delegate to the standard library.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error)           { return os.Stat(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }
func (OsFS) ReadFile(p string) ([]byte, error)            { return os.ReadFile(p) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

// Disk returns a ReadFS over the local disk.
func Disk() ReadFS { return diskFS{} }

// Local returns a ReadWriteFS over the local disk.
func Local() ReadWriteFS { return diskFS{} }

type diskFS struct{}

func (diskFS) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (diskFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(filepath.FromSlash(name)) }

func (diskFS) MkdirAll(name string, m os.FileMode) error {
	return os.MkdirAll(filepath.FromSlash(name), m)
}

func (diskFS) WriteFile(name string, b []byte, m os.FileMode) error {
	return os.WriteFile(filepath.FromSlash(name), b, m)
}

var (
	_ FileOps     = OsFS{}
	_ ReadFS      = diskFS{}
	_ ReadWriteFS = diskFS{}
	_ ReadFS      = ioFS{}
)

// FromFS adapts an fs.FS to ReadFS. Absolute names are looked up relative
// to the root of fsys, so "/proj/project.cfg" opens "proj/project.cfg".
func FromFS(fsys fs.FS) ReadFS { return ioFS{fsys} }

type ioFS struct{ fsys fs.FS }

func (f ioFS) rel(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "" {
		return "."
	}
	return name
}

func (f ioFS) Open(name string) (io.ReadCloser, error) {
	file, err := f.fsys.Open(f.rel(name))
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (f ioFS) Stat(name string) (fs.FileInfo, error) { return fs.Stat(f.fsys, f.rel(name)) }

// ReadFile reads a whole file from fsys.
func ReadFile(fsys ReadFS, name string) ([]byte, error) {
	rc, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Exists reports whether name exists in fsys.
func Exists(fsys ReadFS, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// IsNotExist reports whether err means a file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ResolveDir returns the canonical slash-separated form of p if it names an
// existing directory on the local disk. Symlinks are resolved.
func ResolveDir(p string) (string, bool) {
	native := filepath.FromSlash(p)
	fi, err := os.Stat(native)
	if err != nil || !fi.IsDir() {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(native)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(abs), true
}

// AtomicWrite atomically persists data to dst with the provided file mode.
// The write is crash-safe on local filesystems:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)  (so rename doesn’t carry 0600 default)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// Callers supply an injected FileOps implementation so the function
// remains unit-testable with an in-memory FS.
func AtomicWrite(fs FileOps, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := fs.CreateTemp(dir, ".projset-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err == nil {
		err = fs.Chmod(tmp.Name(), perm)
	}
	if err == nil {
		err = fs.Rename(tmp.Name(), dst)
	}
	if err != nil {
		if removeErr := fs.Remove(tmp.Name()); removeErr != nil {
			log.Warn("filesys: failed to remove temp file", "path", tmp.Name(), "error", removeErr)
		}
		return err
	}
	if d, err2 := fs.Open(dir); err2 == nil {
		if syncErr := d.Sync(); syncErr != nil {
			log.Debug("filesys: failed to sync directory", "dir", dir, "error", syncErr)
		}
		if closeErr := d.Close(); closeErr != nil {
			log.Debug("filesys: failed to close directory", "dir", dir, "error", closeErr)
		}
	}
	return nil
}
