package filesys

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/lc/projset/internal/log"
)

// PackPrefix is the virtual root served from mounted packs.
const PackPrefix = "res://"

// Mounter mounts resource pack archives.
type Mounter interface {
	// Mount adds the pack at path. With replace, files from this pack
	// replace files already mounted under the same name. offset is the byte
	// position of the pack inside path, for packs embedded in another file.
	Mount(path string, replace bool, offset int64) bool
	// Mounted reports whether any pack has been mounted.
	Mounted() bool
}

// PackFS mounts zip resource packs and serves their files under res://.
// It is safe for concurrent use.
type PackFS struct {
	mu      sync.RWMutex         // protects fields below
	files   map[string]*zip.File // pack-relative name -> file
	closers []io.Closer

	mounted  atomic.Bool
	disabled bool
}

var (
	_ Mounter = (*PackFS)(nil)
	_ ReadFS  = (*PackFS)(nil)
)

// NewPackFS returns an empty pack file system.
func NewPackFS() *PackFS {
	return &PackFS{files: make(map[string]*zip.File)}
}

// Disable makes every later Mount fail.
func (p *PackFS) Disable() {
	p.mu.Lock()
	p.disabled = true
	p.mu.Unlock()
}

// Mount implements Mounter.
func (p *PackFS) Mount(name string, replace bool, offset int64) bool {
	if err := p.mount(name, replace, offset); err != nil {
		log.Debug("filesys: pack not mounted", "path", name, "error", err)
		return false
	}
	log.Debug("filesys: pack mounted", "path", name, "offset", offset)
	return true
}

func (p *PackFS) mount(name string, replace bool, offset int64) error {
	p.mu.RLock()
	disabled := p.disabled
	p.mu.RUnlock()
	if disabled {
		return errors.New("pack loading is disabled")
	}

	f, err := os.Open(name)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	if fi.IsDir() || offset < 0 || offset >= fi.Size() {
		_ = f.Close()
		return fmt.Errorf("%s: no pack at offset %d", name, offset)
	}
	zr, err := zip.NewReader(io.NewSectionReader(f, offset, fi.Size()-offset), fi.Size()-offset)
	if err != nil {
		_ = f.Close()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, "/") {
			continue
		}
		key := path.Clean(zf.Name)
		if _, exists := p.files[key]; exists && !replace {
			continue
		}
		p.files[key] = zf
	}
	p.closers = append(p.closers, f)
	p.mounted.Store(true)
	return nil
}

// Mounted implements Mounter.
func (p *PackFS) Mounted() bool { return p.mounted.Load() }

func packName(name string) string {
	name = strings.TrimPrefix(name, PackPrefix)
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	return name
}

// Open opens a file from the mounted packs. name may carry the res://
// prefix.
func (p *PackFS) Open(name string) (io.ReadCloser, error) {
	p.mu.RLock()
	zf, ok := p.files[packName(name)]
	p.mu.RUnlock()
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return zf.Open()
}

// Stat returns the file info of a packed file.
func (p *PackFS) Stat(name string) (fs.FileInfo, error) {
	p.mu.RLock()
	zf, ok := p.files[packName(name)]
	p.mu.RUnlock()
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return zf.FileInfo(), nil
}

// Files returns the number of files served.
func (p *PackFS) Files() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.files)
}

// Close releases every mounted pack.
func (p *PackFS) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for _, c := range p.closers {
		err = multierr.Append(err, c.Close())
	}
	p.closers = nil
	p.files = make(map[string]*zip.File)
	p.mounted.Store(false)
	return err
}
