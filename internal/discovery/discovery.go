// Package discovery locates a project's settings file and loads it into a
// settings.Registry.
//
// Setup walks a fixed cascade of strategies. The first strategy that locates a
// source ends the search, whether or not that source then loads cleanly:
//
//  1. a remote file system (projsetd), read at res://
//  2. an explicit main pack
//  3. a pack embedded in the executable, then <exe>.pck next to the bundle
//     resources, the executable and the working directory
//  4. the platform's fixed resource directory
//  5. the given directory, and optionally each of its parents
//
// Every location is tried as project.binary first and project.cfg second.
package discovery

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/lc/projset/internal/codec"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/platform"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/variant"
)

const (
	// TextFile is the text project file name.
	TextFile = "project.cfg"
	// BinaryFile is the binary project file name.
	BinaryFile = "project.binary"
	// OverrideFile is the optional text file applied after the project file.
	OverrideFile = "override.cfg"
	// PackExt is the extension of resource packs.
	PackExt = ".pck"
)

var (
	// ErrNotFound is returned when no settings source exists at a location.
	ErrNotFound = errors.New("project settings not found")
	// ErrMountFailed is returned when an explicit main pack cannot be mounted.
	ErrMountFailed = errors.New("cannot open resource pack")
)

// Outcome is the result of a single strategy.
type Outcome int

const (
	// NotApplicable means the strategy found nothing and the next one runs.
	NotApplicable Outcome = iota
	// Mounted means the strategy located a source. Its error is the load result.
	Mounted
	// Fatal stops the cascade with the strategy's error.
	Fatal
)

var outcomeNames = [...]string{"not-applicable", "mounted", "fatal"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Packs mounts resource packs and serves their content.
type Packs interface {
	filesys.Mounter
	filesys.ReadFS
}

// SetupOptions controls where Setup looks.
type SetupOptions struct {
	// Path is the directory searched when no pack is found.
	Path string
	// MainPack is an explicit pack to mount. Mount failure is fatal.
	MainPack string
	// Upwards searches the parents of Path as well.
	Upwards bool
	// IgnoreOverride skips every override.cfg.
	IgnoreOverride bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDisk replaces the local disk.
func WithDisk(fsys filesys.ReadFS) Option {
	return func(e *Engine) { e.disk = fsys }
}

// WithPacks sets the pack mounter. Without one no pack is ever mounted.
func WithPacks(p Packs) Option {
	return func(e *Engine) { e.packs = p }
}

// WithRemote loads the project from a remote file system instead of the
// local cascade. Names passed to it are project relative.
func WithRemote(fsys filesys.ReadFS) Option {
	return func(e *Engine) { e.remote = fsys }
}

// WithWorkingDir sets the directory relative pack names resolve against.
func WithWorkingDir(dir string) Option {
	return func(e *Engine) { e.cwd = dir }
}

// Engine runs discovery against one registry.
type Engine struct {
	mu sync.Mutex // serializes Setup and LoadCustom

	reg    *settings.Registry
	plat   platform.Platform
	disk   filesys.ReadFS
	packs  Packs
	remote filesys.ReadFS
	cwd    string

	compression settings.Compression
}

type strategy struct {
	name string
	run  func(SetupOptions) (Outcome, error)
}

// New returns an engine that loads into reg.
func New(reg *settings.Registry, plat platform.Platform, opts ...Option) *Engine {
	e := &Engine{
		reg:         reg,
		plat:        plat,
		disk:        filesys.Disk(),
		compression: settings.DefaultCompression,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) strategies() []strategy {
	return []strategy{
		{"remote", e.tryRemote},
		{"main-pack", e.tryMainPack},
		{"executable-packs", e.tryExecutablePacks},
		{"resource-dir", e.tryResourceDir},
		{"directory", e.tryDirectory},
	}
}

// Setup locates and loads the project settings. On success it also loads the
// file named by the project settings override key and reads the settings
// that only take effect at startup.
func (e *Engine) Setup(opts SetupOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dir := e.plat.ResourceDir(); dir != "" {
		e.reg.SetResourcePath(dir)
	}

	err := e.setup(opts)
	if err == nil {
		if custom, ok := variant.AsString(e.reg.GetOr(settings.OverrideFileKey, variant.String(""))); ok && custom != "" {
			if oerr := e.loadText(custom); oerr != nil {
				log.Debug("discovery: project settings override not loaded", "path", custom, "error", oerr)
			}
		}
	}

	e.compression = e.reg.CompressionSettings()
	log.Debug("discovery: setup finished",
		"resource_path", e.reg.ResourcePath(),
		"data_dir", e.reg.ProjectDataDirName(),
		"error", err,
	)
	return err
}

func (e *Engine) setup(opts SetupOptions) error {
	for _, p := range e.strategies() {
		out, err := p.run(opts)
		log.Debug("discovery: strategy", "strategy", p.name, "outcome", out.String())
		if out == NotApplicable {
			continue
		}
		return err
	}
	return ErrNotFound
}

// Compression returns the compression tuning read by the last Setup.
func (e *Engine) Compression() settings.Compression {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compression
}

func (e *Engine) tryRemote(opts SetupOptions) (Outcome, error) {
	if e.remote == nil {
		return NotApplicable, nil
	}
	return Mounted, e.loadProject(opts, filesys.PackPrefix, filesys.PackPrefix+OverrideFile)
}

func (e *Engine) tryMainPack(opts SetupOptions) (Outcome, error) {
	if opts.MainPack == "" {
		return NotApplicable, nil
	}
	if !e.mount(opts.MainPack) {
		return Fatal, fmt.Errorf("%w: %s", ErrMountFailed, opts.MainPack)
	}
	override := filepath.ToSlash(filepath.Join(filepath.Dir(opts.MainPack), OverrideFile))
	return Mounted, e.loadProject(opts, filesys.PackPrefix, override)
}

func (e *Engine) tryExecutablePacks(opts SetupOptions) (Outcome, error) {
	exe := e.plat.ExecutablePath()
	if exe == "" {
		return NotApplicable, nil
	}
	dir := filepath.Dir(exe)
	file := filepath.Base(exe)
	base := strings.TrimSuffix(file, filepath.Ext(file))
	names := packNames(base, file)

	// the executable itself may carry the pack
	found := e.mount(exe)
	if bundle := e.plat.BundleResourceDir(); !found && bundle != "" {
		found = e.mountFirst(bundle, names)
	}
	if !found {
		found = e.mountFirst(dir, names)
	}
	if !found {
		found = e.mountFirst(e.cwd, names)
	}
	if !found {
		return NotApplicable, nil
	}
	return Mounted, e.loadProject(opts,
		filesys.PackPrefix,
		filesys.PackPrefix+OverrideFile,
		filepath.ToSlash(filepath.Join(dir, OverrideFile)),
	)
}

func (e *Engine) tryResourceDir(opts SetupOptions) (Outcome, error) {
	if e.plat.ResourceDir() == "" {
		return NotApplicable, nil
	}
	return Mounted, e.loadProject(opts, filesys.PackPrefix, filesys.PackPrefix+OverrideFile)
}

func (e *Engine) tryDirectory(opts SetupOptions) (Outcome, error) {
	dir := opts.Path
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) && e.cwd != "" {
		dir = filepath.Join(e.cwd, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Fatal, err
	}

	for {
		// the root follows the walk so relative paths resolve while loading
		e.reg.SetResourcePath(filepath.ToSlash(dir))
		root := withSlash(filepath.ToSlash(dir))
		err = e.loadTextOrBinary(root+TextFile, root+BinaryFile)
		if err == nil {
			if !opts.IgnoreOverride {
				e.loadOverrides(root + OverrideFile)
			}
			return Mounted, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Fatal, err
		}
		if !opts.Upwards {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return Fatal, err
}

func withSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

func packNames(base, file string) []string {
	names := []string{base + PackExt}
	if file != base {
		names = append(names, file+PackExt)
	}
	return names
}

func (e *Engine) mount(p string) bool {
	if e.packs == nil {
		return false
	}
	return e.packs.Mount(p, false, 0)
}

func (e *Engine) mountFirst(dir string, names []string) bool {
	for _, name := range names {
		p := name
		if dir != "" {
			p = filepath.Join(dir, name)
		}
		if e.mount(p) {
			return true
		}
	}
	return false
}

// loadProject loads project.binary or project.cfg under root, then the
// override files unless opts says otherwise.
func (e *Engine) loadProject(opts SetupOptions, root string, overrides ...string) error {
	if err := e.loadTextOrBinary(root+TextFile, root+BinaryFile); err != nil {
		return err
	}
	if !opts.IgnoreOverride {
		e.loadOverrides(overrides...)
	}
	return nil
}

// loadOverrides applies each override file that exists. Failures are logged
// and never returned.
func (e *Engine) loadOverrides(paths ...string) {
	var errs error
	for _, p := range paths {
		if err := e.loadText(p); err != nil && !errors.Is(err, ErrNotFound) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		log.Debug("discovery: override files not loaded", "error", errs)
	}
}

// loadTextOrBinary prefers the binary file. A binary file that exists but
// fails to load is logged and the text file is tried instead.
func (e *Engine) loadTextOrBinary(textPath, binPath string) error {
	binErr := e.loadBinary(binPath)
	if binErr == nil {
		return nil
	}
	if !errors.Is(binErr, ErrNotFound) {
		log.Error("discovery: couldn't load binary settings", "path", binPath, "error", binErr)
	}

	err := e.loadText(textPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Error("discovery: couldn't load text settings", "path", textPath, "error", err)
		return err
	}
	if !errors.Is(binErr, ErrNotFound) {
		return binErr
	}
	return err
}

// LoadCustom loads a settings file on top of the current registry. Paths
// ending in .binary are read as binary, anything else as text.
func (e *Engine) LoadCustom(p string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.HasSuffix(p, ".binary") {
		return e.loadBinary(p)
	}
	return e.loadText(p)
}

func (e *Engine) loadBinary(p string) error {
	return e.load(p, codec.ReadBinary)
}

func (e *Engine) loadText(p string) error {
	return e.load(p, codec.ReadText)
}

func (e *Engine) load(p string, decode func(io.Reader, string) (*codec.Document, error)) error {
	rc, err := e.open(p)
	if err != nil {
		if filesys.IsNotExist(err) {
			return fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", p, err)
	}
	defer rc.Close()

	doc, err := decode(rc, p)
	if err != nil {
		return err
	}
	applied := e.reg.Load(doc.Entries, doc.Version)
	log.Debug("discovery: settings loaded", "path", p, "entries", len(doc.Entries), "applied", applied)
	return nil
}

// open serves res:// from the remote file system, then the mounted packs,
// then the resource root on disk.
func (e *Engine) open(p string) (io.ReadCloser, error) {
	rel, virtual := strings.CutPrefix(p, filesys.PackPrefix)
	switch {
	case !virtual:
		return e.disk.Open(filepath.ToSlash(p))
	case e.remote != nil:
		return e.remote.Open(path.Clean("/" + rel)[1:])
	case e.packs != nil && e.packs.Mounted():
		return e.packs.Open(p)
	}
	root := e.reg.ResourcePath()
	if root == "" {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return e.disk.Open(withSlash(root) + rel)
}
