// Package project wires a settings registry to discovery and persistence and
// exposes the operations the tools use on a project.
package project

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/lc/projset/internal/buildinfo"
	"github.com/lc/projset/internal/config"
	"github.com/lc/projset/internal/discovery"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/persist"
	"github.com/lc/projset/internal/platform"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/socket"
	"github.com/lc/projset/internal/variant"
	"github.com/lc/projset/pkg/client"
)

// Options configures a Project. Zero fields fall back to the local host.
type Options struct {
	Platform platform.Platform
	// Runtimes are runtime names whose presence activates a feature tag of
	// the same name.
	Runtimes []string
	Disk     filesys.ReadFS
	Files    filesys.FileOps
	// Packs is closed by Project.Close.
	Packs  *filesys.PackFS
	Remote filesys.ReadFS
	// WorkingDir resolves relative pack names; defaults to the process cwd.
	WorkingDir              string
	DisableFeatureOverrides bool
}

// Project is one loaded set of project settings.
type Project struct {
	reg   *settings.Registry
	eng   *discovery.Engine
	saver *persist.Saver
	packs *filesys.PackFS
}

// host makes a running runtime count as an active feature tag.
type host struct {
	platform.Platform
	runtimes []string
}

func (h host) HasFeature(tag string) bool {
	if h.Platform.HasFeature(tag) {
		return true
	}
	return slices.Contains(h.runtimes, tag) && h.HasRuntime(tag)
}

// New builds a project with the built-in settings registered. Nothing is
// loaded until Setup.
func New(opts Options) *Project {
	plat := opts.Platform
	if plat == nil {
		h := platform.NewHost("")
		h.Checker = &socket.DefaultProcessChecker{}
		plat = h
	}
	plat = host{Platform: plat, runtimes: opts.Runtimes}

	var regOpts []settings.Option
	if opts.Disk == nil {
		opts.Disk = filesys.Disk()
		regOpts = append(regOpts, settings.WithDirResolver(filesys.ResolveDir))
	}
	if opts.Files == nil {
		opts.Files = filesys.OS()
	}
	if opts.Packs == nil {
		opts.Packs = filesys.NewPackFS()
	}
	if opts.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkingDir = wd
		}
	}

	if opts.DisableFeatureOverrides {
		regOpts = append(regOpts, settings.WithFeatureOverridesDisabled())
	}
	reg := settings.New(plat, regOpts...)
	reg.RegisterDefaults()

	engOpts := []discovery.Option{
		discovery.WithDisk(opts.Disk),
		discovery.WithPacks(opts.Packs),
		discovery.WithWorkingDir(opts.WorkingDir),
	}
	if opts.Remote != nil {
		engOpts = append(engOpts, discovery.WithRemote(opts.Remote))
	}

	return &Project{
		reg:   reg,
		eng:   discovery.New(reg, plat, engOpts...),
		saver: persist.New(reg, opts.Files),
		packs: opts.Packs,
	}
}

// FromConfig builds a project from the tool configuration. A remote project
// is read through projsetd at cfg.Socket.Path.
func FromConfig(ctx context.Context, cfg *config.Config) (*Project, error) {
	opts := Options{
		Runtimes:                cfg.Platform.Runtimes,
		DisableFeatureOverrides: cfg.Discovery.DisableFeatureOverrides,
	}

	if cfg.Platform.Profile != "" {
		f, err := os.Open(cfg.Platform.Profile)
		if err != nil {
			return nil, fmt.Errorf("opening platform profile: %w", err)
		}
		defer f.Close()
		prof, err := platform.LoadProfile(f)
		if err != nil {
			return nil, err
		}
		prof.Features = append(prof.Features, cfg.Platform.Features...)
		opts.Platform = prof
	} else {
		h := platform.NewHost("")
		h.Extra = cfg.Platform.Features
		h.Resources = cfg.Platform.ResourceDir
		h.UserData = cfg.Platform.UserDataDir
		h.Checker = &socket.DefaultProcessChecker{}
		opts.Platform = h
	}

	if cfg.Discovery.Remote {
		opts.Remote = client.New(cfg.Socket.Path).FS(ctx)
		log.Debug("project: using remote project", "socket", cfg.Socket.Path)
	}
	return New(opts), nil
}

// SetupOptions returns the discovery options stored in cfg.
func SetupOptions(cfg *config.Config) discovery.SetupOptions {
	return discovery.SetupOptions{
		Path:           cfg.Discovery.Path,
		MainPack:       cfg.Discovery.MainPack,
		Upwards:        cfg.Discovery.Upwards,
		IgnoreOverride: cfg.Discovery.IgnoreOverride,
	}
}

// Close releases mounted packs.
func (p *Project) Close() error { return p.packs.Close() }

// Registry returns the underlying registry.
func (p *Project) Registry() *settings.Registry { return p.reg }

// Setup locates and loads the project settings.
func (p *Project) Setup(opts discovery.SetupOptions) error { return p.eng.Setup(opts) }

// LoadCustom loads an extra settings file on top of the current ones.
func (p *Project) LoadCustom(path string) error { return p.eng.LoadCustom(path) }

// Has reports whether key is set.
func (p *Project) Has(key string) bool { return p.reg.Has(key) }

// Get returns the value of key after feature overrides.
func (p *Project) Get(key string) (variant.Value, error) { return p.reg.Get(key) }

// Set assigns key.
func (p *Project) Set(key string, v variant.Value) settings.WriteResult { return p.reg.Set(key, v) }

// Order returns the sort order of key.
func (p *Project) Order(key string) (int, error) { return p.reg.Order(key) }

// SetOrder changes the sort order of key.
func (p *Project) SetOrder(key string, order int) error { return p.reg.SetOrder(key, order) }

// AddPropertyInfo attaches an editing descriptor to an existing key.
func (p *Project) AddPropertyInfo(info settings.PropertyInfo) error {
	return p.reg.AddPropertyInfo(info)
}

// Save writes project.cfg under the resource root.
func (p *Project) Save() error { return p.saver.Save() }

// SaveCustom writes the settings to path; see persist.Saver.SaveCustom.
func (p *Project) SaveCustom(path string, custom map[string]variant.Value, features []string, merge bool) error {
	return p.saver.SaveCustom(path, custom, features, merge)
}

// LocalizePath converts an absolute path under the resource root to res://.
func (p *Project) LocalizePath(path string) string { return p.reg.LocalizePath(path) }

// GlobalizePath converts res:// and user:// paths to absolute paths.
func (p *Project) GlobalizePath(path string) string { return p.reg.GlobalizePath(path) }

// Compression returns the compression tuning read during Setup.
func (p *Project) Compression() settings.Compression { return p.eng.Compression() }

// Features returns the project's declared feature tags.
func (p *Project) Features() []string {
	fs, _ := variant.AsStrings(p.reg.GetOr(settings.FeaturesKey, nil))
	return fs
}

// UnsupportedFeatures returns the declared feature tags this build lacks.
func (p *Project) UnsupportedFeatures() []string {
	return buildinfo.UnsupportedFeatures(p.Features())
}
