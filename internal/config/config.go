// Package config provides configuration loading and validation for the projset tools.
// It handles reading configuration from files, providing defaults, and ensuring
// all required settings are properly set.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultSocketPath is the default path for the Unix socket.
	DefaultSocketPath = "/tmp/projsetd.socket"
	// DefaultConfigPath is the default path for the configuration file.
	DefaultConfigPath = ".projset/config.yaml"
	// DefaultShutdownTimeout bounds how long projsetd waits for requests to drain.
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)

// Config holds the application configuration.
type Config struct {
	Socket    SocketConfig    `yaml:"socket"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Platform  PlatformConfig  `yaml:"platform"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Log       LogConfig       `yaml:"log"`
}

// SocketConfig holds socket-related configuration.
type SocketConfig struct {
	Path string `yaml:"path"`
}

// DiscoveryConfig holds the defaults used when locating a project.
type DiscoveryConfig struct {
	Path                    string `yaml:"path"`
	MainPack                string `yaml:"main_pack"`
	Upwards                 bool   `yaml:"upwards"`
	IgnoreOverride          bool   `yaml:"ignore_override"`
	DisableFeatureOverrides bool   `yaml:"disable_feature_overrides"`
	// Remote loads the project through projsetd instead of the local disk.
	Remote bool `yaml:"remote"`
}

// PlatformConfig adjusts what the host platform reports.
type PlatformConfig struct {
	// Profile names a YAML platform profile that replaces the host entirely.
	Profile     string   `yaml:"profile"`
	Features    []string `yaml:"features,omitempty"`
	ResourceDir string   `yaml:"resource_dir"`
	UserDataDir string   `yaml:"user_data_dir"`
	Runtimes    []string `yaml:"runtimes,omitempty"`
}

// DaemonConfig holds projsetd settings.
type DaemonConfig struct {
	Root            string        `yaml:"root"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
	Save(*Config) error
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a new configuration provider using the default configuration path.
// If the home directory cannot be determined, it falls back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn("config: could not determine home directory", "error", err)
		home = ""
	}
	return NewWithPath(filesys.Local(), filepath.ToSlash(filepath.Join(home, DefaultConfigPath)))
}

// NewWithPath creates a new provider with a specific config path.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a default configuration with preset values.
// This is used when no configuration file exists.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{
			Path: DefaultSocketPath,
		},
		Discovery: DiscoveryConfig{
			Path: ".",
		},
		Daemon: DaemonConfig{
			Root:            ".",
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load loads the configuration from the specified path. Fields the file
// leaves out keep their default values.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Save validates cfg and writes it to the provider's path.
func (p *FSProvider) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := p.ensureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	if err := p.fs.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Socket.Path) == "" {
		return errors.New("socket path cannot be empty")
	}
	if c.Discovery.MainPack != "" && c.Discovery.Remote {
		return errors.New("main pack cannot be combined with remote discovery")
	}
	if c.Daemon.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout cannot be negative")
	}
	for _, tag := range c.Platform.Features {
		if strings.TrimSpace(tag) == "" || strings.ContainsAny(tag, ".,") {
			return fmt.Errorf("invalid platform feature %q", tag)
		}
	}
	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("unknown log level %q", c.Log.Level)
		}
	}
	return nil
}

func (p *FSProvider) ensureConfigDir() error {
	dir := filepath.ToSlash(filepath.Dir(p.path))
	if _, err := p.fs.Stat(dir); os.IsNotExist(err) {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return cfg, nil
}
