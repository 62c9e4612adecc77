// Package platform describes the host the settings store runs on: where the
// executable lives, which directories hold packaged resources and user data,
// and which feature tags are active for feature overrides.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// Platform is the capability the registry and the discovery engine consume.
type Platform interface {
	// ExecutablePath returns the running executable, or "" if unknown.
	ExecutablePath() string
	// BundleResourceDir returns the application bundle resource directory
	// (macOS .app/Contents/Resources), or "".
	BundleResourceDir() string
	// ResourceDir returns a fixed resource directory for packaged mobile or
	// embedded deployments, or "" on desktop hosts.
	ResourceDir() string
	// UserDataDir returns the directory backing user:// paths.
	UserDataDir() string
	// HasFeature reports whether an OS feature tag is active.
	HasFeature(tag string) bool
	// HasRuntime reports whether an external runtime is present.
	HasRuntime(name string) bool
}

// RuntimeChecker reports whether a named external runtime is running.
type RuntimeChecker interface {
	IsRunning(name string) bool
}

// Host is the Platform of the running process.
type Host struct {
	// Extra feature tags activated in addition to the detected ones.
	Extra []string
	// Resources overrides ResourceDir.
	Resources string
	// UserData overrides UserDataDir.
	UserData string
	// AppName names the per-application user data directory.
	AppName string
	// Checker answers HasRuntime. Nil means no runtime is ever present.
	Checker RuntimeChecker

	executable func() (string, error)
}

var _ Platform = (*Host)(nil)

// NewHost returns the Platform of the running process.
func NewHost(appName string) *Host {
	return &Host{AppName: appName, executable: os.Executable}
}

func (h *Host) ExecutablePath() string {
	exe := h.executable
	if exe == nil {
		exe = os.Executable
	}
	p, err := exe()
	if err != nil {
		return ""
	}
	return filepath.ToSlash(p)
}

func (h *Host) BundleResourceDir() string {
	if runtime.GOOS != "darwin" {
		return ""
	}
	exe := h.ExecutablePath()
	// <name>.app/Contents/MacOS/<exe> -> <name>.app/Contents/Resources
	dir := filepath.Dir(filepath.FromSlash(exe))
	if filepath.Base(dir) != "MacOS" {
		return ""
	}
	return filepath.ToSlash(filepath.Join(filepath.Dir(dir), "Resources"))
}

func (h *Host) ResourceDir() string { return h.Resources }

func (h *Host) UserDataDir() string {
	if h.UserData != "" {
		return h.UserData
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	name := h.AppName
	if name == "" {
		name = "projset"
	}
	return filepath.ToSlash(filepath.Join(base, name))
}

func (h *Host) HasFeature(tag string) bool {
	tag = strings.TrimSpace(tag)
	return slices.Contains(Detected(), tag) || slices.Contains(h.Extra, tag)
}

func (h *Host) HasRuntime(name string) bool {
	return h.Checker != nil && h.Checker.IsRunning(name)
}

// Detected returns the feature tags derived from the Go runtime: the OS
// name, "pc" on desktop systems, the architecture and its word size.
func Detected() []string {
	var tags []string
	switch runtime.GOOS {
	case "darwin":
		tags = append(tags, "macos", "pc")
	case "windows", "linux":
		tags = append(tags, runtime.GOOS, "pc")
	case "freebsd", "openbsd", "netbsd", "dragonfly":
		tags = append(tags, "bsd", "linuxbsd", "pc")
	case "android", "ios":
		tags = append(tags, runtime.GOOS, "mobile")
	case "js", "wasip1":
		tags = append(tags, "web")
	default:
		tags = append(tags, runtime.GOOS)
	}
	if runtime.GOOS == "linux" {
		tags = append(tags, "linuxbsd")
	}

	switch runtime.GOARCH {
	case "amd64":
		tags = append(tags, "x86_64", "64")
	case "386":
		tags = append(tags, "x86_32", "32")
	case "arm64":
		tags = append(tags, "arm64", "64")
	case "arm":
		tags = append(tags, "arm32", "32")
	case "riscv64":
		tags = append(tags, "rv64", "64")
	case "wasm":
		tags = append(tags, "wasm32", "32")
	default:
		tags = append(tags, runtime.GOARCH)
	}
	return tags
}
