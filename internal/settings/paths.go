package settings

import (
	"path"
	"strings"

	"github.com/lc/projset/internal/variant"
)

const (
	// ResPrefix is the virtual root of project resources.
	ResPrefix = "res://"
	// UserPrefix is the virtual root of per-user data.
	UserPrefix = "user://"

	dataDirSuffix    = "projset"
	unnamedProject   = "UnnamedProject"
	hiddenDataDirKey = "application/config/use_hidden_project_data_directory"
)

// SetResourcePath sets the directory res:// maps to. Backslashes are
// normalized and a trailing '/' is dropped.
func (r *Registry) SetResourcePath(p string) {
	p = strings.ReplaceAll(p, "\\", "/")
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	r.mu.Lock()
	r.resPath = p
	r.mu.Unlock()
}

// ResourcePath returns the directory res:// maps to, or "".
func (r *Registry) ResourcePath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resPath
}

// SimplifyPath cleans "." and ".." elements and duplicate separators,
// keeping a leading scheme such as res:// intact.
func SimplifyPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	scheme := ""
	if i := strings.Index(p, "://"); i >= 0 {
		scheme, p = p[:i+3], p[i+3:]
	}
	if p == "" {
		return scheme
	}
	if scheme != "" {
		return scheme + strings.TrimPrefix(path.Clean("/"+p), "/")
	}
	c := path.Clean(p)
	if c == "." {
		return ""
	}
	return c
}

func isAbsPath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	// drive letter, C:/ or C:\
	return len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

// LocalizePath converts an absolute path inside the resource root into its
// res:// form. Virtual paths and paths outside the root come back
// simplified but otherwise unchanged.
func (r *Registry) LocalizePath(p string) string {
	root := r.ResourcePath()
	return r.localize(root, p)
}

func (r *Registry) localize(root, p string) string {
	if root == "" || strings.HasPrefix(p, ResPrefix) || strings.HasPrefix(p, UserPrefix) ||
		(isAbsPath(p) && p != root && !strings.HasPrefix(p, root+"/")) {
		return SimplifyPath(p)
	}

	clean := SimplifyPath(p)
	if r.resolveDir != nil {
		if cwd, ok := r.resolveDir(clean); ok {
			// compare with trailing '/', so /my/project does not claim
			// /my/project_data.
			cwd = withSlash(strings.ReplaceAll(cwd, "\\", "/"))
			res := withSlash(root)
			if !strings.HasPrefix(cwd, res) {
				return p
			}
			return ResPrefix + cwd[len(res):]
		}
	}
	if clean == root {
		return ResPrefix
	}

	sep := strings.LastIndexByte(clean, '/')
	if sep < 0 {
		return ResPrefix + clean
	}
	parent := r.localize(root, clean[:sep])
	if parent == "" {
		return ""
	}
	if strings.HasSuffix(parent, "/") {
		sep++
	}
	return parent + clean[sep:]
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// GlobalizePath converts res:// and user:// paths to host paths. Without a
// resource root or user data directory the prefix is simply stripped.
func (r *Registry) GlobalizePath(p string) string {
	switch {
	case strings.HasPrefix(p, ResPrefix):
		if root := r.ResourcePath(); root != "" {
			return strings.Replace(p, "res:/", root, 1)
		}
		return strings.TrimPrefix(p, ResPrefix)
	case strings.HasPrefix(p, UserPrefix):
		dir := ""
		if r.host != nil {
			dir = r.host.UserDataDir()
		}
		if dir != "" {
			return strings.Replace(p, "user:/", dir, 1)
		}
		return strings.TrimPrefix(p, UserPrefix)
	}
	return p
}

// ProjectDataDirName returns the name of the per-project data directory,
// hidden (dot-prefixed) unless the project turned that off.
func (r *Registry) ProjectDataDirName() string {
	hidden, ok := variant.AsBool(r.GetOr(hiddenDataDirKey, variant.Bool(true)))
	if !ok || hidden {
		return "." + dataDirSuffix
	}
	return dataDirSuffix
}

// ProjectDataPath returns the res:// path of the project data directory.
func (r *Registry) ProjectDataPath() string {
	return ResPrefix + r.ProjectDataDirName()
}

// SafeProjectName returns the project name made safe for use as a file or
// directory name.
func (r *Registry) SafeProjectName() string {
	name, _ := variant.AsString(r.GetOr(NameKey, variant.String("")))
	if safe := SafeDirName(name); safe != "" {
		return safe
	}
	return unnamedProject
}

var unsafeDirChars = []string{":", "*", "?", "\"", "<", ">", "|", "/"}

// SafeDirName replaces characters that are invalid in directory names.
func SafeDirName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	for _, c := range unsafeDirChars {
		name = strings.ReplaceAll(name, c, "-")
	}
	return name
}

const (
	keyZstdLongDistance = "compression/formats/zstd/long_distance_matching"
	keyZstdLevel        = "compression/formats/zstd/compression_level"
	keyZstdWindowLog    = "compression/formats/zstd/window_log_size"
	keyZlibLevel        = "compression/formats/zlib/compression_level"
	keyGzipLevel        = "compression/formats/gzip/compression_level"
)

// Compression holds the tuning values forwarded to the compression
// subsystem after setup.
type Compression struct {
	ZstdLongDistanceMatching bool
	ZstdLevel                int
	ZstdWindowLogSize        int
	ZlibLevel                int
	GzipLevel                int
}

// DefaultCompression is used for any value missing from the registry.
var DefaultCompression = Compression{
	ZstdLevel:         3,
	ZstdWindowLogSize: 27,
	ZlibLevel:         -1,
	GzipLevel:         -1,
}

// CompressionSettings reads the compression tuning values.
func (r *Registry) CompressionSettings() Compression {
	c := DefaultCompression
	if b, ok := variant.AsBool(r.GetOr(keyZstdLongDistance, nil)); ok {
		c.ZstdLongDistanceMatching = b
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{keyZstdLevel, &c.ZstdLevel},
		{keyZstdWindowLog, &c.ZstdWindowLogSize},
		{keyZlibLevel, &c.ZlibLevel},
		{keyGzipLevel, &c.GzipLevel},
	} {
		if n, ok := variant.AsInt(r.GetOr(f.key, nil)); ok {
			*f.dst = int(n)
		}
	}
	return c
}
