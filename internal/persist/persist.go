// Package persist writes a settings.Registry back to disk in the text or
// binary project format.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/lc/projset/internal/buildinfo"
	"github.com/lc/projset/internal/codec"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/variant"
)

var (
	// ErrUnrecognizedFormat is returned for a save path whose extension is
	// neither .cfg nor .binary.
	ErrUnrecognizedFormat = errors.New("unrecognized config file format")
	// ErrEmptyPath is returned when no save path is given or known.
	ErrEmptyPath = errors.New("save path cannot be empty")
)

const (
	// ProjectFile is the file Save writes under the resource root.
	ProjectFile = "project.cfg"

	csharpFeature = "C#"
	csprojExt     = ".csproj"
	// lastOrder places custom keys unknown to the registry after every
	// registered key.
	lastOrder = 0xFFFFFFF
	filePerm  = 0o644
)

// Saver serializes saves of one registry.
type Saver struct {
	mu  sync.Mutex
	reg *settings.Registry
	fs  filesys.FileOps
}

// New returns a saver writing reg through ops.
func New(reg *settings.Registry, ops filesys.FileOps) *Saver {
	return &Saver{reg: reg, fs: ops}
}

// Save writes the changed settings to project.cfg under the resource root.
func (s *Saver) Save() error {
	root := s.reg.ResourcePath()
	if root == "" {
		return fmt.Errorf("%w: resource path is not set", ErrEmptyPath)
	}
	return s.SaveCustom(strings.TrimSuffix(root, "/")+"/"+ProjectFile, nil, nil, true)
}

type exportKey struct {
	key   string
	order int
}

// SaveCustom writes the settings to p. custom values are always written and
// take precedence over the registry. With merge, every visible setting that
// differs from its initial value is written as well. features is stored as
// the file's custom feature list.
//
// The declared feature list of the project is recomputed and stored back in
// the registry before anything is written.
func (s *Saver) SaveCustom(p string, custom map[string]variant.Value, features []string, merge bool) error {
	if p == "" {
		return ErrEmptyPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshFeatures()

	var keys []exportKey
	own := make(map[string]variant.Value)
	for _, prop := range s.reg.Snapshot() {
		own[prop.Key] = prop.Value
		if _, ok := custom[prop.Key]; ok {
			keys = append(keys, exportKey{prop.Key, prop.Order})
			continue
		}
		if !merge || prop.Hidden || variant.Equal(prop.Value, prop.Initial) {
			continue
		}
		keys = append(keys, exportKey{prop.Key, prop.Order})
	}
	for k := range custom {
		if _, ok := own[k]; !ok {
			keys = append(keys, exportKey{k, lastOrder})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].order != keys[j].order {
			return keys[i].order < keys[j].order
		}
		return keys[i].key < keys[j].key
	})

	entries := make([]codec.Entry, 0, len(keys))
	for _, k := range keys {
		v, ok := custom[k.key]
		if !ok {
			v = own[k.key]
		}
		entries = append(entries, codec.Entry{Key: k.key, Value: v})
	}

	data, err := encode(p, codec.Partition(entries), joinFeatures(features))
	if err != nil {
		return err
	}
	if err := filesys.AtomicWrite(s.fs, filepath.FromSlash(p), data, filePerm); err != nil {
		return fmt.Errorf("saving %s: %w", p, err)
	}
	log.Debug("persist: settings saved", "path", p, "entries", len(entries))
	return nil
}

func encode(p string, sections []codec.Section, features string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch {
	case strings.HasSuffix(p, ".cfg"):
		err = codec.WriteText(&buf, sections, features)
	case strings.HasSuffix(p, ".binary"):
		err = codec.WriteBinary(&buf, sections, features)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, p)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", p, err)
	}
	return buf.Bytes(), nil
}

func joinFeatures(features []string) string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = strings.ReplaceAll(strings.TrimSpace(f), `"`, "")
	}
	return strings.Join(out, ",")
}

// refreshFeatures recomputes the project's declared feature list from the
// rendering method and the presence of a C# project file.
func (s *Saver) refreshFeatures() {
	features, _ := variant.AsStrings(s.reg.GetOr(settings.FeaturesKey, nil))
	if len(features) == 0 {
		features = buildinfo.RequiredFeatures()
	}
	features = slices.Clone(features)

	if method, ok := variant.AsString(s.reg.GetOr(settings.RenderingMethodKey, nil)); ok && method != "" {
		if !slices.Contains(features, method) {
			features = append(features, method)
		}
	}

	if s.hasCSharpProject() {
		if !slices.Contains(features, csharpFeature) {
			features = append(features, csharpFeature)
		}
	} else {
		features = slices.DeleteFunc(features, func(f string) bool { return f == csharpFeature })
	}

	features = buildinfo.TrimToSupported(features)
	if res := s.reg.Set(settings.FeaturesKey, variant.StringArray(features)); res != settings.Applied {
		log.Debug("persist: feature list not stored", "result", res.String())
	}
}

func (s *Saver) hasCSharpProject() bool {
	root := s.reg.ResourcePath()
	if root == "" {
		return false
	}
	p := filepath.Join(filepath.FromSlash(root), s.reg.SafeProjectName()+csprojExt)
	_, err := s.fs.Stat(p)
	return err == nil
}
