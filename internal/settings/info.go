package settings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lc/projset/internal/variant"
)

// Hint tells an editor how to present a value. It has no effect on storage.
type Hint int

const (
	HintNone Hint = iota
	HintRange
	HintEnum
	HintFile
	HintDir
	HintMultilineText
	HintLocalizableString
)

var hintNames = [...]string{
	HintNone:              "none",
	HintRange:             "range",
	HintEnum:              "enum",
	HintFile:              "file",
	HintDir:               "dir",
	HintMultilineText:     "multiline_text",
	HintLocalizableString: "localizable_string",
}

func (h Hint) String() string {
	if h >= 0 && int(h) < len(hintNames) {
		return hintNames[h]
	}
	return fmt.Sprintf("Hint(%d)", int(h))
}

// Usage flags describe where a listed property surfaces.
type Usage uint8

const (
	UsageStorage Usage = 1 << iota
	UsageEditor
	UsageBasic
	UsageRestartIfChanged
)

// Has reports whether all bits of f are set.
func (u Usage) Has(f Usage) bool { return u&f == f }

func (u Usage) String() string {
	var parts []string
	for _, f := range []struct {
		bit  Usage
		name string
	}{
		{UsageStorage, "storage"},
		{UsageEditor, "editor"},
		{UsageBasic, "basic"},
		{UsageRestartIfChanged, "restart"},
	} {
		if u.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ",")
}

// PropertyInfo describes one listed property. Custom descriptors registered
// with AddPropertyInfo carry the Kind, Hint and HintString an editor uses.
type PropertyInfo struct {
	Name       string
	Kind       variant.Kind
	Hint       Hint
	HintString string
	Usage      Usage
}

// storageOnlyPrefixes are namespaces never surfaced as editor-visible.
var storageOnlyPrefixes = []string{
	"input/",
	"importer_defaults/",
	"import/",
	"autoload/",
	"editor_plugins/",
	"shader_globals/",
}

func storageOnly(key string) bool {
	for _, p := range storageOnlyPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// AddPropertyInfo attaches a custom descriptor to an existing key.
func (r *Registry) AddPropertyInfo(info PropertyInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[info.Name]; !ok {
		return fmt.Errorf("%s: %w", info.Name, ErrUnknownKey)
	}
	r.info[info.Name] = info
	return nil
}

// PropertyInfos returns the custom descriptors sorted by name.
func (r *Registry) PropertyInfos() []PropertyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PropertyInfo, 0, len(r.info))
	for _, pi := range r.info {
		out = append(out, pi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List returns every entry not hidden from the editor, sorted by
// (order, key). A suffixed key without its own descriptor inherits the
// descriptor of its base key.
func (r *Registry) List() []PropertyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type sortKey struct {
		name  string
		order int
	}
	keys := make([]sortKey, 0, len(r.entries))
	for name, e := range r.entries {
		if !e.hidden {
			keys = append(keys, sortKey{name, e.order})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].order != keys[j].order {
			return keys[i].order < keys[j].order
		}
		return keys[i].name < keys[j].name
	})

	out := make([]PropertyInfo, 0, len(keys))
	for _, k := range keys {
		e := r.entries[k.name]

		usage := UsageStorage
		if !e.internal && !storageOnly(k.name) {
			usage |= UsageEditor
		}
		if e.basic {
			usage |= UsageBasic
		}
		if e.restartIfChanged {
			usage |= UsageRestartIfChanged
		}

		infoName := k.name
		if _, ok := r.info[infoName]; !ok {
			infoName, _, _ = strings.Cut(infoName, ".")
		}
		pi, ok := r.info[infoName]
		if !ok {
			pi = PropertyInfo{Kind: e.value.Kind()}
		}
		pi.Name = k.name
		pi.Usage = usage
		out = append(out, pi)
	}
	return out
}
