package settings

import (
	"sort"
	"strings"

	"github.com/lc/projset/internal/variant"
)

// Autoload is derived from an autoload/<name> entry. A leading '*' in the
// stored path marks the autoload as a singleton and is not part of Path.
type Autoload struct {
	Name      string
	Path      string
	Singleton bool
}

func autoloadName(key string) string {
	name := strings.TrimPrefix(key, autoloadPrefix)
	name, _, _ = strings.Cut(name, "/")
	return name
}

func parseAutoload(key string, value variant.Value) (Autoload, bool) {
	name := autoloadName(key)
	path, ok := variant.AsString(value)
	if !ok || name == "" {
		return Autoload{}, false
	}
	a := Autoload{Name: name, Path: path}
	if strings.HasPrefix(path, "*") {
		a.Singleton = true
		a.Path = path[1:]
	}
	return a, true
}

// Autoloads returns all autoload records sorted by name.
func (r *Registry) Autoloads() []Autoload {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Autoload, 0, len(r.autoloads))
	for _, a := range r.autoloads {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Autoload returns the record for name.
func (r *Registry) Autoload(name string) (Autoload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.autoloads[name]
	return a, ok
}

func (r *Registry) HasAutoload(name string) bool {
	_, ok := r.Autoload(name)
	return ok
}
