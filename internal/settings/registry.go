// Package settings provides the property registry: the authoritative mapping
// from a "/"-separated key to its value and metadata. It owns insertion
// ordering, feature-tag override resolution, autoload records and custom
// property descriptors.
package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/lc/projset/internal/codec"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/variant"
)

var (
	// ErrUnknownKey is returned by metadata operations on a key with no entry.
	ErrUnknownKey = errors.New("unknown setting")
	// ErrNotFound is returned by Get when the resolved key has no entry.
	ErrNotFound = errors.New("setting not found")
)

const (
	// builtinOrderBase separates built-in orders (below) from user orders.
	builtinOrderBase = 1 << 16

	autoloadPrefix = "autoload/"
)

// WriteResult reports what Set did with a write.
type WriteResult int

const (
	// Applied means the entry was created, updated or deleted.
	Applied WriteResult = iota
	// Shadowed means the key is redirected to a different winning override,
	// so the write would never be visible and was dropped.
	Shadowed
	// Rejected means the write was malformed and nothing changed.
	Rejected
)

func (w WriteResult) String() string {
	switch w {
	case Applied:
		return "applied"
	case Shadowed:
		return "shadowed"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("WriteResult(%d)", int(w))
}

// Host is the part of the platform the registry consults: active OS feature
// tags for override activation and the user data directory for user://.
type Host interface {
	HasFeature(tag string) bool
	UserDataDir() string
}

// DirResolver returns the canonical form of path if it names an existing
// directory. It is the only I/O LocalizePath performs.
type DirResolver func(path string) (string, bool)

// Option configures a Registry.
type Option func(*Registry)

// WithFeatureOverridesDisabled turns off feature-tag override resolution.
func WithFeatureOverridesDisabled() Option {
	return func(r *Registry) { r.overridesDisabled = true }
}

// WithDirResolver sets the directory check used by LocalizePath.
func WithDirResolver(fn DirResolver) Option {
	return func(r *Registry) { r.resolveDir = fn }
}

// Registry is the thread-safe property registry. Every public method holds
// the registry lock for the duration of the call.
type Registry struct {
	mu        sync.RWMutex            // protects fields below
	entries   map[string]*entry       // key -> entry
	overrides map[string]string       // base key -> winning suffixed key
	features  map[string]struct{}     // custom feature tags
	autoloads map[string]Autoload     // autoload name -> record
	info      map[string]PropertyInfo // custom property descriptors
	lastOrder int                     // next user order
	lastBuilt int                     // next builtin order
	resPath   string                  // resource root, no trailing '/'
	count     atomic.Int64            // metrics: total entries

	host              Host
	overridesDisabled bool
	resolveDir        DirResolver
}

// New creates an empty registry. host may be nil, in which case no OS
// feature tag is active and user:// paths are not globalized.
func New(host Host, opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		overrides: make(map[string]string),
		features:  make(map[string]struct{}),
		autoloads: make(map[string]Autoload),
		info:      make(map[string]PropertyInfo),
		lastOrder: builtinOrderBase,
		host:      host,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// entry is what we keep internally (pointer for in-place updates).
type entry struct {
	value            variant.Value
	initial          variant.Value
	order            int
	hidden           bool
	internal         bool
	basic            bool
	restartIfChanged bool
	ignoreInDocs     bool
}

// Set assigns value to key. A Nil value deletes the entry.
func (r *Registry) Set(key string, value variant.Value) WriteResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(key, value)
}

func (r *Registry) set(key string, value variant.Value) WriteResult {
	if key == "" {
		return Rejected
	}
	value = variant.Normalize(value)

	if variant.IsNil(value) {
		r.remove(key)
		return Applied
	}

	if key == codec.CustomFeaturesKey {
		s, ok := variant.AsString(value)
		if !ok {
			return Rejected
		}
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				r.features[f] = struct{}{}
			}
		}
		return Applied
	}

	var record Autoload
	if strings.HasPrefix(key, autoloadPrefix) {
		var ok bool
		if record, ok = parseAutoload(key, value); !ok {
			return Rejected
		}
	}

	base, tags, hasTags := strings.Cut(key, ".")
	if !r.overridesDisabled && hasTags && r.anyActive(tags) {
		// later registrations for the same base replace earlier ones.
		r.overrides[base] = key
	}

	if cur, ok := r.entries[key]; ok {
		if r.shadowed(key) {
			return Shadowed
		}
		cur.value = value
	} else {
		r.entries[key] = &entry{value: value, order: r.lastOrder}
		r.lastOrder++
		r.count.Inc()
	}

	if record.Name != "" {
		r.autoloads[record.Name] = record
	}
	return Applied
}

// shadowed reports whether the unsuffixed key is redirected to a winning
// override. Suffixed variants are never shadowed.
func (r *Registry) shadowed(key string) bool {
	if r.overridesDisabled || strings.Contains(key, ".") {
		return false
	}
	_, ok := r.overrides[key]
	return ok
}

func (r *Registry) anyActive(tags string) bool {
	for _, tag := range strings.Split(tags, ".") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := r.features[tag]; ok {
			return true
		}
		if r.host != nil && r.host.HasFeature(tag) {
			return true
		}
	}
	return false
}

func (r *Registry) remove(key string) {
	if _, ok := r.entries[key]; ok {
		delete(r.entries, key)
		r.count.Dec()
	}
	base, _, _ := strings.Cut(key, ".")
	if r.overrides[base] == key {
		delete(r.overrides, base)
	}
	if strings.HasPrefix(key, autoloadPrefix) {
		delete(r.autoloads, autoloadName(key))
	}
}

// resolve maps key through the override table.
func (r *Registry) resolve(key string) string {
	if r.overridesDisabled {
		return key
	}
	if target, ok := r.overrides[key]; ok {
		return target
	}
	return key
}

// Get returns the value key resolves to.
func (r *Registry) Get(key string) (variant.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := r.resolve(key)
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return variant.Clone(e.value), nil
}

// GetOr returns the value key resolves to, or fallback if it has none.
func (r *Registry) GetOr(key string, fallback variant.Value) variant.Value {
	v, err := r.Get(key)
	if err != nil {
		return fallback
	}
	return v
}

// Has reports whether key has an entry. No override resolution applies.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int { return int(r.count.Load()) }

// update runs fn on the entry for key under the write lock.
func (r *Registry) update(key string, fn func(e *entry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	fn(e)
	return nil
}

// view runs fn on the entry for key under the read lock.
func (r *Registry) view(key string, fn func(e *entry)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	fn(e)
	return nil
}

// SetInitialValue records the engineering default of key.
func (r *Registry) SetInitialValue(key string, value variant.Value) error {
	return r.update(key, func(e *entry) { e.initial = variant.Clone(variant.Normalize(value)) })
}

func (r *Registry) SetRestartIfChanged(key string, restart bool) error {
	return r.update(key, func(e *entry) { e.restartIfChanged = restart })
}

func (r *Registry) SetAsBasic(key string, basic bool) error {
	return r.update(key, func(e *entry) { e.basic = basic })
}

// SetAsInternal marks key storage-only: it never appears as editor-visible.
func (r *Registry) SetAsInternal(key string, internal bool) error {
	return r.update(key, func(e *entry) { e.internal = internal })
}

func (r *Registry) SetIgnoreInDocs(key string, ignore bool) error {
	return r.update(key, func(e *entry) { e.ignoreInDocs = ignore })
}

// IgnoreInDocs reports whether the value of key is left out of generated docs.
func (r *Registry) IgnoreInDocs(key string) (bool, error) {
	var ignore bool
	err := r.view(key, func(e *entry) { ignore = e.ignoreInDocs })
	return ignore, err
}

// SetHiddenFromEditor excludes key from List and from merged saves.
func (r *Registry) SetHiddenFromEditor(key string, hidden bool) error {
	return r.update(key, func(e *entry) { e.hidden = hidden })
}

func (r *Registry) Order(key string) (int, error) {
	order := -1
	err := r.view(key, func(e *entry) { order = e.order })
	return order, err
}

func (r *Registry) SetOrder(key string, order int) error {
	return r.update(key, func(e *entry) { e.order = order })
}

// SetBuiltinOrder moves key into the built-in order range unless it was
// already given a built-in order.
func (r *Registry) SetBuiltinOrder(key string) error {
	return r.update(key, func(e *entry) {
		if e.order >= builtinOrderBase {
			e.order = r.lastBuilt
			r.lastBuilt++
		}
	})
}

// IsBuiltin reports whether key holds a built-in order. Unknown keys report
// true alongside ErrUnknownKey: a false negative is worse than a false
// positive for callers deciding whether a key may be removed.
func (r *Registry) IsBuiltin(key string) (bool, error) {
	builtin := true
	err := r.view(key, func(e *entry) { builtin = e.order < builtinOrderBase })
	return builtin, err
}

// Clear hard-deletes key.
func (r *Registry) Clear(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	r.remove(key)
	return nil
}

// CanRevert reports whether the current value of key differs from its
// initial value. Unknown keys cannot be reverted.
func (r *Registry) CanRevert(key string) bool {
	can := false
	_ = r.view(key, func(e *entry) { can = !variant.Equal(e.initial, e.value) })
	return can
}

// Revert returns the initial value of key without changing the entry.
func (r *Registry) Revert(key string) (variant.Value, error) {
	var v variant.Value
	err := r.view(key, func(e *entry) { v = variant.Clone(variant.Normalize(e.initial)) })
	return v, err
}

// HasCustomFeature reports whether tag was declared through custom_features.
func (r *Registry) HasCustomFeature(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.features[tag]
	return ok
}

// CustomFeatures returns the declared custom feature tags, sorted.
func (r *Registry) CustomFeatures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.features))
	for f := range r.features {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Load applies decoded entries in file order under a single lock, then
// upgrades values written by older schema versions. It returns how many
// entries were applied; rejected and shadowed entries are logged.
func (r *Registry) Load(entries []codec.Entry, version int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for _, e := range entries {
		switch res := r.set(e.Key, e.Value); res {
		case Applied:
			applied++
		default:
			log.Debug("settings: entry not applied", "key", e.Key, "result", res.String())
		}
	}
	r.migrate(version)
	return applied
}

// migrate rewrites values stored by older schema versions in place.
func (r *Registry) migrate(from int) {
	if from > 3 {
		return
	}
	// input actions changed from an event array to {deadzone, events}.
	for key, e := range r.entries {
		if !strings.HasPrefix(key, "input/") {
			continue
		}
		events, ok := e.value.(variant.Array)
		if !ok {
			continue
		}
		e.value = variant.NewDictionary().
			Set("deadzone", variant.Float(0.5)).
			Set("events", events)
	}
}

// Property is an exported copy of one entry.
type Property struct {
	Key              string
	Value            variant.Value
	Initial          variant.Value
	Order            int
	Hidden           bool
	Internal         bool
	Basic            bool
	RestartIfChanged bool
}

// Snapshot returns copies of all entries sorted by (order, key).
func (r *Registry) Snapshot() []Property {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Property, 0, len(r.entries))
	for key, e := range r.entries {
		out = append(out, Property{
			Key:              key,
			Value:            variant.Clone(e.value),
			Initial:          variant.Clone(variant.Normalize(e.initial)),
			Order:            e.order,
			Hidden:           e.hidden,
			Internal:         e.internal,
			Basic:            e.basic,
			RestartIfChanged: e.restartIfChanged,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Key < out[j].Key
	})
	return out
}
