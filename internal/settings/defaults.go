package settings

import (
	"github.com/lc/projset/internal/variant"
)

// DefineOptions are the flags a built-in default is registered with.
type DefineOptions struct {
	RestartIfChanged bool
	IgnoreInDocs     bool
	Basic            bool
	Internal         bool
}

// Define registers a built-in default: key is set to def if absent, def is
// recorded as its initial value, the key moves into the built-in order
// range and the flags are applied. It returns the value key now holds,
// which differs from def when a loaded file already set it.
func (r *Registry) Define(key string, def variant.Value, opts DefineOptions) variant.Value {
	r.mu.Lock()
	defer r.mu.Unlock()

	def = variant.Normalize(def)
	if _, ok := r.entries[key]; !ok {
		if r.set(key, variant.Clone(def)) != Applied {
			return r.resolvedValue(key)
		}
	}
	e, ok := r.entries[key]
	if !ok {
		return variant.Nil{}
	}
	e.initial = variant.Clone(def)
	if e.order >= builtinOrderBase {
		e.order = r.lastBuilt
		r.lastBuilt++
	}
	e.basic = opts.Basic
	e.restartIfChanged = opts.RestartIfChanged
	e.ignoreInDocs = opts.IgnoreInDocs
	e.internal = opts.Internal
	return r.resolvedValue(key)
}

func (r *Registry) resolvedValue(key string) variant.Value {
	if e, ok := r.entries[r.resolve(key)]; ok {
		return variant.Clone(e.value)
	}
	return variant.Nil{}
}

type builtinDef struct {
	key   string
	value variant.Value
	opts  DefineOptions
	info  *PropertyInfo
}

func ranged(kind variant.Kind, hint string) *PropertyInfo {
	return &PropertyInfo{Kind: kind, Hint: HintRange, HintString: hint}
}

var (
	basic     = DefineOptions{Basic: true}
	restart   = DefineOptions{RestartIfChanged: true}
	internal  = DefineOptions{Internal: true}
	plain     = DefineOptions{}
	windowRes = ranged(variant.KindInt, "0,7680,1,or_greater")
	heightRes = ranged(variant.KindInt, "0,4320,1,or_greater")
)

// builtinDefaults is the key set every registry starts from, in
// registration order.
var builtinDefaults = []builtinDef{
	{NameKey, variant.String(""), basic, nil},
	{"application/config/name_localized", variant.NewDictionary(), basic,
		&PropertyInfo{Kind: variant.KindDictionary, Hint: HintLocalizableString}},
	{"application/config/description", variant.String(""), basic,
		&PropertyInfo{Kind: variant.KindString, Hint: HintMultilineText}},
	{"application/run/main_scene", variant.String(""), basic,
		&PropertyInfo{Kind: variant.KindString, Hint: HintFile, HintString: "*.tscn,*.scn,*.res"}},
	{"application/run/disable_stdout", variant.Bool(false), plain, nil},
	{"application/run/disable_stderr", variant.Bool(false), plain, nil},
	{"application/config/use_hidden_project_data_directory", variant.Bool(true), restart, nil},
	{"application/config/use_custom_user_dir", variant.Bool(false), plain, nil},
	{"application/config/custom_user_dir_name", variant.String(""), plain, nil},
	{OverrideFileKey, variant.String(""), plain, nil},

	{"display/window/size/viewport_width", variant.Int(1152), basic, windowRes},
	{"display/window/size/viewport_height", variant.Int(648), basic, heightRes},
	{"display/window/size/mode", variant.Int(0), basic,
		&PropertyInfo{Kind: variant.KindInt, Hint: HintEnum, HintString: "Windowed,Minimized,Maximized,Fullscreen,Exclusive Fullscreen"}},
	{"display/window/size/resizable", variant.Bool(true), basic, nil},
	{"display/window/size/borderless", variant.Bool(false), basic, nil},
	{"display/window/size/always_on_top", variant.Bool(false), plain, nil},
	{"display/window/size/transparent", variant.Bool(false), plain, nil},
	{"display/window/size/extend_to_title", variant.Bool(false), plain, nil},
	{"display/window/size/no_focus", variant.Bool(false), plain, nil},
	{"display/window/size/window_width_override", variant.Int(0), plain, windowRes},
	{"display/window/size/window_height_override", variant.Int(0), plain, heightRes},
	{"display/window/energy_saving/keep_screen_on", variant.Bool(true), plain, nil},
	{"display/window/energy_saving/keep_screen_on.editor", variant.Bool(false), plain, nil},

	{"audio/buses/default_bus_layout", variant.String("res://default_bus_layout.tres"), basic,
		&PropertyInfo{Kind: variant.KindString, Hint: HintFile, HintString: "*.tres"}},
	{"audio/general/2d_panning_strength", variant.Float(1), restart, ranged(variant.KindFloat, "0,4,0.01")},
	{"audio/general/3d_panning_strength", variant.Float(1), restart, ranged(variant.KindFloat, "0,4,0.01")},

	{"editor/run/main_run_args", variant.String(""), plain, nil},
	{"editor/script/search_in_file_extensions", variant.StringArray{"gd", "gdshader"}, plain,
		&PropertyInfo{Kind: variant.KindStringArray}},
	{"editor/script/templates_search_path", variant.String("res://script_templates"), plain,
		&PropertyInfo{Kind: variant.KindString, Hint: HintDir}},

	{"physics/2d/run_on_separate_thread", variant.Bool(false), plain, nil},
	{"physics/3d/run_on_separate_thread", variant.Bool(false), plain, nil},

	{"debug/settings/profiler/max_functions", variant.Int(16384), plain, ranged(variant.KindInt, "128,65535,1")},

	{keyZstdLongDistance, variant.Bool(false), plain, &PropertyInfo{Kind: variant.KindBool}},
	{keyZstdLevel, variant.Int(3), plain, ranged(variant.KindInt, "1,22,1")},
	{keyZstdWindowLog, variant.Int(27), plain, ranged(variant.KindInt, "10,30,1")},
	{keyZlibLevel, variant.Int(-1), plain, ranged(variant.KindInt, "-1,9,1")},
	{keyGzipLevel, variant.Int(-1), plain, ranged(variant.KindInt, "-1,9,1")},

	{FeaturesKey, variant.StringArray{}, internal, nil},
	{"internationalization/locale/translation_remaps", variant.StringArray{}, internal, nil},
	{"internationalization/locale/translations", variant.StringArray{}, internal, nil},
}

// descriptorsOnly are descriptors for keys other subsystems define later.
var descriptorsOnly = []PropertyInfo{
	{Name: "display/window/handheld/orientation", Kind: variant.KindInt, Hint: HintEnum,
		HintString: "Landscape,Portrait,Reverse Landscape,Reverse Portrait,Sensor Landscape,Sensor Portrait,Sensor"},
	{Name: "display/window/vsync/vsync_mode", Kind: variant.KindInt, Hint: HintEnum,
		HintString: "Disabled,Enabled,Adaptive,Mailbox"},
	{Name: "rendering/driver/threads/thread_model", Kind: variant.KindInt, Hint: HintEnum,
		HintString: "Single-Unsafe,Single-Safe,Multi-Threaded"},
}

const (
	// NameKey holds the project name.
	NameKey = "application/config/name"
	// FeaturesKey holds the project's declared feature tags.
	FeaturesKey = "application/config/features"
	// OverrideFileKey names an additional text file loaded after setup.
	OverrideFileKey = "application/config/project_settings_override"
	// RenderingMethodKey selects the renderer; its value is a feature tag.
	RenderingMethodKey = "rendering/renderer/rendering_method"
)

// RegisterDefaults registers the built-in key set with its descriptors.
// Values already present (from a loaded file) are kept.
func (r *Registry) RegisterDefaults() {
	for _, d := range builtinDefaults {
		r.Define(d.key, d.value, d.opts)
		if d.info != nil {
			pi := *d.info
			pi.Name = d.key
			_ = r.AddPropertyInfo(pi)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pi := range descriptorsOnly {
		r.info[pi.Name] = pi
	}
}
