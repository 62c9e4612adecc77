package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/projset/internal/codec"
	"github.com/lc/projset/internal/variant"
)

type fakeHost struct {
	features map[string]bool
	userDir  string
}

func (f *fakeHost) HasFeature(tag string) bool { return f.features[tag] }
func (f *fakeHost) UserDataDir() string        { return f.userDir }

type RegistryTestSuite struct {
	suite.Suite
	host *fakeHost
	reg  *Registry
}

func (s *RegistryTestSuite) SetupTest() {
	s.host = &fakeHost{features: map[string]bool{"pc": true}, userDir: "/home/me/.local/share/demo"}
	s.reg = New(s.host)
}

func (s *RegistryTestSuite) TestRevertScenario() {
	const key = "display/window/size/viewport_width"
	s.Equal(Applied, s.reg.Set(key, variant.Int(1152)))
	s.Require().NoError(s.reg.SetInitialValue(key, variant.Int(1152)))
	s.False(s.reg.CanRevert(key))

	s.Equal(Applied, s.reg.Set(key, variant.Int(1920)))
	s.True(s.reg.CanRevert(key))

	v, err := s.reg.Revert(key)
	s.Require().NoError(err)
	s.Equal(variant.Int(1152), v)

	cur, err := s.reg.Get(key)
	s.Require().NoError(err)
	s.Equal(variant.Int(1920), cur)
}

func (s *RegistryTestSuite) TestOverridePrecedence() {
	s.reg.Set(codec.CustomFeaturesKey, variant.String("tag1,tag2"))
	s.True(s.reg.HasCustomFeature("tag1"))

	s.Equal(Applied, s.reg.Set("a/b", variant.Int(1)))
	s.Equal(Applied, s.reg.Set("a/b.tag1", variant.Int(2)))
	s.Equal(Applied, s.reg.Set("a/b.tag2", variant.Int(3)))

	v, err := s.reg.Get("a/b")
	s.Require().NoError(err)
	s.Equal(variant.Int(3), v)

	s.Equal(Shadowed, s.reg.Set("a/b", variant.Int(99)))
	v, err = s.reg.Get("a/b")
	s.Require().NoError(err)
	s.Equal(variant.Int(3), v)

	// an inactive variant stays writable and never wins.
	s.Equal(Applied, s.reg.Set("a/b.mobile", variant.Int(5)))
	s.Equal(Applied, s.reg.Set("a/b.mobile", variant.Int(6)))
	s.Equal(variant.Int(6), s.reg.GetOr("a/b.mobile", nil))
	s.Equal(variant.Int(3), s.reg.GetOr("a/b", nil))

	// re-registering an active variant makes it win again.
	s.Equal(Applied, s.reg.Set("a/b.tag1", variant.Int(42)))
	s.Equal(variant.Int(42), s.reg.GetOr("a/b", nil))
}

func (s *RegistryTestSuite) TestSiblingOverrideWritable() {
	key := "display/window/size/borderless"
	s.Equal(Applied, s.reg.Set(key+".mobile", variant.Bool(false)))
	s.Equal(Applied, s.reg.Set(key+".pc", variant.Bool(true)))
	s.Equal(Applied, s.reg.Set(key+".mobile", variant.Bool(true)))
	s.Equal(variant.Bool(true), s.reg.GetOr(key+".mobile", nil))

	s.Equal(Applied, s.reg.Set(key, variant.Bool(false)))
	s.Equal(Shadowed, s.reg.Set(key, variant.Bool(true)))
	s.Equal(variant.Bool(true), s.reg.GetOr(key, nil))
}

func (s *RegistryTestSuite) TestOverrideFromPlatformFeature() {
	s.reg.Set("display/window/size/borderless", variant.Bool(false))
	s.reg.Set("display/window/size/borderless.mobile", variant.Bool(true))
	s.Equal(variant.Bool(false), s.reg.GetOr("display/window/size/borderless", nil))

	s.reg.Set("display/window/size/borderless.pc", variant.Bool(true))
	s.Equal(variant.Bool(true), s.reg.GetOr("display/window/size/borderless", nil))
}

func (s *RegistryTestSuite) TestOverridesDisabled() {
	reg := New(s.host, WithFeatureOverridesDisabled())
	reg.Set("a/b", variant.Int(1))
	reg.Set("a/b.pc", variant.Int(2))
	s.Equal(variant.Int(1), reg.GetOr("a/b", nil))
	s.Equal(Applied, reg.Set("a/b", variant.Int(5)))
	s.Equal(variant.Int(5), reg.GetOr("a/b", nil))
}

func (s *RegistryTestSuite) TestDeletingOverrideTarget() {
	s.reg.Set("a/b", variant.Int(1))
	s.reg.Set("a/b.pc", variant.Int(2))
	s.Equal(Applied, s.reg.Set("a/b.pc", variant.Nil{}))
	s.Equal(variant.Int(1), s.reg.GetOr("a/b", nil))
	s.Equal(Applied, s.reg.Set("a/b", variant.Int(7)))
}

func (s *RegistryTestSuite) TestAutoloads() {
	s.Equal(Applied, s.reg.Set("autoload/Foo", variant.String("*res://foo.gd")))
	s.Equal(Applied, s.reg.Set("autoload/Bar", variant.String("res://bar.gd")))

	foo, ok := s.reg.Autoload("Foo")
	s.Require().True(ok)
	s.Equal(Autoload{Name: "Foo", Path: "res://foo.gd", Singleton: true}, foo)
	s.Equal([]Autoload{
		{Name: "Bar", Path: "res://bar.gd"},
		foo,
	}, s.reg.Autoloads())

	s.Equal(Applied, s.reg.Set("autoload/Foo", nil))
	s.False(s.reg.HasAutoload("Foo"))
	s.False(s.reg.Has("autoload/Foo"))
	_, err := s.reg.Get("autoload/Foo")
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.reg.SetOrder("autoload/Foo", 1), ErrUnknownKey)
	s.True(s.reg.HasAutoload("Bar"))
}

func (s *RegistryTestSuite) TestRejectedWrites() {
	testCases := []struct {
		name  string
		key   string
		value variant.Value
	}{
		{name: "empty key", key: "", value: variant.Int(1)},
		{name: "autoload non-string", key: "autoload/Foo", value: variant.Int(1)},
		{name: "autoload without name", key: "autoload/", value: variant.String("res://x.gd")},
		{name: "custom features non-string", key: codec.CustomFeaturesKey, value: variant.Bool(true)},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(Rejected, s.reg.Set(tc.key, tc.value))
			s.False(s.reg.Has(tc.key))
		})
	}
	s.Equal(0, s.reg.Len())
	s.Empty(s.reg.Autoloads())
}

func (s *RegistryTestSuite) TestCustomFeaturesNeverStored() {
	s.reg.Set(codec.CustomFeaturesKey, variant.String(" demo , mobile,"))
	s.False(s.reg.Has(codec.CustomFeaturesKey))
	s.Equal([]string{"demo", "mobile"}, s.reg.CustomFeatures())
	s.reg.Set(codec.CustomFeaturesKey, variant.String("web"))
	s.Equal([]string{"demo", "mobile", "web"}, s.reg.CustomFeatures())
}

func (s *RegistryTestSuite) TestUnknownKeyErrors() {
	ops := map[string]func() error{
		"SetInitialValue":     func() error { return s.reg.SetInitialValue("x", variant.Int(1)) },
		"SetRestartIfChanged": func() error { return s.reg.SetRestartIfChanged("x", true) },
		"SetAsBasic":          func() error { return s.reg.SetAsBasic("x", true) },
		"SetAsInternal":       func() error { return s.reg.SetAsInternal("x", true) },
		"SetIgnoreInDocs":     func() error { return s.reg.SetIgnoreInDocs("x", true) },
		"SetHiddenFromEditor": func() error { return s.reg.SetHiddenFromEditor("x", true) },
		"SetOrder":            func() error { return s.reg.SetOrder("x", 1) },
		"SetBuiltinOrder":     func() error { return s.reg.SetBuiltinOrder("x") },
		"Clear":               func() error { return s.reg.Clear("x") },
		"AddPropertyInfo":     func() error { return s.reg.AddPropertyInfo(PropertyInfo{Name: "x"}) },
		"Order": func() error {
			_, err := s.reg.Order("x")
			return err
		},
		"Revert": func() error {
			_, err := s.reg.Revert("x")
			return err
		},
	}
	for name, op := range ops {
		s.Run(name, func() {
			s.ErrorIs(op(), ErrUnknownKey)
		})
	}
	builtin, err := s.reg.IsBuiltin("x")
	s.ErrorIs(err, ErrUnknownKey)
	s.True(builtin)
	s.False(s.reg.CanRevert("x"))
}

func (s *RegistryTestSuite) TestOrdering() {
	s.reg.Set("b/user", variant.Int(1))
	s.reg.Set("a/user", variant.Int(1))
	s.reg.Set("z/engine", variant.Int(1))
	s.Require().NoError(s.reg.SetBuiltinOrder("z/engine"))

	order, err := s.reg.Order("z/engine")
	s.Require().NoError(err)
	s.Equal(0, order)
	builtin, err := s.reg.IsBuiltin("z/engine")
	s.Require().NoError(err)
	s.True(builtin)

	// already builtin: a second call keeps the order.
	s.Require().NoError(s.reg.SetBuiltinOrder("z/engine"))
	order, _ = s.reg.Order("z/engine")
	s.Equal(0, order)

	builtin, _ = s.reg.IsBuiltin("b/user")
	s.False(builtin)

	var names []string
	for _, pi := range s.reg.List() {
		names = append(names, pi.Name)
	}
	s.Equal([]string{"z/engine", "b/user", "a/user"}, names)

	s.Require().NoError(s.reg.SetOrder("a/user", 0))
	names = names[:0]
	for _, pi := range s.reg.List() {
		names = append(names, pi.Name)
	}
	s.Equal([]string{"a/user", "z/engine", "b/user"}, names)
}

func (s *RegistryTestSuite) TestListFlags() {
	s.reg.Set("application/config/name", variant.String("Demo"))
	s.reg.Set("input/jump", variant.NewDictionary())
	s.reg.Set("rendering/secret", variant.Int(1))
	s.reg.Set("debug/hidden", variant.Int(1))
	s.reg.Set("display/window/size/viewport_width", variant.Int(1152))
	s.reg.Set("display/window/size/viewport_width.pc", variant.Int(1280))
	s.Require().NoError(s.reg.SetAsInternal("rendering/secret", true))
	s.Require().NoError(s.reg.SetHiddenFromEditor("debug/hidden", true))
	s.Require().NoError(s.reg.SetAsBasic("application/config/name", true))
	s.Require().NoError(s.reg.SetRestartIfChanged("application/config/name", true))
	s.Require().NoError(s.reg.AddPropertyInfo(PropertyInfo{
		Name: "display/window/size/viewport_width", Kind: variant.KindInt, Hint: HintRange, HintString: "0,7680,1,or_greater",
	}))

	byName := map[string]PropertyInfo{}
	for _, pi := range s.reg.List() {
		byName[pi.Name] = pi
	}
	s.NotContains(byName, "debug/hidden")

	name := byName["application/config/name"]
	s.Equal(variant.KindString, name.Kind)
	s.True(name.Usage.Has(UsageEditor | UsageStorage | UsageBasic | UsageRestartIfChanged))

	s.Equal(UsageStorage, byName["input/jump"].Usage)
	s.Equal(UsageStorage, byName["rendering/secret"].Usage)

	suffixed := byName["display/window/size/viewport_width.pc"]
	s.Equal(HintRange, suffixed.Hint)
	s.Equal("0,7680,1,or_greater", suffixed.HintString)
	s.Equal("storage,editor", suffixed.Usage.String())

	s.Len(s.reg.PropertyInfos(), 1)
}

func (s *RegistryTestSuite) TestDefineKeepsLoadedValue() {
	s.reg.Set("display/window/size/viewport_height", variant.Int(720))
	got := s.reg.Define("display/window/size/viewport_height", variant.Int(648), DefineOptions{Basic: true})
	s.Equal(variant.Int(720), got)
	s.True(s.reg.CanRevert("display/window/size/viewport_height"))

	got = s.reg.Define("physics/fps", variant.Int(60), DefineOptions{Internal: true})
	s.Equal(variant.Int(60), got)
	s.False(s.reg.CanRevert("physics/fps"))
	builtin, _ := s.reg.IsBuiltin("physics/fps")
	s.True(builtin)
}

func (s *RegistryTestSuite) TestRegisterDefaults() {
	s.reg.RegisterDefaults()
	s.Equal(variant.Int(1152), s.reg.GetOr("display/window/size/viewport_width", nil))
	s.False(s.reg.CanRevert("display/window/size/viewport_width"))

	for _, p := range s.reg.Snapshot() {
		s.Less(p.Order, builtinOrderBase, p.Key)
	}
	var found bool
	for _, pi := range s.reg.PropertyInfos() {
		if pi.Name == "display/window/vsync/vsync_mode" {
			found = true
			s.Equal(HintEnum, pi.Hint)
		}
	}
	s.True(found)

	// registering twice is harmless.
	n := s.reg.Len()
	s.reg.RegisterDefaults()
	s.Equal(n, s.reg.Len())
}

func (s *RegistryTestSuite) TestMigrationIdempotent() {
	events := variant.Array{variant.String("EventA"), variant.String("EventB")}
	want := variant.NewDictionary().Set("deadzone", variant.Float(0.5)).Set("events", events)

	applied := s.reg.Load([]codec.Entry{
		{Key: "input/jump", Value: events},
		{Key: "application/config/name", Value: variant.String("Demo")},
	}, 3)
	s.Equal(2, applied)
	got, err := s.reg.Get("input/jump")
	s.Require().NoError(err)
	s.True(variant.Equal(want, got), variant.Write(got))

	// migrating again leaves the dictionary alone.
	s.reg.Load(nil, 3)
	got, _ = s.reg.Get("input/jump")
	s.True(variant.Equal(want, got))

	// export and reload at the current version does not rewrap.
	var entries []codec.Entry
	for _, p := range s.reg.Snapshot() {
		entries = append(entries, codec.Entry{Key: p.Key, Value: p.Value})
	}
	fresh := New(s.host)
	fresh.Load(entries, codec.ConfigVersion)
	got, _ = fresh.Get("input/jump")
	s.True(variant.Equal(want, got))
}

func (s *RegistryTestSuite) TestMigrationSkippedForCurrentVersion() {
	events := variant.Array{variant.String("EventA")}
	s.reg.Load([]codec.Entry{{Key: "input/jump", Value: events}}, 4)
	got, _ := s.reg.Get("input/jump")
	s.Equal(events, got)
}

func (s *RegistryTestSuite) TestGetReturnsCopy() {
	s.reg.Set("a/list", variant.Array{variant.Int(1)})
	v, _ := s.reg.Get("a/list")
	arr := v.(variant.Array)
	arr[0] = variant.Int(9)
	s.Equal(variant.Array{variant.Int(1)}, s.reg.GetOr("a/list", nil))
}

func (s *RegistryTestSuite) TestIgnoreInDocs() {
	s.reg.Set("a/b", variant.Int(1))
	ignore, err := s.reg.IgnoreInDocs("a/b")
	s.Require().NoError(err)
	s.False(ignore)
	s.Require().NoError(s.reg.SetIgnoreInDocs("a/b", true))
	ignore, _ = s.reg.IgnoreInDocs("a/b")
	s.True(ignore)
}

func (s *RegistryTestSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.reg.Set("load/key", variant.Int(int64(i*j)))
				_, _ = s.reg.Get("load/key")
				_ = s.reg.List()
			}
		}(i)
	}
	wg.Wait()
	s.Equal(1, s.reg.Len())
}

func (s *RegistryTestSuite) TestWriteResultString() {
	s.Equal("applied", Applied.String())
	s.Equal("shadowed", Shadowed.String())
	s.Equal("rejected", Rejected.String())
	s.Equal("WriteResult(9)", WriteResult(9).String())
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}
