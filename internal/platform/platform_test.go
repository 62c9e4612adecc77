package platform

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type PlatformTestSuite struct {
	suite.Suite
}

type fakeChecker map[string]bool

func (f fakeChecker) IsRunning(name string) bool { return f[name] }

func (s *PlatformTestSuite) TestHostFeatures() {
	h := NewHost("demo")
	h.Extra = []string{"custom_tag"}
	s.True(h.HasFeature("custom_tag"))
	s.True(h.HasFeature(" custom_tag "))
	s.False(h.HasFeature("definitely_not_a_tag"))
	s.NotEmpty(Detected())
	for _, tag := range Detected() {
		s.True(h.HasFeature(tag), tag)
	}
}

func (s *PlatformTestSuite) TestHostRuntime() {
	h := NewHost("demo")
	s.False(h.HasRuntime("dotnet"))
	h.Checker = fakeChecker{"dotnet": true}
	s.True(h.HasRuntime("dotnet"))
	s.False(h.HasRuntime("java"))
}

func (s *PlatformTestSuite) TestHostExecutable() {
	h := NewHost("demo")
	h.executable = func() (string, error) { return "/opt/game/game.x86_64", nil }
	s.Equal("/opt/game/game.x86_64", h.ExecutablePath())

	h.executable = func() (string, error) { return "", errors.New("unavailable") }
	s.Equal("", h.ExecutablePath())
	s.Equal("", h.BundleResourceDir())
}

func (s *PlatformTestSuite) TestBundleResourceDir() {
	h := NewHost("demo")
	h.executable = func() (string, error) { return "/Applications/Demo.app/Contents/MacOS/Demo", nil }
	if runtime.GOOS == "darwin" {
		s.Equal("/Applications/Demo.app/Contents/Resources", h.BundleResourceDir())
	} else {
		s.Equal("", h.BundleResourceDir())
	}
}

func (s *PlatformTestSuite) TestUserDataOverride() {
	h := NewHost("demo")
	h.UserData = "/data"
	s.Equal("/data", h.UserDataDir())
	h.UserData = ""
	if dir := h.UserDataDir(); dir != "" {
		s.True(strings.HasSuffix(dir, "/demo"), dir)
	}
}

func (s *PlatformTestSuite) TestLoadProfile() {
	src := `
executable: /opt/game/game.x86_64
resource_dir: /sdcard/game
user_data_dir: /sdcard/user
features: [android, mobile]
runtimes: [dotnet]
`
	p, err := LoadProfile(strings.NewReader(src))
	s.Require().NoError(err)
	s.Equal("/opt/game/game.x86_64", p.ExecutablePath())
	s.Equal("/sdcard/game", p.ResourceDir())
	s.Equal("/sdcard/user", p.UserDataDir())
	s.Equal("", p.BundleResourceDir())
	s.True(p.HasFeature("mobile"))
	s.False(p.HasFeature("pc"))
	s.True(p.HasRuntime("dotnet"))
}

func (s *PlatformTestSuite) TestLoadProfileEmptyAndInvalid() {
	p, err := LoadProfile(strings.NewReader(""))
	s.Require().NoError(err)
	s.Equal("", p.ExecutablePath())

	_, err = LoadProfile(strings.NewReader("features: {not: [a list"))
	s.Error(err)
}

func TestPlatformSuite(t *testing.T) {
	suite.Run(t, new(PlatformTestSuite))
}
