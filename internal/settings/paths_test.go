package settings

import (
	"strings"

	"github.com/lc/projset/internal/variant"
)

func (s *RegistryTestSuite) TestSimplifyPath() {
	testCases := []struct {
		in, want string
	}{
		{"res://a/../b", "res://b"},
		{"res://", "res://"},
		{"res://./x//y", "res://x/y"},
		{"/proj/./sub/../file.cfg", "/proj/file.cfg"},
		{"C:\\proj\\file", "C:/proj/file"},
		{".", ""},
		{"", ""},
	}
	for _, tc := range testCases {
		s.Run(tc.in, func() {
			s.Equal(tc.want, SimplifyPath(tc.in))
		})
	}
}

func (s *RegistryTestSuite) TestLocalizePath() {
	s.reg.SetResourcePath("/proj/")
	s.Equal("/proj", s.reg.ResourcePath())

	testCases := []struct {
		in, want string
	}{
		{"/proj", "res://"},
		{"/proj/", "res://"},
		{"/proj/sub/file.cfg", "res://sub/file.cfg"},
		{"/proj/sub/../file.cfg", "res://file.cfg"},
		{"/elsewhere/file.cfg", "/elsewhere/file.cfg"},
		{"/proj_data/file.cfg", "/proj_data/file.cfg"},
		{"res://a/./b", "res://a/b"},
		{"user://save.dat", "user://save.dat"},
		{"icons/icon.png", "res://icons/icon.png"},
	}
	for _, tc := range testCases {
		s.Run(tc.in, func() {
			s.Equal(tc.want, s.reg.LocalizePath(tc.in))
		})
	}
}

func (s *RegistryTestSuite) TestLocalizePathResolvesDirs() {
	// /proj/link points at /proj/assets, /proj/out points outside the root.
	resolve := func(p string) (string, bool) {
		switch p {
		case "/proj":
			return "/proj", true
		case "/proj/link":
			return "/proj/assets", true
		case "/proj/out":
			return "/outside", true
		}
		return "", false
	}
	reg := New(s.host, WithDirResolver(resolve))
	reg.SetResourcePath("/proj")

	s.Equal("res://", reg.LocalizePath("/proj"))
	s.Equal("res://assets/", reg.LocalizePath("/proj/link"))
	s.Equal("res://assets/icon.png", reg.LocalizePath("/proj/link/icon.png"))
	s.Equal("/proj/out", reg.LocalizePath("/proj/out"))
	s.Equal("/proj/out/x.png", reg.LocalizePath("/proj/out/x.png"))
}

func (s *RegistryTestSuite) TestLocalizeWithoutRoot() {
	s.Equal("/proj/a", s.reg.LocalizePath("/proj/./a"))
}

func (s *RegistryTestSuite) TestGlobalizePath() {
	s.Equal("icon.png", s.reg.GlobalizePath("res://icon.png"))
	s.reg.SetResourcePath("/proj")
	s.Equal("/proj/icon.png", s.reg.GlobalizePath("res://icon.png"))
	s.Equal("/home/me/.local/share/demo/save.dat", s.reg.GlobalizePath("user://save.dat"))
	s.Equal("/abs/file", s.reg.GlobalizePath("/abs/file"))

	s.host.userDir = ""
	s.Equal("save.dat", s.reg.GlobalizePath("user://save.dat"))

	// localize and globalize are inverse inside the root.
	s.Equal("/proj/sub/a.cfg", s.reg.GlobalizePath(s.reg.LocalizePath("/proj/sub/a.cfg")))
}

func (s *RegistryTestSuite) TestProjectDataDirName() {
	s.Equal(".projset", s.reg.ProjectDataDirName())
	s.reg.Set("application/config/use_hidden_project_data_directory", variant.Bool(false))
	s.Equal("projset", s.reg.ProjectDataDirName())
	s.Equal("res://projset", s.reg.ProjectDataPath())
}

func (s *RegistryTestSuite) TestSafeProjectName() {
	testCases := []struct {
		name, want string
	}{
		{"", "UnnamedProject"},
		{"   ", "UnnamedProject"},
		{"My Game", "My Game"},
		{"a/b:c*d?", "a-b-c-d-"},
		{" back\\slash ", "back-slash"},
	}
	for _, tc := range testCases {
		s.Run(strings.TrimSpace(tc.name), func() {
			s.reg.Set("application/config/name", variant.String(tc.name))
			s.Equal(tc.want, s.reg.SafeProjectName())
		})
	}
}

func (s *RegistryTestSuite) TestCompressionSettings() {
	s.Equal(DefaultCompression, s.reg.CompressionSettings())

	s.reg.RegisterDefaults()
	s.Equal(DefaultCompression, s.reg.CompressionSettings())

	s.reg.Set("compression/formats/zstd/compression_level", variant.Int(19))
	s.reg.Set("compression/formats/zstd/long_distance_matching", variant.Bool(true))
	s.reg.Set("compression/formats/gzip/compression_level", variant.Float(6))
	got := s.reg.CompressionSettings()
	s.Equal(19, got.ZstdLevel)
	s.True(got.ZstdLongDistanceMatching)
	s.Equal(6, got.GzipLevel)
	s.Equal(-1, got.ZlibLevel)
}
