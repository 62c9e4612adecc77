package platform

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Profile is a Platform described by a YAML document. It stands in for a
// deployment target (a packaged mobile build, a bundle layout) without
// running on it.
//
//	executable: /opt/game/game.x86_64
//	resource_dir: ""
//	user_data_dir: /home/me/.local/share/game
//	features: [linux, pc, x86_64, 64]
//	runtimes: [dotnet]
type Profile struct {
	Executable string   `yaml:"executable"`
	BundleDir  string   `yaml:"bundle_resource_dir"`
	Resources  string   `yaml:"resource_dir"`
	UserData   string   `yaml:"user_data_dir"`
	Features   []string `yaml:"features"`
	Runtimes   []string `yaml:"runtimes"`
}

var _ Platform = (*Profile)(nil)

// LoadProfile decodes a Profile.
func LoadProfile(r io.Reader) (*Profile, error) {
	var p Profile
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding platform profile: %w", err)
	}
	return &p, nil
}

func (p *Profile) ExecutablePath() string      { return p.Executable }
func (p *Profile) BundleResourceDir() string   { return p.BundleDir }
func (p *Profile) ResourceDir() string         { return p.Resources }
func (p *Profile) UserDataDir() string         { return p.UserData }
func (p *Profile) HasFeature(tag string) bool  { return slices.Contains(p.Features, tag) }
func (p *Profile) HasRuntime(name string) bool { return slices.Contains(p.Runtimes, name) }
