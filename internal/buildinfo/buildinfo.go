// Package buildinfo provides version and build information for projset.
// Besides the link-time version strings it declares which project feature
// tags this build requires and supports; the save path trims a project's
// declared features against these lists.
package buildinfo

import (
	"slices"
	"sort"
	"strings"
)

// Version is set at link-time with –ldflags.
var Version = "v4.2.1"

// Commit is set at link-time with –ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"

// Status is the release status part of the full version ("stable", "beta"...).
var Status = "stable"

// Branch returns the "major.minor" part of Version.
func Branch() string {
	v := strings.TrimPrefix(Version, "v")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}

// RequiredFeatures returns the feature tags every project opened by this
// build must declare.
func RequiredFeatures() []string {
	return []string{Branch()}
}

// SupportedFeatures returns the feature tags this build can honour,
// including all required ones. The patch, status and commit pins are only
// used when a project adds them by hand.
func SupportedFeatures() []string {
	v := strings.TrimPrefix(Version, "v")
	features := RequiredFeatures()
	features = append(features,
		"C#",
		v,
		v+"."+Status,
		v+"."+Status+"."+Commit,
		"Forward Plus",
		"Mobile",
		"GL Compatibility",
	)
	return features
}

// UnsupportedFeatures returns the sorted subset of project features this
// build lacks.
func UnsupportedFeatures(project []string) []string {
	supported := SupportedFeatures()
	var out []string
	for _, f := range project {
		if !slices.Contains(supported, f) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// TrimToSupported keeps only supported features, adds any missing required
// feature and returns the result sorted.
func TrimToSupported(project []string) []string {
	supported := SupportedFeatures()
	out := make([]string, 0, len(project))
	for _, f := range project {
		if slices.Contains(supported, f) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	for _, f := range RequiredFeatures() {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
