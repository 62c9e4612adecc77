// Package codec reads and writes project settings in their two on-disk
// forms: the human-editable text dialect ([section] / key=value) and the
// compact binary dialect ("ECFG"). Both decode into a Document without
// touching any registry, so a file that fails to decode leaves the caller's
// state untouched.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lc/projset/internal/variant"
)

// ConfigVersion is the newest text schema version this build reads and the
// version it writes.
const ConfigVersion = 5

const (
	// VersionKey is the reserved root-section key carrying the schema version.
	VersionKey = "config_version"
	// CustomFeaturesKey is the reserved key carrying the comma-joined custom
	// feature tags.
	CustomFeaturesKey = "custom_features"
)

var (
	// ErrCorruptHeader is returned when a binary file does not start with the magic.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrParse is wrapped by every ParseError.
	ErrParse = errors.New("parse error")
	// ErrIncompatibleVersion is returned when a text file declares a newer schema.
	ErrIncompatibleVersion = errors.New("incompatible config version")
)

// ParseError reports where a file stopped being readable. Text files report
// a 1-based line, binary files a byte offset.
type ParseError struct {
	Path   string
	Line   int
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing %s at line %d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("parsing %s at offset %d: %s", e.Path, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Entry is one decoded key/value assignment.
type Entry struct {
	Key   string
	Value variant.Value
}

// Document is the decoded content of one file, in file order.
type Document struct {
	// Version is the declared schema version. Files without a declaration
	// report 0; binary files always report ConfigVersion.
	Version int
	Entries []Entry
	// Skipped aggregates per-entry decode failures that were recovered from.
	Skipped error
}

// Section is a group of entries that share the text before the first '/'
// of their key. Entry keys inside a section are local (prefix stripped).
type Section struct {
	Name    string
	Entries []Entry
}

// SplitKey splits a full key into its section and local name at the first
// '/'. Keys without a '/' belong to the root section "".
func SplitKey(key string) (section, name string) {
	i := strings.IndexByte(key, '/')
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// JoinKey is the inverse of SplitKey.
func JoinKey(section, name string) string {
	if section == "" {
		return name
	}
	return section + "/" + name
}

// Partition groups full-key entries into sections sorted by name, the root
// section first. Entry order inside a section is preserved.
func Partition(entries []Entry) []Section {
	idx := make(map[string]int)
	var out []Section
	for _, e := range entries {
		sec, name := SplitKey(e.Key)
		i, ok := idx[sec]
		if !ok {
			i = len(out)
			idx[sec] = i
			out = append(out, Section{Name: sec})
		}
		out[i].Entries = append(out[i].Entries, Entry{Key: name, Value: e.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
