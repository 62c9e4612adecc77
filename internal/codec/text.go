package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lc/projset/internal/variant"
)

var textHeader = []string{
	"; Project settings file.",
	"; It's best edited through the tooling and not directly,",
	"; since the parameters that go here are not all obvious.",
	";",
	"; Format:",
	";   [section] ; section goes between []",
	";   param=value ; assign values to parameters",
	"",
}

// ReadText decodes a text settings file. Any malformed line is fatal and
// reported as a *ParseError with its 1-based line number. A config_version
// newer than ConfigVersion fails with ErrIncompatibleVersion.
func ReadText(r io.Reader, path string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tp := textParser{src: string(data), path: path}
	return tp.parse()
}

type textParser struct {
	src  string
	pos  int
	path string
}

func (t *textParser) fail(off int, msg string) error {
	return &ParseError{Path: t.path, Line: 1 + strings.Count(t.src[:off], "\n"), Msg: msg}
}

func (t *textParser) parse() (*Document, error) {
	doc := &Document{}
	section := ""
	for {
		t.skipBlank()
		if t.pos >= len(t.src) {
			return doc, nil
		}
		if t.src[t.pos] == '[' {
			name, err := t.tag()
			if err != nil {
				return nil, err
			}
			section = name
			continue
		}

		keyOff := t.pos
		key, err := t.key()
		if err != nil {
			return nil, err
		}
		v, end, err := variant.ParsePrefix(t.src, t.pos)
		if err != nil {
			off := end
			var se *variant.SyntaxError
			if errors.As(err, &se) {
				off = se.Offset
			}
			return nil, t.fail(off, fmt.Sprintf("%s: %s", key, errMsg(err)))
		}
		t.pos = end
		if err := t.endOfLine(); err != nil {
			return nil, err
		}

		if section == "" && key == VersionKey {
			n, ok := v.(variant.Int)
			if !ok {
				return nil, t.fail(keyOff, VersionKey+" must be an integer")
			}
			if n > ConfigVersion {
				return nil, fmt.Errorf("%s declares config_version %d, newest supported is %d: %w",
					t.path, n, ConfigVersion, ErrIncompatibleVersion)
			}
			doc.Version = int(n)
			continue
		}
		doc.Entries = append(doc.Entries, Entry{Key: JoinKey(section, key), Value: v})
	}
}

func errMsg(err error) string {
	var se *variant.SyntaxError
	if errors.As(err, &se) {
		return se.Msg
	}
	return err.Error()
}

// skipBlank consumes whitespace, blank lines and ';' comment lines.
func (t *textParser) skipBlank() {
	for t.pos < len(t.src) {
		switch t.src[t.pos] {
		case ' ', '\t', '\r', '\n':
			t.pos++
		case ';':
			t.skipComment()
		default:
			return
		}
	}
}

func (t *textParser) skipComment() {
	for t.pos < len(t.src) && t.src[t.pos] != '\n' {
		t.pos++
	}
}

// endOfLine requires that only spaces or a comment remain on the line.
func (t *textParser) endOfLine() error {
	for t.pos < len(t.src) {
		switch t.src[t.pos] {
		case ' ', '\t', '\r':
			t.pos++
		case ';':
			t.skipComment()
			return nil
		case '\n':
			t.pos++
			return nil
		default:
			return t.fail(t.pos, fmt.Sprintf("unexpected %q at end of line", t.src[t.pos]))
		}
	}
	return nil
}

func (t *textParser) tag() (string, error) {
	start := t.pos
	t.pos++ // [
	end := strings.IndexAny(t.src[t.pos:], "]\n")
	if end < 0 || t.src[t.pos+end] != ']' {
		return "", t.fail(start, "unterminated section header")
	}
	name := strings.TrimSpace(t.src[t.pos : t.pos+end])
	t.pos += end + 1
	if name == "" {
		return "", t.fail(start, "empty section name")
	}
	// [name field=value] tags carry fields that settings files never use.
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	if err := t.endOfLine(); err != nil {
		return "", err
	}
	return name, nil
}

func (t *textParser) key() (string, error) {
	start := t.pos
	var key string
	if t.src[t.pos] == '"' {
		k, end, err := variant.Unquote(t.src, t.pos)
		if err != nil {
			return "", t.fail(start, "invalid quoted key: "+errMsg(err))
		}
		key = k
		t.pos = end
		for t.pos < len(t.src) && (t.src[t.pos] == ' ' || t.src[t.pos] == '\t') {
			t.pos++
		}
		if t.pos >= len(t.src) || t.src[t.pos] != '=' {
			return "", t.fail(start, "expected '=' after key")
		}
	} else {
		end := strings.IndexAny(t.src[t.pos:], "=\n")
		if end < 0 || t.src[t.pos+end] != '=' {
			return "", t.fail(start, "expected key=value")
		}
		key = strings.TrimSpace(t.src[t.pos : t.pos+end])
		t.pos += end
	}
	t.pos++ // =
	if key == "" {
		return "", t.fail(start, "empty key")
	}
	return key, nil
}

// EncodeKey quotes a key that contains characters outside the plain key
// alphabet so it reads back unchanged.
func EncodeKey(key string) string {
	if key == "" {
		return `""`
	}
	if !isPlain(key) {
		return variant.Quote(key)
	}
	return key
}

func isPlain(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		plain := c == '_' || c == '/' || c == '.' || c == '-' || c == '+' ||
			(c >= '0' && c <= '9') || (c|0x20 >= 'a' && c|0x20 <= 'z')
		if !plain {
			return false
		}
	}
	return true
}

// headerSafe reports whether name can be written as a [section] header and
// read back unchanged.
func headerSafe(name string) bool {
	return isPlain(name) && !strings.Contains(name, "/")
}

// WriteText encodes sections into the text format. Sections are written in
// the order given; entry keys are local to their section. Entries of a
// section whose name cannot appear in a header are written with the root
// section under their quoted full key.
func WriteText(w io.Writer, sections []Section, customFeatures string) error {
	var root []Entry
	named := make([]Section, 0, len(sections))
	for _, s := range sections {
		switch {
		case s.Name == "":
			root = append(root, s.Entries...)
		case !headerSafe(s.Name):
			for _, e := range s.Entries {
				root = append(root, Entry{Key: JoinKey(s.Name, e.Key), Value: e.Value})
			}
		default:
			named = append(named, s)
		}
	}
	if len(root) > 0 {
		named = append([]Section{{Entries: root}}, named...)
	}

	bw := bufio.NewWriter(w)
	for _, l := range textHeader {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "%s=%d\n", VersionKey, ConfigVersion)
	if customFeatures != "" {
		fmt.Fprintf(bw, "%s=%s\n", CustomFeaturesKey, variant.Quote(customFeatures))
	}
	bw.WriteByte('\n')

	for i, s := range named {
		if i > 0 {
			bw.WriteByte('\n')
		}
		if s.Name != "" {
			fmt.Fprintf(bw, "[%s]\n\n", s.Name)
		}
		for _, e := range s.Entries {
			bw.WriteString(EncodeKey(e.Key))
			bw.WriteByte('=')
			bw.WriteString(variant.Write(e.Value))
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
