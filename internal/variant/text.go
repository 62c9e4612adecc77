package variant

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is wrapped by every error returned from the literal parser.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports a malformed literal and the byte offset it starts at.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

const (
	ctorStringArray = "PackedStringArray"
	ctorByteArray   = "PackedByteArray"
)

// Write returns the text literal for v.
func Write(v Value) string {
	var b strings.Builder
	write(&b, Normalize(v))
	return b.String()
}

func write(b *strings.Builder, v Value) {
	switch tv := v.(type) {
	case Nil:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(tv)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(tv), 10))
	case Float:
		b.WriteString(formatFloat(float64(tv)))
	case String:
		b.WriteString(Quote(string(tv)))
	case Array:
		b.WriteByte('[')
		for i, el := range tv {
			if i > 0 {
				b.WriteString(", ")
			}
			write(b, Normalize(el))
		}
		b.WriteByte(']')
	case *Dictionary:
		if tv.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, k := range tv.keys {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(Quote(k))
			b.WriteString(": ")
			write(b, tv.m[k])
		}
		b.WriteString("\n}")
	case StringArray:
		b.WriteString(ctorStringArray)
		b.WriteByte('(')
		for i, s := range tv {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Quote(s))
		}
		b.WriteByte(')')
	case ByteArray:
		b.WriteString(ctorByteArray)
		b.WriteByte('(')
		for i, c := range tv {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(int(c)))
		}
		b.WriteByte(')')
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Quote returns s as a double-quoted literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Parse parses a complete literal. Only whitespace may follow the value.
func Parse(src string) (Value, error) {
	p := parser{src: src}
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q after value", p.src[p.pos])
	}
	return v, nil
}

// ParsePrefix parses one literal starting at off and returns the offset just
// past it. It is used by line-oriented formats whose values may span lines.
func ParsePrefix(src string, off int) (Value, int, error) {
	p := parser{src: src, pos: off}
	v, err := p.value(0)
	if err != nil {
		return nil, p.pos, err
	}
	return v, p.pos, nil
}

// Unquote parses a double-quoted literal starting at off.
func Unquote(src string, off int) (string, int, error) {
	p := parser{src: src, pos: off}
	s, err := p.str()
	return s, p.pos, err
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == ';':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting exceeds %d levels", maxDepth)
	}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("expected value, got end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '"':
		s, err := p.str()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case c == '[':
		return p.array(depth)
	case c == '{':
		return p.dict(depth)
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.ident(depth)
	}
	return nil, p.errorf("unexpected %q", c)
}

func (p *parser) array(depth int) (Value, error) {
	p.pos++ // [
	out := Array{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return out, nil
		}
		el, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']' in array")
		}
	}
}

func (p *parser) dict(depth int) (Value, error) {
	p.pos++ // {
	out := NewDictionary()
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		if p.peek() != '"' {
			return nil, p.errorf("dictionary keys must be strings")
		}
		k, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		el, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out.Set(k, el)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dictionary")
		}
	}
}

func (p *parser) str() (string, error) {
	if p.peek() != '"' {
		return "", p.errorf("expected string")
	}
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			p.pos = start
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '"', '\\', '/', '\'':
				b.WriteByte(esc)
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", p.errorf("short unicode escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return "", p.errorf("invalid unicode escape %q", p.src[p.pos:p.pos+4])
				}
				p.pos += 4
				b.WriteRune(rune(n))
			default:
				return "", p.errorf("invalid escape \\%c", esc)
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			if r == utf8.RuneError && size == 1 {
				return "", p.errorf("invalid UTF-8 in string")
			}
			b.WriteString(p.src[p.pos : p.pos+size])
			p.pos += size
		}
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if strings.HasPrefix(p.src[p.pos:], "inf") {
		p.pos += 3
		if p.src[start] == '-' {
			return Float(math.Inf(-1)), nil
		}
		return Float(math.Inf(1)), nil
	}
	isFloat := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			break scan
		}
		p.pos++
	}
	lit := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("invalid number %q", lit)
		}
		return Float(f), nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid integer %q", lit)
	}
	return Int(n), nil
}

func (p *parser) ident(depth int) (Value, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	switch name {
	case "null":
		return Nil{}, nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "inf":
		return Float(math.Inf(1)), nil
	case "nan":
		return Float(math.NaN()), nil
	case ctorStringArray:
		args, err := p.args(depth)
		if err != nil {
			return nil, err
		}
		out := make(StringArray, 0, len(args))
		for _, a := range args {
			s, ok := a.(String)
			if !ok {
				return nil, p.errorf("%s expects strings, got %s", ctorStringArray, a.Kind())
			}
			out = append(out, string(s))
		}
		return out, nil
	case ctorByteArray:
		args, err := p.args(depth)
		if err != nil {
			return nil, err
		}
		out := make(ByteArray, 0, len(args))
		for _, a := range args {
			n, ok := a.(Int)
			if !ok || n < 0 || n > 255 {
				return nil, p.errorf("%s expects integers in 0..255", ctorByteArray)
			}
			out = append(out, byte(n))
		}
		return out, nil
	}
	p.pos = start
	return nil, p.errorf("unknown identifier %q", name)
}

func (p *parser) args(depth int) ([]Value, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var out []Value
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return out, nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ')' in constructor")
		}
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
