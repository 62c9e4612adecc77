package variant

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

var (
	// ErrUnsupportedKind is returned when a buffer carries a type id this
	// package does not model.
	ErrUnsupportedKind = errors.New("unsupported value kind")
	// ErrTruncated is returned when a buffer ends before the value does.
	ErrTruncated = errors.New("truncated value buffer")
)

// Wire type ids. They match the ids used by existing project.binary files.
const (
	typeNil         = 0
	typeBool        = 1
	typeInt         = 2
	typeFloat       = 3
	typeString      = 4
	typeDictionary  = 27
	typeArray       = 28
	typeByteArray   = 29
	typeStringArray = 34

	headerTypeMask = 0xFF
	flag64         = 1 << 16
	// countMask strips the "shared" bit some writers set on container counts.
	countMask = 0x7FFFFFFF

	maxDepth = 512
)

// Encode returns the binary encoding of v.
func Encode(v Value) ([]byte, error) {
	var e encoder
	if err := e.value(Normalize(v), 0); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Decode parses a buffer produced by Encode. Trailing bytes are ignored.
func Decode(b []byte) (Value, error) {
	d := decoder{buf: b}
	return d.value(0)
}

type encoder struct {
	buf []byte
}

func (e *encoder) u32(x uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, x) }
func (e *encoder) u64(x uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, x) }

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	e.pad(len(s))
}

func (e *encoder) pad(n int) {
	for n%4 != 0 {
		e.buf = append(e.buf, 0)
		n++
	}
}

func (e *encoder) value(v Value, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("encode: nesting exceeds %d levels", maxDepth)
	}
	switch tv := v.(type) {
	case Nil:
		e.u32(typeNil)
	case Bool:
		e.u32(typeBool)
		if tv {
			e.u32(1)
		} else {
			e.u32(0)
		}
	case Int:
		if int64(tv) >= math.MinInt32 && int64(tv) <= math.MaxInt32 {
			e.u32(typeInt)
			e.u32(uint32(int32(tv)))
		} else {
			e.u32(typeInt | flag64)
			e.u64(uint64(tv))
		}
	case Float:
		f := float64(tv)
		if float64(float32(f)) == f || math.IsNaN(f) {
			e.u32(typeFloat)
			e.u32(math.Float32bits(float32(f)))
		} else {
			e.u32(typeFloat | flag64)
			e.u64(math.Float64bits(f))
		}
	case String:
		e.u32(typeString)
		e.str(string(tv))
	case Array:
		e.u32(typeArray)
		e.u32(uint32(len(tv)))
		for _, el := range tv {
			if err := e.value(Normalize(el), depth+1); err != nil {
				return err
			}
		}
	case *Dictionary:
		e.u32(typeDictionary)
		e.u32(uint32(tv.Len()))
		for _, k := range tv.keys {
			e.u32(typeString)
			e.str(k)
			if err := e.value(tv.m[k], depth+1); err != nil {
				return err
			}
		}
	case StringArray:
		e.u32(typeStringArray)
		e.u32(uint32(len(tv)))
		for _, s := range tv {
			e.str(s)
		}
	case ByteArray:
		e.u32(typeByteArray)
		e.u32(uint32(len(tv)))
		e.buf = append(e.buf, tv...)
		e.pad(len(tv))
	default:
		return fmt.Errorf("encode %T: %w", v, ErrUnsupportedKind)
	}
	return nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) need(n int) error {
	if n < 0 || len(d.buf)-d.off < n {
		return fmt.Errorf("need %d bytes at offset %d: %w", n, d.off, ErrTruncated)
	}
	return nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	x := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return x, nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	x := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return x, nil
}

func (d *decoder) raw(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	if n%4 != 0 {
		skip := 4 - n%4
		if len(d.buf)-d.off < skip {
			skip = len(d.buf) - d.off
		}
		d.off += skip
	}
	return b, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	b, err := d.raw(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("string at offset %d is not valid UTF-8", d.off)
	}
	return string(b), nil
}

func (d *decoder) count() (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	c := int(n & countMask)
	// every element occupies at least four bytes
	if err := d.need(c * 4); err != nil {
		return 0, err
	}
	return c, nil
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("decode: nesting exceeds %d levels", maxDepth)
	}
	header, err := d.u32()
	if err != nil {
		return nil, err
	}
	wide := header&flag64 != 0
	switch header & headerTypeMask {
	case typeNil:
		return Nil{}, nil
	case typeBool:
		x, err := d.u32()
		if err != nil {
			return nil, err
		}
		return Bool(x != 0), nil
	case typeInt:
		if wide {
			x, err := d.u64()
			return Int(int64(x)), err
		}
		x, err := d.u32()
		return Int(int32(x)), err
	case typeFloat:
		if wide {
			x, err := d.u64()
			return Float(math.Float64frombits(x)), err
		}
		x, err := d.u32()
		return Float(math.Float32frombits(x)), err
	case typeString:
		s, err := d.str()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case typeArray:
		n, err := d.count()
		if err != nil {
			return nil, err
		}
		out := make(Array, 0, n)
		for i := 0; i < n; i++ {
			el, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, el)
		}
		return out, nil
	case typeDictionary:
		n, err := d.count()
		if err != nil {
			return nil, err
		}
		out := NewDictionary()
		for i := 0; i < n; i++ {
			k, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			ks, ok := k.(String)
			if !ok {
				return nil, fmt.Errorf("dictionary key of kind %s: %w", k.Kind(), ErrUnsupportedKind)
			}
			el, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			out.Set(string(ks), el)
		}
		return out, nil
	case typeStringArray:
		n, err := d.count()
		if err != nil {
			return nil, err
		}
		out := make(StringArray, 0, n)
		for i := 0; i < n; i++ {
			s, err := d.str()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case typeByteArray:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		b, err := d.raw(int(n))
		if err != nil {
			return nil, err
		}
		return ByteArray(append([]byte(nil), b...)), nil
	default:
		return nil, fmt.Errorf("type id %d: %w", header&headerTypeMask, ErrUnsupportedKind)
	}
}
