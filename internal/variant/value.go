// Package variant provides the tagged value type stored in project settings.
// It is a closed sum type: every Value is one of the concrete types declared
// in this file, and both the binary and the text codecs handle exactly that
// set.
package variant

import (
	"bytes"
	"math"
	"slices"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindDictionary
	KindStringArray
	KindByteArray
)

var kindNames = [...]string{
	KindNil:         "Nil",
	KindBool:        "bool",
	KindInt:         "int",
	KindFloat:       "float",
	KindString:      "String",
	KindArray:       "Array",
	KindDictionary:  "Dictionary",
	KindStringArray: "PackedStringArray",
	KindByteArray:   "PackedByteArray",
}

// String returns the human readable name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Value is any value a setting can hold.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Nil is the absent value. Assigning it to a setting deletes the setting.
	Nil struct{}
	// Bool is a boolean value.
	Bool bool
	// Int is a signed 64-bit integer.
	Int int64
	// Float is a 64-bit floating point number.
	Float float64
	// String is a UTF-8 string.
	String string
	// Array is an ordered list of values of any kind.
	Array []Value
	// StringArray is a packed list of strings.
	StringArray []string
	// ByteArray is a packed byte buffer.
	ByteArray []byte
)

func (Nil) Kind() Kind         { return KindNil }
func (Bool) Kind() Kind        { return KindBool }
func (Int) Kind() Kind         { return KindInt }
func (Float) Kind() Kind       { return KindFloat }
func (String) Kind() Kind      { return KindString }
func (Array) Kind() Kind       { return KindArray }
func (StringArray) Kind() Kind { return KindStringArray }
func (ByteArray) Kind() Kind   { return KindByteArray }

func (Nil) isValue()         {}
func (Bool) isValue()        {}
func (Int) isValue()         {}
func (Float) isValue()       {}
func (String) isValue()      {}
func (Array) isValue()       {}
func (StringArray) isValue() {}
func (ByteArray) isValue()   {}

// Dictionary maps string keys to values and remembers insertion order.
type Dictionary struct {
	keys []string
	m    map[string]Value
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{m: make(map[string]Value)}
}

func (*Dictionary) Kind() Kind { return KindDictionary }
func (*Dictionary) isValue()   {}

// Set stores v under key. A new key is appended to the iteration order.
func (d *Dictionary) Set(key string, v Value) *Dictionary {
	if d.m == nil {
		d.m = make(map[string]Value)
	}
	if _, ok := d.m[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.m[key] = Normalize(v)
	return d
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.m[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Normalize maps a nil interface to Nil so callers never see a bare nil.
func Normalize(v Value) Value {
	if v == nil {
		return Nil{}
	}
	if d, ok := v.(*Dictionary); ok && d == nil {
		return Nil{}
	}
	return v
}

// IsNil reports whether v is the Nil value (or a nil interface).
func IsNil(v Value) bool {
	return Normalize(v).Kind() == KindNil
}

// Equal reports whether a and b hold the same kind and contents.
// Dictionaries compare by key set, independent of insertion order. Floats
// compare by value except that NaN equals NaN, so an unchanged NaN setting
// is not reported as modified.
func Equal(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Nil:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		bv := b.(Float)
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case String:
		return av == b.(String)
	case StringArray:
		return slices.Equal(av, b.(StringArray))
	case ByteArray:
		return bytes.Equal(av, b.(ByteArray))
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Dictionary:
		bv := b.(*Dictionary)
		if av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			other, ok := bv.m[k]
			if !ok || !Equal(av.m[k], other) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v so stored values cannot be mutated through
// slices shared with the caller.
func Clone(v Value) Value {
	switch tv := Normalize(v).(type) {
	case Array:
		out := make(Array, len(tv))
		for i, e := range tv {
			out[i] = Clone(e)
		}
		return out
	case StringArray:
		return slices.Clone(tv)
	case ByteArray:
		return slices.Clone(tv)
	case *Dictionary:
		out := NewDictionary()
		for _, k := range tv.keys {
			out.Set(k, Clone(tv.m[k]))
		}
		return out
	default:
		return tv
	}
}

// AsString returns the string held by v, or "" and false.
func AsString(v Value) (string, bool) {
	s, ok := Normalize(v).(String)
	return string(s), ok
}

// AsInt returns the integer held by v. Floats are truncated.
func AsInt(v Value) (int64, bool) {
	switch tv := Normalize(v).(type) {
	case Int:
		return int64(tv), true
	case Float:
		return int64(tv), true
	case Bool:
		if tv {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsBool returns the boolean held by v. Numbers convert as non-zero.
func AsBool(v Value) (bool, bool) {
	switch tv := Normalize(v).(type) {
	case Bool:
		return bool(tv), true
	case Int:
		return tv != 0, true
	case Float:
		return tv != 0, true
	}
	return false, false
}

// AsStrings returns the strings held by a StringArray, or by an Array whose
// elements are all strings.
func AsStrings(v Value) ([]string, bool) {
	switch tv := Normalize(v).(type) {
	case StringArray:
		return slices.Clone(tv), true
	case Array:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			s, ok := e.(String)
			if !ok {
				return nil, false
			}
			out = append(out, string(s))
		}
		return out, true
	}
	return nil, false
}
