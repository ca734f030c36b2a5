package mainydb

import (
	"fmt"
	"math"
	"time"
)

// Kind is the type tag of a Value. Type is part of identity: an int and a
// float holding the same magnitude compare equal under query equality (§3)
// but keep their own Kind through a round trip.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTimestamp
	KindObjectID
	KindBinary
	KindArray
	KindDocument
	// kindAbsent never appears on disk; it is the Path Resolver's marker for
	// "no value here", distinct from KindNull.
	kindAbsent
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindObjectID:
		return "objectId"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindDocument:
		return "document"
	case kindAbsent:
		return "absent"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged value from the universe described in spec §3.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	bin  []byte
	arr  []Value
	doc  *Document
}

func Null() Value                  { return Value{kind: KindNull} }
func Bool(v bool) Value            { return Value{kind: KindBool, b: v} }
func Int(v int64) Value            { return Value{kind: KindInt, i: v} }
func Float(v float64) Value        { return Value{kind: KindFloat, f: v} }
func String(v string) Value        { return Value{kind: KindString, s: v} }
func Timestamp(v time.Time) Value  { return Value{kind: KindTimestamp, t: v.UTC().Truncate(time.Millisecond)} }
func ObjectIDValue(v ObjectID) Value { return Value{kind: KindObjectID, s: string(v)} }
func Binary(v []byte) Value        { return Value{kind: KindBinary, bin: v} }
func Array(v []Value) Value        { return Value{kind: KindArray, arr: v} }
func Doc(v *Document) Value        { return Value{kind: KindDocument, doc: v} }

// absentValue is returned by reads of missing paths; it is never stored.
func absentValue() Value { return Value{kind: kindAbsent} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsAbsent() bool { return v.kind == kindAbsent }

func (v Value) AsBool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)          { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)      { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)      { return v.s, v.kind == KindString }
func (v Value) AsTimestamp() (time.Time, bool) { return v.t, v.kind == KindTimestamp }
func (v Value) AsObjectID() (ObjectID, bool)  { return ObjectID(v.s), v.kind == KindObjectID }
func (v Value) AsBinary() ([]byte, bool)      { return v.bin, v.kind == KindBinary }
func (v Value) AsArray() ([]Value, bool)      { return v.arr, v.kind == KindArray }
func (v Value) AsDocument() (*Document, bool) { return v.doc, v.kind == KindDocument }

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Numeric returns v's numeric value as a float64, for arithmetic that does
// not care about the int/float distinction. Panics if !IsNumeric().
func (v Value) Numeric() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		panic(fmt.Errorf("mainydb: Numeric() called on %v", v.kind))
	}
}

// Len reports the length of an array or document value, or 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindDocument:
		return v.doc.Len()
	default:
		return 0
	}
}

// Clone makes a deep copy of v, required before handing a Value to a caller
// who may mutate it, or before storing one obtained from caller input.
func (v Value) Clone() Value {
	switch v.kind {
	case KindBinary:
		cp := make([]byte, len(v.bin))
		copy(cp, v.bin)
		v.bin = cp
		return v
	case KindArray:
		cp := make([]Value, len(v.arr))
		for i, el := range v.arr {
			cp[i] = el.Clone()
		}
		v.arr = cp
		return v
	case KindDocument:
		v.doc = v.doc.Clone()
		return v
	default:
		return v
	}
}

// StructEqual is structural equality: same Kind and same payload, used by the
// round-trip and no-op-update testable properties (§8). This is distinct from
// query equality (valueQueryEqual in predicate.go), which treats 1 and 1.0 as
// equal — see Design Note on two separate relations.
func StructEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindString, KindObjectID:
		return a.s == b.s
	case KindTimestamp:
		return a.t.Equal(b.t)
	case KindBinary:
		if len(a.bin) != len(b.bin) {
			return false
		}
		for i := range a.bin {
			if a.bin[i] != b.bin[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !StructEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		return a.doc.StructEqual(b.doc)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case KindObjectID:
		return "ObjectID(" + v.s + ")"
	case KindBinary:
		return fmt.Sprintf("Binary(%d bytes)", len(v.bin))
	case KindArray:
		return fmt.Sprintf("Array(%d)", len(v.arr))
	case KindDocument:
		return v.doc.String()
	case kindAbsent:
		return "<absent>"
	default:
		return "<invalid>"
	}
}
