// Package toon implements TOON (Token-Oriented Object Notation), a compact,
// indentation-based text serialization format optimized for feeding
// structured data to large language models at low token cost.
//
// The package encodes a normalized value tree to TOON text and decodes TOON
// text back to the same tree: for any value v, Decode(Encode(v)) equals the
// normalized form of v.
package toon

import "fmt"

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindObj
)

// Value is the canonical tagged union the codec operates on: Null, Bool,
// Int, Float, Str, List or Obj. Encode normalizes arbitrary Go input into
// a Value before rendering; Decode parses TOON text directly into one.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	obj  *Obj
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Str(s string) Value         { return Value{kind: KindStr, s: s} }
func List(items []Value) Value   { return Value{kind: KindList, list: items} }
func ObjValue(o *Obj) Value      { return Value{kind: KindObj, obj: o} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsPrimitive reports whether v is one of Null, Bool, Int, Float, Str —
// the variants that may appear bare inside an inline or tabular array.
func (v Value) IsPrimitive() bool {
	switch v.kind {
	case KindNull, KindBool, KindInt, KindFloat, KindStr:
		return true
	default:
		return false
	}
}

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsStr() string    { return v.s }
func (v Value) AsList() []Value  { return v.list }
func (v Value) AsObj() *Obj      { return v.obj }

// Equal reports deep, order-sensitive equality for Obj keys (document
// order matters per the normalization contract).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindStr:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindObj:
		return v.obj.Equal(o.obj)
	default:
		return false
	}
}

// Interface projects v into plain Go values for callers that don't want
// to walk the Value/Obj API directly: Null becomes nil, Int an int64,
// Float a float64, List a []interface{}, and Obj the *Obj itself (kept
// as-is, not flattened to a map, since document order and the Int/Float
// distinction would otherwise be lost).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindStr:
		return v.s
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, it := range v.list {
			out[i] = it.Interface()
		}
		return out
	case KindObj:
		return v.obj
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindStr:
		return v.s
	case KindList:
		return fmt.Sprintf("List(%d)", len(v.list))
	case KindObj:
		return fmt.Sprintf("Obj(%d)", v.obj.Len())
	default:
		return "<invalid>"
	}
}

// Obj is an ordered, string-keyed map: insertion order is the
// left-to-right order observed by the decoder. The encoder does not emit
// keys in insertion order; it uses KeyOrder or lexicographic order. Keys
// are unique.
type Obj struct {
	keys []string
	vals map[string]Value
}

// NewObj returns an empty ordered object.
func NewObj() *Obj {
	return &Obj{vals: make(map[string]Value)}
}

// Set inserts or replaces key with value. A fresh key is appended to the
// end of the key order; an existing key keeps its position.
func (o *Obj) Set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value for key and whether it was present.
func (o *Obj) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns keys in document order. The returned slice must not be mutated.
func (o *Obj) Keys() []string { return o.keys }

func (o *Obj) Len() int { return len(o.keys) }

// Delete removes key, preserving the order of the remaining keys.
func (o *Obj) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Equal reports whether o and other hold the same keys in the same order
// mapping to equal values.
func (o *Obj) Equal(other *Obj) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.keys) != len(other.keys) {
		return false
	}
	for i, k := range o.keys {
		if other.keys[i] != k {
			return false
		}
		ov, _ := o.vals[k]
		vv, _ := other.vals[k]
		if !ov.Equal(vv) {
			return false
		}
	}
	return true
}
