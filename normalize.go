package toon

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
)

// maxInt64Float is 2^63, the smallest float64 magnitude that no longer
// fits in an int64. Comparing against it (rather than converting first)
// avoids the undefined behavior of converting an out-of-range float to int64.
const maxInt64Float = 9223372036854775808.0

// normalizeFloat applies the float normalization rule shared by the
// Normalizer (4.A) and the Primitive Codec's number parser (4.C):
// negative zero and non-finite values collapse to Int(0)/Null, and any
// finite integer-valued float whose magnitude fits in an int64 becomes
// an Int.
func normalizeFloat(f float64) Value {
	if f == 0 {
		return Int(0)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	if f == math.Trunc(f) && f >= -maxInt64Float && f < maxInt64Float {
		return Int(int64(f))
	}
	return Float(f)
}

// normalize coerces an arbitrary Go value into the canonical Value tree,
// consulting adapters before falling back to reflection. Map keys are
// sorted lexicographically since a Go map carries no order of its own;
// that sorted order becomes the document order for values built this way
// (an already-ordered *Obj built by the decoder, or by NewObj/Set calls,
// keeps the order its caller gave it).
func normalize(v interface{}, adapters *AdapterRegistry) (Value, error) {
	if v == nil {
		return Null(), nil
	}

	if val, ok := v.(Value); ok {
		return val, nil
	}
	if obj, ok := v.(*Obj); ok {
		return ObjValue(obj), nil
	}

	if adapters != nil {
		if fn, ok := adapters.lookup(reflect.TypeOf(v)); ok {
			replaced, err := fn(v)
			if err != nil {
				return Value{}, newEncodeError(NormalizationFailure, err.Error(), v)
			}
			return normalize(replaced, adapters)
		}
	}

	switch t := v.(type) {
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Int(int64(t)), nil
	case float32:
		return normalizeFloat(float64(t)), nil
	case float64:
		return normalizeFloat(t), nil
	case map[string]interface{}:
		return normalizeMap(t, adapters)
	case []interface{}:
		return normalizeSlice(t, adapters)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return normalize(rv.Elem().Interface(), adapters)
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return normalizeViaJSON(v, adapters)
	default:
		return Null(), nil
	}
}

func normalizeMap(m map[string]interface{}, adapters *AdapterRegistry) (Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	o := NewObj()
	for _, k := range keys {
		nv, err := normalize(m[k], adapters)
		if err != nil {
			return Value{}, err
		}
		o.Set(k, nv)
	}
	return ObjValue(o), nil
}

func normalizeSlice(s []interface{}, adapters *AdapterRegistry) (Value, error) {
	items := make([]Value, len(s))
	for i, item := range s {
		nv, err := normalize(item, adapters)
		if err != nil {
			return Value{}, err
		}
		items[i] = nv
	}
	return List(items), nil
}

// normalizeViaJSON handles arbitrary structs, generic maps and slices by
// round-tripping through encoding/json and renormalizing the result —
// the same fallback the teacher's normalizeValue used for reflect.Struct.
func normalizeViaJSON(v interface{}, adapters *AdapterRegistry) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, newEncodeError(UnsupportedValue, err.Error(), v)
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return Value{}, newEncodeError(UnsupportedValue, err.Error(), v)
	}
	return normalize(generic, adapters)
}
