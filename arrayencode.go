package toon

import (
	"sort"
	"strconv"
	"strings"
)

// arrayShape classifies how an array's contents should be rendered,
// chosen by the decision order in spec.md 4.D.
type arrayShape int

const (
	shapeEmpty arrayShape = iota
	shapeInline
	shapeTabular
	shapeList
)

func classifyArray(items []Value) arrayShape {
	if len(items) == 0 {
		return shapeEmpty
	}
	allPrimitive := true
	for _, it := range items {
		if !it.IsPrimitive() {
			allPrimitive = false
			break
		}
	}
	if allPrimitive {
		return shapeInline
	}
	if tabularFields(items) != nil {
		return shapeTabular
	}
	return shapeList
}

// tabularFieldOrder resolves the field order actually used for a tabular
// array's header and rows: the lexicographic set from tabularFields,
// reordered to opts.KeyOrder when it covers that set exactly (spec.md
// 4.D).
func (e *encoder) tabularFieldOrder(items []Value, path string) []string {
	fields := tabularFields(items)
	if order := tabularKeyOrder(e.opts, path, fields); order != nil {
		return order
	}
	return fields
}

// tabularFields returns the sorted field list shared by every element
// when all elements are objects with an identical key set and every
// value in every row is primitive; nil otherwise.
func tabularFields(items []Value) []string {
	first, ok := firstObjFields(items[0])
	if !ok {
		return nil
	}
	for _, it := range items {
		if it.Kind() != KindObj {
			return nil
		}
		obj := it.AsObj()
		if obj.Len() != len(first) {
			return nil
		}
		for _, k := range first {
			v, present := obj.Get(k)
			if !present || !v.IsPrimitive() {
				return nil
			}
		}
	}
	return first
}

func firstObjFields(v Value) ([]string, bool) {
	if v.Kind() != KindObj {
		return nil, false
	}
	obj := v.AsObj()
	for _, k := range obj.Keys() {
		fv, _ := obj.Get(k)
		if !fv.IsPrimitive() {
			return nil, false
		}
	}
	fields := append([]string(nil), obj.Keys()...)
	sort.Strings(fields)
	return fields, true
}

// arrayHeader builds the "[<MARK><N><D>]" / "...{fields}" portion shared by
// every array shape, per spec.md 4.D.
func (e *encoder) arrayHeader(n int, fields []string) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.opts.LengthMarker)
	b.WriteString(strconv.Itoa(n))
	if d := delimiterMarker(e.opts.Delimiter); d != "" {
		b.WriteString(d)
	}
	b.WriteByte(']')
	if len(fields) > 0 {
		b.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				b.WriteString(e.opts.Delimiter)
			}
			b.WriteString(e.encodeKey(f))
		}
		b.WriteByte('}')
	}
	return b.String()
}

func delimiterMarker(d string) string {
	if d == "," {
		return ""
	}
	return d
}

// encodeArray renders items as the value of key (key == "" at document
// root) at the given depth, returning the encoded key (if any), header and
// body (the caller is responsible only for the first line's leading indent).
func (e *encoder) encodeArray(key string, items []Value, depth int, path string) (string, error) {
	switch classifyArray(items) {
	case shapeEmpty:
		return e.withKey(key, e.arrayHeader(0, nil)+":"), nil
	case shapeInline:
		return e.encodeInlineArray(key, items)
	case shapeTabular:
		return e.encodeTabularArray(key, items, depth, path)
	default:
		return e.encodeListArray(key, items, depth)
	}
}

func (e *encoder) withKey(key, rest string) string {
	if key == "" {
		return rest
	}
	return e.encodeKey(key) + rest
}

func (e *encoder) encodeInlineArray(key string, items []Value) (string, error) {
	var vals strings.Builder
	for i, it := range items {
		if i > 0 {
			vals.WriteString(e.opts.Delimiter)
		}
		vals.WriteString(renderPrimitive(it, e.opts.Delimiter))
	}
	return e.withKey(key, e.arrayHeader(len(items), nil)+": "+vals.String()), nil
}

func (e *encoder) encodeTabularArray(key string, items []Value, depth int, path string) (string, error) {
	fields := e.tabularFieldOrder(items, path)
	var b strings.Builder
	b.WriteString(e.withKey(key, e.arrayHeader(len(items), fields)+":"))

	rowIndent := e.indent(depth + 1)
	for _, it := range items {
		obj := it.AsObj()
		b.WriteByte('\n')
		b.WriteString(rowIndent)
		for i, f := range fields {
			if i > 0 {
				b.WriteString(e.opts.Delimiter)
			}
			v, _ := obj.Get(f)
			b.WriteString(renderPrimitive(v, e.opts.Delimiter))
		}
	}
	return b.String(), nil
}

func (e *encoder) encodeListArray(key string, items []Value, depth int) (string, error) {
	var b strings.Builder
	b.WriteString(e.withKey(key, e.arrayHeader(len(items), nil)+":"))

	itemIndent := e.indent(depth + 1)
	for _, it := range items {
		b.WriteByte('\n')
		rendered, err := e.encodeListItem(it, depth+1, itemIndent)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	return b.String(), nil
}

// encodeListItem renders one "- ..." element of a list array.
func (e *encoder) encodeListItem(v Value, depth int, itemIndent string) (string, error) {
	switch v.Kind() {
	case KindObj:
		obj := v.AsObj()
		if obj.Len() == 0 {
			return itemIndent + "-", nil
		}
		return e.encodeObjectAsListItem(obj, depth, itemIndent)
	case KindList:
		items := v.AsList()
		switch classifyArray(items) {
		case shapeEmpty:
			return itemIndent + "- " + e.arrayHeader(0, nil) + ":", nil
		case shapeInline:
			rendered, err := e.encodeInlineArray("", items)
			if err != nil {
				return "", err
			}
			return itemIndent + "- " + rendered, nil
		default:
			rendered, err := e.encodeArray("", items, depth, "")
			if err != nil {
				return "", err
			}
			lines := strings.SplitN(rendered, "\n", 2)
			out := itemIndent + "- " + lines[0]
			if len(lines) == 2 {
				out += "\n" + lines[1]
			}
			return out, nil
		}
	default:
		return itemIndent + "- " + renderPrimitive(v, e.opts.Delimiter), nil
	}
}

// encodeObjectAsListItem renders a non-empty object as a list element:
// the first field carries the "- " marker, subsequent fields are
// indented one step further with no marker (spec.md 4.D). Nested content
// of the first field sits one step deeper than those continuation fields.
// Fields are ordered lexicographically; KeyOrder does not apply here.
func (e *encoder) encodeObjectAsListItem(obj *Obj, depth int, itemIndent string) (string, error) {
	entries := e.foldEntries(obj, false)
	keys := make([]string, len(entries))
	for i, fe := range entries {
		keys[i] = fe.key
	}
	sort.Strings(keys)
	continuationIndent := e.indent(depth + 1)
	var b strings.Builder

	for i, k := range keys {
		v, _ := lookupEntry(entries, k)
		if i == 0 {
			rendered, err := e.encodeEntry(k, v, depth+1, itemIndent+"- ", k)
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
		} else {
			b.WriteByte('\n')
			rendered, err := e.encodeEntry(k, v, depth+1, continuationIndent, k)
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
		}
	}
	return b.String(), nil
}
