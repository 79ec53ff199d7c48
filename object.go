package toon

import (
	"sort"
	"strings"
)

// foldedEntry is one (possibly dot-folded) key/value pair awaiting
// emission from an object.
type foldedEntry struct {
	key   string
	value Value
}

// foldEntries applies safe key folding (spec.md 4.E) to obj's entries.
// isRoot enables the literal-dotted-key collision guard, which only
// applies at the document root.
func (e *encoder) foldEntries(obj *Obj, isRoot bool) []foldedEntry {
	out := make([]foldedEntry, 0, obj.Len())
	if e.opts.KeyFolding != "safe" {
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			out = append(out, foldedEntry{k, v})
		}
		return out
	}

	var literalDotted map[string]bool
	if isRoot {
		literalDotted = make(map[string]bool)
		for _, k := range obj.Keys() {
			if strings.Contains(k, ".") {
				literalDotted[k] = true
			}
		}
	}

	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if needsQuoteKey(k) {
			out = append(out, foldedEntry{k, v})
			continue
		}
		foldedKey, foldedVal, segs := foldChain(k, v, e.opts.FlattenDepth)
		if isRoot && segs > 0 && literalDotted[foldedKey] {
			out = append(out, foldedEntry{k, v})
			continue
		}
		out = append(out, foldedEntry{foldedKey, foldedVal})
	}
	return out
}

// foldChain walks single-key object chains starting at (key, v),
// collapsing up to maxDepth additional segments (0 = unbounded). It
// stops as soon as the current value is not a single-key object, a
// segment fails the identifier check, or the depth budget is spent.
func foldChain(key string, v Value, maxDepth int) (string, Value, int) {
	segs := 0
	cur, curVal := key, v
	for maxDepth == 0 || segs < maxDepth {
		if curVal.Kind() != KindObj || curVal.AsObj().Len() != 1 {
			break
		}
		inner := curVal.AsObj()
		innerKey := inner.Keys()[0]
		if !identifierRegex.MatchString(innerKey) {
			break
		}
		innerVal, _ := inner.Get(innerKey)
		cur = cur + "." + innerKey
		curVal = innerVal
		segs++
	}
	return cur, curVal, segs
}

// orderedKeys resolves the emission order for entries, given the
// configured key_order (restricted to the path prefix) or lexicographic
// fallback.
func (e *encoder) orderedKeys(entries []foldedEntry, path string) []string {
	present := make(map[string]bool, len(entries))
	for _, fe := range entries {
		present[fe.key] = true
	}
	if order := keyOrderFor(e.opts, path, present); order != nil {
		return order
	}
	keys := make([]string, len(entries))
	for i, fe := range entries {
		keys[i] = fe.key
	}
	sort.Strings(keys)
	return keys
}

func lookupEntry(entries []foldedEntry, key string) (Value, bool) {
	for _, fe := range entries {
		if fe.key == key {
			return fe.value, true
		}
	}
	return Value{}, false
}

// encodeObject renders a non-root or root object's entries at depth,
// prefixed by the current indent on every line.
func (e *encoder) encodeObject(obj *Obj, depth int, path string, isRoot bool) (string, error) {
	if obj.Len() == 0 {
		return "", nil
	}
	entries := e.foldEntries(obj, isRoot)
	keys := e.orderedKeys(entries, path)
	indent := e.indent(depth)

	var b strings.Builder
	for i, k := range keys {
		v, _ := lookupEntry(entries, k)
		if i > 0 {
			b.WriteByte('\n')
		}
		rendered, err := e.encodeEntry(k, v, depth, indent, childPath(path, k))
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	return b.String(), nil
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// encodeEntry renders one "<prefix><key>: <value>" line (or its
// multi-line array/object form) with prefix standing in for the
// indentation the caller has already computed — either a plain indent
// string or an indent string with a trailing "- " list marker.
func (e *encoder) encodeEntry(key string, v Value, depth int, prefix string, path string) (string, error) {
	switch v.Kind() {
	case KindList:
		rendered, err := e.encodeArray(key, v.AsList(), depth, path)
		if err != nil {
			return "", err
		}
		return prefix + rendered, nil
	case KindObj:
		obj := v.AsObj()
		if obj.Len() == 0 {
			return prefix + e.encodeKey(key) + ":", nil
		}
		nested, err := e.encodeObject(obj, depth+1, path, false)
		if err != nil {
			return "", err
		}
		return prefix + e.encodeKey(key) + ":\n" + nested, nil
	default:
		return prefix + e.encodeKey(key) + ": " + renderPrimitive(v, e.opts.Delimiter), nil
	}
}
