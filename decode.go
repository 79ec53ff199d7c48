package toon

import (
	"strconv"
	"strings"
	"time"
)

// line is one physical line of input after indent/content splitting.
type line struct {
	indent  int
	content string
	num     int
	blank   bool
}

// decoder carries the resolved options and the line table through the
// mutually recursive object/array parsing pass.
type decoder struct {
	opts  *DecodeOptions
	lines []line
}

// splitLines turns raw text into the decoder's line table, stripping a
// trailing run of blank lines. Indentation is measured in leading spaces
// only; a leading tab is recorded as part of the content so strict-mode
// validation can reject it with the offending line available.
func splitLines(text string) []line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	for len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	out := make([]line, len(raw))
	for i, s := range raw {
		n := 0
		for n < len(s) && s[n] == ' ' {
			n++
		}
		content := s[n:]
		out[i] = line{
			indent:  n,
			content: content,
			num:     i + 1,
			blank:   strings.TrimSpace(s) == "",
		}
	}
	return out
}

func (d *decoder) checkIndent(ln line) error {
	if !d.opts.Strict {
		return nil
	}
	if strings.HasPrefix(ln.content, "\t") {
		return newDecodeError(IndentationViolation, "tab in indent region", ln.num, ln.content)
	}
	if ln.indent%d.opts.IndentSize != 0 {
		return newDecodeError(IndentationViolation, "indent is not a multiple of indent_size", ln.num, ln.content)
	}
	return nil
}

// Decode parses TOON text back into the canonical value tree (a *Obj, a
// []interface{}, or a bare Go primitive at the root).
func Decode(text string, opts *DecodeOptions) (interface{}, error) {
	resolved, err := validateDecodeOptions(opts)
	if err != nil {
		return nil, err
	}
	hook := resolveHook(resolved.Hook)
	id := newEventID()
	start := time.Now()
	hook.OnStart(Event{ID: id, Op: "decode", DataType: "string", Size: len(text)})

	val, err := decodeImpl(text, resolved)

	duration := time.Since(start)
	if err != nil {
		hook.OnException(Event{ID: id, Op: "decode", Duration: duration}, err)
		return nil, err
	}
	hook.OnStop(Event{ID: id, Op: "decode", Duration: duration})
	return val.Interface(), nil
}

func decodeImpl(text string, opts *DecodeOptions) (Value, error) {
	d := &decoder{opts: opts, lines: splitLines(text)}

	i := 0
	for i < len(d.lines) && d.lines[i].blank {
		i++
	}
	if i >= len(d.lines) {
		return ObjValue(NewObj()), nil
	}

	first := d.lines[i]
	if err := d.checkIndent(first); err != nil {
		return Value{}, err
	}

	if strings.HasPrefix(first.content, "[") {
		val, _, err := d.decodeArrayAt(i, first.content)
		return val, err
	}

	if key, _, rest, ok := splitLeadingKey(first.content); ok && (strings.HasPrefix(rest, "[") || strings.HasPrefix(rest, ":")) {
		_ = key
		obj, _, _, err := d.decodeObjectEntries(i, first.indent)
		if err != nil {
			return Value{}, err
		}
		return ObjValue(obj), nil
	}

	rem := i + 1
	for rem < len(d.lines) && d.lines[rem].blank {
		rem++
	}
	if rem < len(d.lines) {
		return Value{}, newDecodeError(ParseFailure, "trailing content after root primitive", d.lines[rem].num, d.lines[rem].content)
	}
	return parseToken(strings.TrimSpace(first.content), first.num)
}

// decodeObjectEntries parses consecutive entries at exactly indentD,
// starting at d.lines[start], until a line at a shallower indent or end
// of input. It returns the built object, the set of keys that arrived
// quoted in the source (exempt from path expansion), and the index of
// the first unconsumed line.
func (d *decoder) decodeObjectEntries(start, indentD int) (*Obj, map[string]bool, int, error) {
	obj := NewObj()
	quoted := make(map[string]bool)
	i := start

	for i < len(d.lines) {
		ln := d.lines[i]
		if ln.blank {
			i++
			continue
		}
		if ln.indent < indentD {
			break
		}
		if ln.indent > indentD {
			return nil, nil, i, newDecodeError(ParseFailure, "unexpected indentation", ln.num, ln.content)
		}
		if err := d.checkIndent(ln); err != nil {
			return nil, nil, i, err
		}

		key, isQuoted, rest, ok := splitLeadingKey(ln.content)
		if !ok {
			return nil, nil, i, newDecodeError(MalformedHeader, "expected a key", ln.num, ln.content)
		}

		switch {
		case strings.HasPrefix(rest, "["):
			val, consumed, err := d.decodeArrayAt(i, rest)
			if err != nil {
				return nil, nil, i, err
			}
			obj.Set(key, val)
			if isQuoted {
				quoted[key] = true
			}
			i += consumed

		case strings.HasPrefix(rest, ":"):
			valueStr := strings.TrimPrefix(rest, ":")
			valueStr = strings.TrimPrefix(valueStr, " ")
			if strings.TrimSpace(valueStr) == "" {
				j := i + 1
				for j < len(d.lines) && d.lines[j].blank {
					j++
				}
				if j < len(d.lines) && d.lines[j].indent > indentD {
					nested, nestedQuoted, next, err := d.decodeObjectEntries(j, d.lines[j].indent)
					if err != nil {
						return nil, nil, i, err
					}
					nestedVal := ObjValue(nested)
					if d.opts.ExpandPaths == "safe" {
						expanded, err := d.expandPaths(nested, nestedQuoted, d.lines[j].num)
						if err != nil {
							return nil, nil, i, err
						}
						nestedVal = ObjValue(expanded)
					}
					obj.Set(key, nestedVal)
					if isQuoted {
						quoted[key] = true
					}
					i = next
				} else {
					obj.Set(key, ObjValue(NewObj()))
					if isQuoted {
						quoted[key] = true
					}
					i++
				}
			} else {
				val, err := parseToken(strings.TrimSpace(valueStr), ln.num)
				if err != nil {
					return nil, nil, i, err
				}
				obj.Set(key, val)
				if isQuoted {
					quoted[key] = true
				}
				i++
			}

		default:
			return nil, nil, i, newDecodeError(MalformedHeader, "entry is neither \"key: value\" nor an array header", ln.num, ln.content)
		}
	}

	if d.opts.ExpandPaths == "safe" {
		expanded, err := d.expandPaths(obj, quoted, d.lines[start].num)
		if err != nil {
			return nil, nil, i, err
		}
		return expanded, quoted, i, nil
	}
	return obj, quoted, i, nil
}

// headerBody is a parsed "[N<d>]({fields})?:" portion, with key already
// stripped by the caller.
type headerBody struct {
	n         int
	delim     string
	fields    []string
	hasFields bool
	tail      string
}

// parseHeaderBody parses s starting exactly at '['.
func parseHeaderBody(s string) (*headerBody, bool) {
	if len(s) == 0 || s[0] != '[' {
		return nil, false
	}
	k := 1
	digitsStart := k
	for k < len(s) && s[k] >= '0' && s[k] <= '9' {
		k++
	}
	if k == digitsStart {
		return nil, false
	}
	n, err := strconv.Atoi(s[digitsStart:k])
	if err != nil {
		return nil, false
	}

	delim := ","
	if k < len(s) && (s[k] == '\t' || s[k] == '|') {
		delim = string(s[k])
		k++
	}
	if k >= len(s) || s[k] != ']' {
		return nil, false
	}
	k++

	var fields []string
	hasFields := false
	if k < len(s) && s[k] == '{' {
		end := strings.IndexByte(s[k:], '}')
		if end < 0 {
			return nil, false
		}
		inner := s[k+1 : k+end]
		hasFields = true
		if strings.TrimSpace(inner) != "" {
			for _, f := range splitRespectingQuotes(inner, delim) {
				uf, err := unquoteKey(strings.TrimSpace(f))
				if err != nil {
					return nil, false
				}
				fields = append(fields, uf)
			}
		}
		k += end + 1
	}

	if k >= len(s) || s[k] != ':' {
		return nil, false
	}
	k++
	return &headerBody{n: n, delim: delim, fields: fields, hasFields: hasFields, tail: s[k:]}, true
}

// effectiveDelimiter applies the tab-fallback safety rule: a declared ','
// delimiter is reinterpreted as tab when the row content has no comma but
// does have a tab (spec.md 4.F delimiter disambiguation).
func effectiveDelimiter(declared, content string) string {
	if declared == "," && strings.Contains(content, "\t") && !strings.Contains(content, ",") {
		return "\t"
	}
	return declared
}

// decodeArrayAt parses an array header appearing in rest (which begins
// exactly at '[') at line index headerIdx. It returns the decoded value
// and the number of lines consumed, including the header line itself.
func (d *decoder) decodeArrayAt(headerIdx int, rest string) (Value, int, error) {
	ln := d.lines[headerIdx]
	hb, ok := parseHeaderBody(rest)
	if !ok {
		return Value{}, 0, newDecodeError(MalformedHeader, "malformed array header", ln.num, ln.content)
	}

	if hb.hasFields {
		rows, consumed, err := d.decodeTabularRows(headerIdx+1, ln.indent, hb.n, hb.fields, hb.delim)
		if err != nil {
			return Value{}, 0, err
		}
		return List(rows), 1 + consumed, nil
	}

	if strings.TrimSpace(hb.tail) != "" {
		valStr := strings.TrimPrefix(hb.tail, " ")
		delim := effectiveDelimiter(hb.delim, valStr)
		items, err := d.decodeInlineValues(valStr, delim, ln.num)
		if err != nil {
			return Value{}, 0, err
		}
		if len(items) != hb.n {
			return Value{}, 0, newDecodeError(ArrayLengthMismatch, "inline array length does not match header", ln.num, ln.content)
		}
		return List(items), 1, nil
	}

	items, consumed, err := d.decodeListItems(headerIdx+1, ln.indent, hb.n)
	if err != nil {
		return Value{}, 0, err
	}
	return List(items), 1 + consumed, nil
}

func (d *decoder) decodeInlineValues(s, delim string, lineNum int) ([]Value, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := splitRespectingQuotes(s, delim)
	out := make([]Value, len(parts))
	for i, p := range parts {
		v, err := parseToken(strings.TrimSpace(p), lineNum)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *decoder) decodeTabularRows(start, parentIndent, n int, fields []string, delim string) ([]Value, int, error) {
	rowIndent := -1
	var rows []Value
	i := start

	for i < len(d.lines) {
		ln := d.lines[i]
		if ln.blank {
			j := i + 1
			for j < len(d.lines) && d.lines[j].blank {
				j++
			}
			if j >= len(d.lines) || d.lines[j].indent <= parentIndent {
				break
			}
			if d.opts.Strict {
				return nil, 0, newDecodeError(BlankLineInArray, "blank line inside array body", ln.num, "")
			}
			i++
			continue
		}
		if ln.indent <= parentIndent {
			break
		}
		if rowIndent == -1 {
			if err := d.checkIndent(ln); err != nil {
				return nil, 0, err
			}
			rowIndent = ln.indent
		}
		if ln.indent != rowIndent {
			break
		}

		rowDelim := effectiveDelimiter(delim, ln.content)
		vals := splitRespectingQuotes(ln.content, rowDelim)
		if len(vals) != len(fields) {
			return nil, 0, newDecodeError(RowWidthMismatch, "tabular row width does not match field list", ln.num, ln.content)
		}
		row := NewObj()
		for k, f := range fields {
			v, err := parseToken(strings.TrimSpace(vals[k]), ln.num)
			if err != nil {
				return nil, 0, err
			}
			row.Set(f, v)
		}
		rows = append(rows, ObjValue(row))
		i++
	}

	if len(rows) != n {
		return nil, 0, newDecodeError(ArrayLengthMismatch, "tabular array length does not match header", d.lines[start-1].num, d.lines[start-1].content)
	}
	return rows, i - start, nil
}

func (d *decoder) decodeListItems(start, parentIndent, n int) ([]Value, int, error) {
	itemIndent := -1
	var items []Value
	i := start

	for i < len(d.lines) {
		ln := d.lines[i]
		if ln.blank {
			j := i + 1
			for j < len(d.lines) && d.lines[j].blank {
				j++
			}
			if j >= len(d.lines) || d.lines[j].indent <= parentIndent {
				break
			}
			if d.opts.Strict {
				return nil, 0, newDecodeError(BlankLineInArray, "blank line inside array body", ln.num, "")
			}
			i++
			continue
		}
		if ln.indent <= parentIndent {
			break
		}
		if itemIndent == -1 {
			if err := d.checkIndent(ln); err != nil {
				return nil, 0, err
			}
			itemIndent = ln.indent
		}
		if ln.indent != itemIndent {
			break
		}
		if !strings.HasPrefix(ln.content, "-") {
			return nil, 0, newDecodeError(MalformedHeader, "list item does not start with \"-\"", ln.num, ln.content)
		}

		item, consumed, err := d.decodeListItem(i, itemIndent)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
		i += consumed
	}

	if len(items) != n {
		return nil, 0, newDecodeError(ArrayLengthMismatch, "list array length does not match header", d.lines[start-1].num, d.lines[start-1].content)
	}
	return items, i - start, nil
}

// decodeListItem parses one "- ..." element at d.lines[idx], whose own
// marker sits at itemIndent, returning the element and the number of
// lines it consumed (including the marker line).
func (d *decoder) decodeListItem(idx, itemIndent int) (Value, int, error) {
	ln := d.lines[idx]
	rest := strings.TrimPrefix(ln.content, "-")
	rest = strings.TrimPrefix(rest, " ")

	if strings.TrimSpace(rest) == "" {
		return ObjValue(NewObj()), 1, nil
	}

	if strings.HasPrefix(rest, "[") {
		val, consumed, err := d.decodeArrayAt(idx, rest)
		return val, consumed, err
	}

	key, isQuoted, afterKey, ok := splitLeadingKey(rest)
	if !ok || !(strings.HasPrefix(afterKey, "[") || strings.HasPrefix(afterKey, ":")) {
		val, err := parseToken(strings.TrimSpace(rest), ln.num)
		if err != nil {
			return Value{}, 0, err
		}
		return val, 1, nil
	}

	obj := NewObj()
	quoted := make(map[string]bool)
	consumed := 1

	switch {
	case strings.HasPrefix(afterKey, "["):
		val, arrConsumed, err := d.decodeArrayAt(idx, afterKey)
		if err != nil {
			return Value{}, 0, err
		}
		obj.Set(key, val)
		if isQuoted {
			quoted[key] = true
		}
		consumed = arrConsumed

	case strings.HasPrefix(afterKey, ":"):
		valueStr := strings.TrimPrefix(afterKey, ":")
		valueStr = strings.TrimPrefix(valueStr, " ")
		if strings.TrimSpace(valueStr) == "" {
			j := idx + 1
			for j < len(d.lines) && d.lines[j].blank {
				j++
			}
			if j < len(d.lines) && d.lines[j].indent > itemIndent {
				nested, _, next, err := d.decodeObjectEntries(j, d.lines[j].indent)
				if err != nil {
					return Value{}, 0, err
				}
				obj.Set(key, ObjValue(nested))
				if isQuoted {
					quoted[key] = true
				}
				consumed = next - idx
			} else {
				obj.Set(key, ObjValue(NewObj()))
				if isQuoted {
					quoted[key] = true
				}
			}
		} else {
			val, err := parseToken(strings.TrimSpace(valueStr), ln.num)
			if err != nil {
				return Value{}, 0, err
			}
			obj.Set(key, val)
			if isQuoted {
				quoted[key] = true
			}
		}

	default:
		return Value{}, 0, newDecodeError(MalformedHeader, "malformed list item field", ln.num, ln.content)
	}

	// Remaining fields of the same object are continuation lines indented
	// deeper than itemIndent (all at the indent of the first such line),
	// carrying no "-" marker.
	contIndent := -1
	i := idx + consumed
continuationFields:
	for i < len(d.lines) {
		next := d.lines[i]
		if next.blank {
			i++
			continue
		}
		if next.indent <= itemIndent {
			break
		}
		if contIndent == -1 {
			contIndent = next.indent
		}
		if next.indent != contIndent || strings.HasPrefix(next.content, "-") {
			break
		}

		fkey, fquoted, frest, ok := splitLeadingKey(next.content)
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(frest, "["):
			val, arrConsumed, err := d.decodeArrayAt(i, frest)
			if err != nil {
				return Value{}, 0, err
			}
			obj.Set(fkey, val)
			if fquoted {
				quoted[fkey] = true
			}
			i += arrConsumed

		case strings.HasPrefix(frest, ":"):
			valueStr := strings.TrimPrefix(strings.TrimPrefix(frest, ":"), " ")
			if strings.TrimSpace(valueStr) == "" {
				j := i + 1
				for j < len(d.lines) && d.lines[j].blank {
					j++
				}
				if j < len(d.lines) && d.lines[j].indent > contIndent {
					nested, _, nextI, err := d.decodeObjectEntries(j, d.lines[j].indent)
					if err != nil {
						return Value{}, 0, err
					}
					obj.Set(fkey, ObjValue(nested))
					if fquoted {
						quoted[fkey] = true
					}
					i = nextI
				} else {
					obj.Set(fkey, ObjValue(NewObj()))
					if fquoted {
						quoted[fkey] = true
					}
					i++
				}
			} else {
				val, err := parseToken(strings.TrimSpace(valueStr), next.num)
				if err != nil {
					return Value{}, 0, err
				}
				obj.Set(fkey, val)
				if fquoted {
					quoted[fkey] = true
				}
				i++
			}

		default:
			break continuationFields
		}
	}
	consumed = i - idx

	result := obj
	if d.opts.ExpandPaths == "safe" {
		expanded, err := d.expandPaths(obj, quoted, ln.num)
		if err != nil {
			return Value{}, 0, err
		}
		result = expanded
	}
	return ObjValue(result), consumed, nil
}

// splitLeadingKey extracts the key at the start of content: either a
// quoted string or a run of characters up to the first '[' or ':'.
func splitLeadingKey(content string) (key string, quoted bool, rest string, ok bool) {
	if content == "" {
		return "", false, "", false
	}
	if content[0] == '"' {
		end := findQuoteEnd(content, 1)
		if end < 0 {
			return "", false, "", false
		}
		inner := content[1:end]
		s, err := unescapeString(inner)
		if err != nil {
			return "", false, "", false
		}
		return s, true, content[end+1:], true
	}
	i := 0
	for i < len(content) {
		c := content[i]
		if c == '[' || c == ':' {
			break
		}
		i++
	}
	if i == 0 {
		return "", false, "", false
	}
	return content[:i], false, content[i:], true
}

func unquoteKey(s string) (string, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return unescapeString(s[1 : len(s)-1])
	}
	return s, nil
}

func findQuoteEnd(s string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			return i
		}
	}
	return -1
}

// splitRespectingQuotes splits s on delim, treating any "..." region
// (with backslash escapes) as opaque so a delimiter character inside a
// quoted value does not split the token.
func splitRespectingQuotes(s, delim string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	dl := len(delim)

	for i := 0; i < len(s); {
		c := s[i]
		if inQuote {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				cur.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				inQuote = false
			}
			i++
			continue
		}
		if c == '"' {
			inQuote = true
			cur.WriteByte(c)
			i++
			continue
		}
		if dl > 0 && i+dl <= len(s) && s[i:i+dl] == delim {
			out = append(out, cur.String())
			cur.Reset()
			i += dl
			continue
		}
		cur.WriteByte(c)
		i++
	}
	out = append(out, cur.String())
	return out
}

// expandPaths implements "expand_paths": "safe" (spec.md 4.B inverse):
// every unquoted key containing a '.' followed by identifier segments is
// split into nested objects. Under strict decoding, a key that collides
// with an existing non-object value, or with another expansion, is a
// fatal PathConflict; under non-strict decoding the later value wins,
// deep-merging when both sides are objects (spec.md 4.F).
func (d *decoder) expandPaths(obj *Obj, quoted map[string]bool, lineNum int) (*Obj, error) {
	hasDotted := false
	for _, k := range obj.Keys() {
		if !quoted[k] && strings.Contains(k, ".") && identifierRegex.MatchString(k) {
			hasDotted = true
			break
		}
	}
	if !hasDotted {
		return obj, nil
	}

	out := NewObj()
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if quoted[k] || !strings.Contains(k, ".") || !identifierRegex.MatchString(k) {
			if existing, present := out.Get(k); present {
				if !d.opts.Strict && existing.Kind() == KindObj && v.Kind() == KindObj {
					deepMergeObj(existing.AsObj(), v.AsObj())
					continue
				}
				if d.opts.Strict {
					return nil, newDecodeError(PathConflict, "key collides with an expanded path", lineNum, k)
				}
			}
			out.Set(k, v)
			continue
		}
		segs := strings.Split(k, ".")
		if err := d.setPath(out, segs, v, lineNum); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) setPath(root *Obj, segs []string, v Value, lineNum int) error {
	cur := root
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]
		existing, present := cur.Get(seg)
		if !present {
			child := NewObj()
			cur.Set(seg, ObjValue(child))
			cur = child
			continue
		}
		if existing.Kind() != KindObj {
			if !d.opts.Strict {
				child := NewObj()
				cur.Set(seg, ObjValue(child))
				cur = child
				continue
			}
			return newDecodeError(PathConflict, "path segment collides with a non-object value", lineNum, seg)
		}
		cur = existing.AsObj()
	}
	last := segs[len(segs)-1]
	if existing, present := cur.Get(last); present {
		if d.opts.Strict {
			return newDecodeError(PathConflict, "duplicate leaf in expanded path", lineNum, last)
		}
		if existing.Kind() == KindObj && v.Kind() == KindObj {
			deepMergeObj(existing.AsObj(), v.AsObj())
			return nil
		}
		cur.Set(last, v)
		return nil
	}
	cur.Set(last, v)
	return nil
}

// deepMergeObj merges src into dst in place, recursing when a key holds
// an object on both sides and otherwise letting src's value win.
func deepMergeObj(dst, src *Obj) {
	for _, k := range src.Keys() {
		sv, _ := src.Get(k)
		if dv, present := dst.Get(k); present && dv.Kind() == KindObj && sv.Kind() == KindObj {
			deepMergeObj(dv.AsObj(), sv.AsObj())
			continue
		}
		dst.Set(k, sv)
	}
}

// MustDecode is the raise-on-error façade: it panics with the underlying
// *DecodeError instead of returning one.
func MustDecode(text string, opts *DecodeOptions) interface{} {
	val, err := Decode(text, opts)
	if err != nil {
		panic(err)
	}
	return val
}
