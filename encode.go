package toon

import (
	"reflect"
	"strings"
	"time"
)

// encoder carries the resolved options and per-call caches through the
// mutually recursive object/array encoding pass. It holds no state that
// survives a single Encode call.
type encoder struct {
	opts        *EncodeOptions
	indentCache []string
}

func newEncoder(opts *EncodeOptions) *encoder {
	return &encoder{opts: opts, indentCache: []string{""}}
}

func (e *encoder) indent(depth int) string {
	for len(e.indentCache) <= depth {
		level := len(e.indentCache)
		e.indentCache = append(e.indentCache, strings.Repeat(" ", level*e.opts.Indent))
	}
	return e.indentCache[depth]
}

func (e *encoder) encodeKey(key string) string {
	if needsQuoteKey(key) {
		return quote(key)
	}
	return key
}

// encodeRoot renders v as a complete document: an object, an array, or a
// single primitive (spec.md 3, "root" forms).
func (e *encoder) encodeRoot(v Value) (string, error) {
	switch v.Kind() {
	case KindObj:
		return e.encodeObject(v.AsObj(), 0, "", true)
	case KindList:
		return e.encodeArray("", v.AsList(), 0, "")
	default:
		return renderPrimitive(v, e.opts.Delimiter), nil
	}
}

// Encode normalizes v and renders it as TOON text.
func Encode(v interface{}, opts *EncodeOptions) (string, error) {
	resolved, err := validateEncodeOptions(opts)
	if err != nil {
		return "", err
	}
	hook := resolveHook(resolved.Hook)
	id := newEventID()
	start := time.Now()
	typeName := goTypeName(v)
	hook.OnStart(Event{ID: id, Op: "encode", DataType: typeName})

	text, err := encodeImpl(v, resolved)

	duration := time.Since(start)
	if err != nil {
		hook.OnException(Event{ID: id, Op: "encode", DataType: typeName, Duration: duration}, err)
		return "", err
	}
	hook.OnStop(Event{ID: id, Op: "encode", DataType: typeName, Size: len(text), Duration: duration})
	return text, nil
}

func encodeImpl(v interface{}, opts *EncodeOptions) (string, error) {
	normalized, err := normalize(v, opts.Adapters)
	if err != nil {
		return "", err
	}
	enc := newEncoder(opts)
	return enc.encodeRoot(normalized)
}

func goTypeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// MustEncode is the raise-on-error façade: it panics with the underlying
// *EncodeError instead of returning one.
func MustEncode(v interface{}, opts *EncodeOptions) string {
	text, err := Encode(v, opts)
	if err != nil {
		panic(err)
	}
	return text
}
