package toon

import (
	"reflect"
	"testing"
)

func mustEncode(t *testing.T, v interface{}, opts *EncodeOptions) string {
	t.Helper()
	s, err := Encode(v, opts)
	if err != nil {
		t.Fatalf("Encode(%#v) failed: %v", v, err)
	}
	return s
}

func TestEncodeScenarios(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		opts *EncodeOptions
		want string
	}{
		{
			name: "flat object sorts keys",
			v:    map[string]interface{}{"name": "Alice", "age": 30},
			want: "age: 30\nname: Alice",
		},
		{
			name: "inline primitive array",
			v:    map[string]interface{}{"tags": []interface{}{"elixir", "toon"}},
			want: "tags[2]: elixir,toon",
		},
		{
			name: "tabular array of uniform objects",
			v: map[string]interface{}{"users": []interface{}{
				map[string]interface{}{"id": 1, "name": "A"},
				map[string]interface{}{"id": 2, "name": "B"},
			}},
			want: "users[2]{id,name}:\n  1,A\n  2,B",
		},
		{
			name: "safe key folding collapses single-key chains",
			v:    map[string]interface{}{"a": map[string]interface{}{"b": map[string]interface{}{"c": 1}}},
			opts: &EncodeOptions{KeyFolding: "safe"},
			want: "a.b.c: 1",
		},
		{
			name: "list array of heterogeneous arrays",
			v:    map[string]interface{}{"items": []interface{}{[]interface{}{}, []interface{}{42}, []interface{}{}}},
			want: "items[3]:\n  - [0]:\n  - [1]: 42\n  - [0]:",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEncode(t, tc.v, tc.opts)
			if got != tc.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tc.want)
			}
		})
	}
}

func TestDecodeExpandPaths(t *testing.T) {
	got, err := Decode("a.b: 1\na.c: 2", &DecodeOptions{ExpandPaths: "safe"})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj, ok := got.(*Obj)
	if !ok {
		t.Fatalf("expected *Obj, got %T", got)
	}
	a, ok := obj.Get("a")
	if !ok || a.Kind() != KindObj {
		t.Fatalf("expected nested object at \"a\", got %#v", a)
	}
	b, _ := a.AsObj().Get("b")
	c, _ := a.AsObj().Get("c")
	if b.AsInt() != 1 || c.AsInt() != 2 {
		t.Errorf("expected b=1 c=2, got b=%v c=%v", b, c)
	}
}

func TestDecodeExpandPathsNonStrictMergesConflicts(t *testing.T) {
	got, err := Decode("a: 1\na.b: 2", &DecodeOptions{Strict: false, ExpandPaths: "safe"})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj, ok := got.(*Obj)
	if !ok {
		t.Fatalf("expected *Obj, got %T", got)
	}
	a, ok := obj.Get("a")
	if !ok || a.Kind() != KindObj {
		t.Fatalf("expected the conflicting key to merge into a nested object, got %#v", a)
	}
	b, ok := a.AsObj().Get("b")
	if !ok || b.AsInt() != 2 {
		t.Errorf("expected a.b=2, got %#v", b)
	}
}

func TestDecodeExpandPathsStrictConflictIsFatal(t *testing.T) {
	_, err := Decode("a: 1\na.b: 2", &DecodeOptions{ExpandPaths: "safe"})
	if err == nil {
		t.Fatal("expected a fatal PathConflict under strict decoding")
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != PathConflict {
		t.Errorf("got %#v, want *DecodeError{Kind: PathConflict}", err)
	}
}

func TestEncodeTabularArrayHonorsKeyOrder(t *testing.T) {
	v := map[string]interface{}{"users": []interface{}{
		map[string]interface{}{"id": 1, "name": "A"},
		map[string]interface{}{"id": 2, "name": "B"},
	}}
	got := mustEncode(t, v, &EncodeOptions{KeyOrder: []string{"name", "id"}})
	want := "users[2]{name,id}:\n  A,1\n  B,2"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRoundTripObjectsAndArrays(t *testing.T) {
	values := []interface{}{
		map[string]interface{}{"name": "Alice", "age": 30, "active": true, "score": nil},
		map[string]interface{}{"tags": []interface{}{"a", "b", "c"}},
		map[string]interface{}{"users": []interface{}{
			map[string]interface{}{"id": 1, "name": "A"},
			map[string]interface{}{"id": 2, "name": "B"},
		}},
		map[string]interface{}{"mixed": []interface{}{1, "two", 3.5, nil, true}},
		[]interface{}{1, 2, 3},
		map[string]interface{}{"nested": map[string]interface{}{"deep": map[string]interface{}{"value": 1}}},
	}

	for i, v := range values {
		encoded := mustEncode(t, v, nil)
		decoded, err := Decode(encoded, nil)
		if err != nil {
			t.Fatalf("case %d: Decode(%q) failed: %v", i, encoded, err)
		}
		reencoded := mustEncode(t, decoded, nil)
		if reencoded != encoded {
			t.Errorf("case %d: round trip mismatch\nfirst:  %q\nsecond: %q", i, encoded, reencoded)
		}
	}
}

func TestPrimitiveNumberEdgeCases(t *testing.T) {
	tests := []struct {
		tok      string
		wantKind Kind
	}{
		{"0", KindInt},
		{"-0", KindInt},
		{"05", KindStr},
		{"-042", KindStr},
		{"3.0", KindInt},
		{"3e2", KindInt},
		{"42", KindInt},
		{"true", KindBool},
		{"null", KindNull},
	}
	for _, tc := range tests {
		v, err := parseToken(tc.tok, 1)
		if err != nil {
			t.Fatalf("parseToken(%q) failed: %v", tc.tok, err)
		}
		if v.Kind() != tc.wantKind {
			t.Errorf("parseToken(%q) kind = %v, want %v", tc.tok, v.Kind(), tc.wantKind)
		}
	}
}

func TestPrimitiveFloatNormalization(t *testing.T) {
	v := normalizeFloat(3.0)
	if v.Kind() != KindInt || v.AsInt() != 3 {
		t.Errorf("normalizeFloat(3.0) = %#v, want Int(3)", v)
	}
	v = normalizeFloat(-0.0)
	if v.Kind() != KindInt || v.AsInt() != 0 {
		t.Errorf("normalizeFloat(-0.0) = %#v, want Int(0)", v)
	}
	v = normalizeFloat(2.5)
	if v.Kind() != KindFloat {
		t.Errorf("normalizeFloat(2.5) = %#v, want Float", v)
	}
}

func TestArrayLengthMismatchIsFatal(t *testing.T) {
	_, err := Decode("tags[3]: a,b", nil)
	if err == nil {
		t.Fatal("expected an error for a declared length that does not match the inline value count")
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ArrayLengthMismatch {
		t.Errorf("got %#v, want *DecodeError{Kind: ArrayLengthMismatch}", err)
	}
}

func TestUnterminatedStringIsFatal(t *testing.T) {
	_, err := Decode(`name: "unterminated`, nil)
	if err == nil {
		t.Fatal("expected an error for an unterminated quoted string")
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != UnterminatedString {
		t.Errorf("got %#v, want *DecodeError{Kind: UnterminatedString}", err)
	}
}

func TestStrictIndentationViolation(t *testing.T) {
	_, err := Decode("a:\n\tb: 1", &DecodeOptions{Strict: true})
	if err == nil {
		t.Fatal("expected an error for a tab in the indent region under strict mode")
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != IndentationViolation {
		t.Errorf("got %#v, want *DecodeError{Kind: IndentationViolation}", err)
	}
}

func TestQuotedDelimiterInTabularRow(t *testing.T) {
	encoded := "rows[1]{note,n}:\n  \"a,b\",1"
	v, err := Decode(encoded, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj := v.(*Obj)
	rowsVal, _ := obj.Get("rows")
	rows := rowsVal.AsList()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	note, _ := rows[0].AsObj().Get("note")
	if note.AsStr() != "a,b" {
		t.Errorf("note = %q, want %q", note.AsStr(), "a,b")
	}
}

func TestDelimiterTabFallback(t *testing.T) {
	v, err := Decode("vals[2]: a\tb", nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj := v.(*Obj)
	valsVal, _ := obj.Get("vals")
	items := valsVal.AsList()
	if len(items) != 2 || items[0].AsStr() != "a" || items[1].AsStr() != "b" {
		t.Errorf("got %#v, want [a b]", items)
	}
}

func TestValidateEncodeOptionsDefaults(t *testing.T) {
	resolved, err := validateEncodeOptions(nil)
	if err != nil {
		t.Fatalf("validateEncodeOptions(nil) failed: %v", err)
	}
	if resolved.Indent != 2 || resolved.Delimiter != "," || resolved.KeyFolding != "off" {
		t.Errorf("unexpected defaults: %+v", resolved)
	}

	_, err = validateEncodeOptions(&EncodeOptions{Delimiter: ";"})
	if err == nil {
		t.Error("expected an error for an unsupported delimiter")
	}
}

func TestValidateDecodeOptionsDefaults(t *testing.T) {
	resolved, err := validateDecodeOptions(nil)
	if err != nil {
		t.Fatalf("validateDecodeOptions(nil) failed: %v", err)
	}
	if !resolved.Strict || resolved.IndentSize != 2 || resolved.ExpandPaths != "off" {
		t.Errorf("unexpected defaults: %+v", resolved)
	}
}

func TestAdapterRegistryAppliesBeforeReflection(t *testing.T) {
	type point struct{ X, Y int }

	reg := NewAdapterRegistry()
	reg.Register(point{}, func(v interface{}) (interface{}, error) {
		p := v.(point)
		return map[string]interface{}{"x": p.X, "y": p.Y}, nil
	})

	got := mustEncode(t, point{X: 1, Y: 2}, &EncodeOptions{Adapters: reg})
	want := "x: 1\ny: 2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type recordingHook struct {
	started, stopped int
}

func (h *recordingHook) OnStart(Event)            { h.started++ }
func (h *recordingHook) OnStop(Event)             { h.stopped++ }
func (h *recordingHook) OnException(Event, error) {}

func TestTelemetryHookInvocation(t *testing.T) {
	hook := &recordingHook{}
	_ = mustEncode(t, map[string]interface{}{"a": 1}, &EncodeOptions{Hook: hook})
	if hook.started != 1 || hook.stopped != 1 {
		t.Errorf("hook counts = %+v, want started=1 stopped=1", hook)
	}
}

func TestObjOrderingIsPreserved(t *testing.T) {
	o := NewObj()
	o.Set("z", Int(1))
	o.Set("a", Int(2))
	o.Set("m", Int(3))
	if !reflect.DeepEqual(o.Keys(), []string{"z", "a", "m"}) {
		t.Errorf("Keys() = %v, want insertion order", o.Keys())
	}
	o.Set("a", Int(99))
	if !reflect.DeepEqual(o.Keys(), []string{"z", "a", "m"}) {
		t.Errorf("re-setting an existing key should not move it: %v", o.Keys())
	}
}

func TestEmptyDocumentDecodesToEmptyObject(t *testing.T) {
	v, err := Decode("", nil)
	if err != nil {
		t.Fatalf("Decode(\"\") failed: %v", err)
	}
	obj, ok := v.(*Obj)
	if !ok || obj.Len() != 0 {
		t.Errorf("Decode(\"\") = %#v, want an empty *Obj", v)
	}
}
