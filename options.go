package toon

import "fmt"

// EncodeOptions configures Encode. A nil *EncodeOptions passed to Encode
// is equivalent to &EncodeOptions{} — every field takes its documented
// default.
type EncodeOptions struct {
	// Indent is the number of spaces per indentation step. Default 2.
	Indent int

	// Delimiter separates inline and tabular values. Must be ",", "\t" or
	// "|". Default ",".
	Delimiter string

	// LengthMarker is an optional literal prefix placed inside a length
	// header, e.g. "#" renders "[#3]". Default "" (absent).
	LengthMarker string

	// KeyOrder is either []string (applied to the document root's keys,
	// and to the fields of any tabular array it covers exactly) or
	// map[string][]string keyed by a dotted path prefix. Nil means
	// lexicographic key order everywhere.
	KeyOrder interface{}

	// KeyFolding is "off" (default) or "safe".
	KeyFolding string

	// FlattenDepth bounds the number of segments a folded chain may
	// collapse. 0 means unbounded.
	FlattenDepth int

	// Hook receives encode.start/stop/exception telemetry events. Nil
	// uses the process-wide default hook.
	Hook Hook

	// Adapters is consulted by the normalizer before the reflection
	// fallback. Nil uses DefaultAdapters.
	Adapters *AdapterRegistry
}

// DecodeOptions configures Decode. A nil *DecodeOptions passed to Decode
// is equivalent to &DecodeOptions{} — every field takes its documented
// default.
type DecodeOptions struct {
	// Keys selects the key representation policy. "strings" (default),
	// "atoms" and "atoms-existing" are accepted; this Go port has no
	// symbol type, so all three behave identically.
	Keys string

	// Strict enables indentation discipline: tabs in the indent region
	// and blank lines inside array bodies become fatal, and indents must
	// be exact multiples of IndentSize. Default true.
	Strict bool

	// IndentSize is the required indent step in strict mode. Default 2.
	IndentSize int

	// ExpandPaths is "off" (default) or "safe": when "safe", unquoted
	// dotted keys are split into nested objects after an object is parsed.
	ExpandPaths string

	// Hook receives decode.start/stop/exception telemetry events. Nil
	// uses the process-wide default hook.
	Hook Hook
}

func validateEncodeOptions(opts *EncodeOptions) (*EncodeOptions, error) {
	out := EncodeOptions{}
	if opts != nil {
		out = *opts
	}

	if out.Indent == 0 {
		out.Indent = 2
	}
	if out.Indent < 0 {
		return nil, newEncodeError(InvalidOptions, "indent must be positive", out.Indent)
	}

	if out.Delimiter == "" {
		out.Delimiter = ","
	}
	switch out.Delimiter {
	case ",", "\t", "|":
	default:
		return nil, newEncodeError(InvalidOptions, fmt.Sprintf("delimiter must be one of \",\", \"\\t\", \"|\", got %q", out.Delimiter), out.Delimiter)
	}

	switch out.KeyFolding {
	case "", "off":
		out.KeyFolding = "off"
	case "safe":
	default:
		return nil, newEncodeError(InvalidOptions, fmt.Sprintf("key_folding must be \"off\" or \"safe\", got %q", out.KeyFolding), out.KeyFolding)
	}

	if out.FlattenDepth < 0 {
		return nil, newEncodeError(InvalidOptions, "flatten_depth must not be negative", out.FlattenDepth)
	}

	switch ko := out.KeyOrder.(type) {
	case nil:
	case []string:
	case map[string][]string:
	default:
		return nil, newEncodeError(InvalidOptions, fmt.Sprintf("key_order must be []string or map[string][]string, got %T", ko), out.KeyOrder)
	}

	if out.Adapters == nil {
		out.Adapters = DefaultAdapters
	}

	return &out, nil
}

func validateDecodeOptions(opts *DecodeOptions) (*DecodeOptions, error) {
	out := DecodeOptions{Strict: true}
	if opts != nil {
		out = *opts
	}

	switch out.Keys {
	case "":
		out.Keys = "strings"
	case "strings", "atoms", "atoms-existing":
	default:
		return nil, newDecodeError(DecodeInvalidOptions, fmt.Sprintf("keys must be \"strings\", \"atoms\" or \"atoms-existing\", got %q", out.Keys), 0, "")
	}

	if out.IndentSize == 0 {
		out.IndentSize = 2
	}
	if out.IndentSize < 0 {
		return nil, newDecodeError(DecodeInvalidOptions, "indent_size must be positive", 0, "")
	}

	switch out.ExpandPaths {
	case "":
		out.ExpandPaths = "off"
	case "off", "safe":
	default:
		return nil, newDecodeError(DecodeInvalidOptions, fmt.Sprintf("expand_paths must be \"off\" or \"safe\", got %q", out.ExpandPaths), 0, "")
	}

	return &out, nil
}

// keyOrderFor resolves the key order to use at path (dotted, root is
// ""), restricted to keys that actually exist in present. Returns nil
// when no configured order applies and the caller should fall back to
// lexicographic order.
func keyOrderFor(opts *EncodeOptions, path string, present map[string]bool) []string {
	switch ko := opts.KeyOrder.(type) {
	case map[string][]string:
		if order, ok := ko[path]; ok {
			return restrictToPresent(order, present)
		}
		return nil
	case []string:
		if path != "" {
			return nil
		}
		if !coversExactly(ko, present) {
			return nil
		}
		return ko
	default:
		return nil
	}
}

// tabularKeyOrder resolves the field order for a tabular array's header
// and rows: opts.KeyOrder is consulted only when it covers fields
// exactly (spec.md 4.D, "from opts.key_order when it is supplied and
// covers every field exactly; otherwise lexicographic"), checked either
// as a plain list or, keyed by the array's own dotted path, as a map.
func tabularKeyOrder(opts *EncodeOptions, path string, fields []string) []string {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	switch ko := opts.KeyOrder.(type) {
	case []string:
		if coversExactly(ko, present) {
			return ko
		}
	case map[string][]string:
		if order, ok := ko[path]; ok && coversExactly(order, present) {
			return order
		}
	}
	return nil
}

func restrictToPresent(order []string, present map[string]bool) []string {
	out := make([]string, 0, len(order))
	for _, k := range order {
		if present[k] {
			out = append(out, k)
		}
	}
	return out
}

func coversExactly(order []string, present map[string]bool) bool {
	if len(order) != len(present) {
		return false
	}
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if !present[k] || seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}
