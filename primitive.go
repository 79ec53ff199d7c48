package toon

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingZeroRegex = regexp.MustCompile(`^-?0[0-9]+$`)

// renderPrimitive renders a Null/Bool/Int/Float/Str Value as its bare or
// quoted TOON token.
func renderPrimitive(v Value, delimiter string) string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return formatFloat(v.AsFloat())
	case KindStr:
		s := v.AsStr()
		if needsQuoteValue(s, delimiter) {
			return quote(s)
		}
		return s
	default:
		return ""
	}
}

// formatFloat renders f in the shortest round-trip form, dropping a
// trailing ".0" the way integer-valued floats are specified to render.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Go's 'g' format may use exponent notation with e+NN; normalize the
	// plain-decimal case to drop a redundant ".0".
	if !strings.ContainsAny(s, "eE") && strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// parseToken parses a single bare or quoted token per the primitive
// grammar (spec.md 4.C): literals, quoted strings, the "0"/"-0" special
// case, the leading-zero string-preservation rule, then numeric, then
// bare string.
func parseToken(tok string, line int) (Value, error) {
	switch tok {
	case "null":
		return Null(), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if strings.HasPrefix(tok, `"`) {
		if len(tok) < 2 || tok[len(tok)-1] != '"' {
			return Value{}, newDecodeError(UnterminatedString, "unterminated string", line, tok)
		}
		inner := tok[1 : len(tok)-1]
		s, err := unescapeString(inner)
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	}

	if tok == "0" || tok == "-0" {
		return Int(0), nil
	}

	if leadingZeroRegex.MatchString(tok) {
		return Str(tok), nil
	}

	if strings.ContainsAny(tok, ".eE") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return normalizeFloat(f), nil
		}
	} else if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int(i), nil
	} else if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return normalizeFloat(f), nil
	}

	return Str(strings.TrimSpace(tok)), nil
}
