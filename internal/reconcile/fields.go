package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is a loosely typed upstream payload. Providers disagree on field
// names and numeric encodings (float, int, quoted string), so every access
// goes through the coercion helpers below.
type RawRecord map[string]any

// Number resolves the first present, coercible numeric field from the name
// chain, else 0. Exported for collaborators reading ad-hoc payload fields
// outside the canonical mapping.
func (r RawRecord) Number(names ...string) float64 {
	return r.number(names...)
}

// number resolves the first present, coercible field from the given name
// chain. Absent or non-numeric values fall through to the next name; an
// exhausted chain yields 0.
func (r RawRecord) number(names ...string) float64 {
	for _, name := range names {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return f
		}
	}
	return 0
}

// integer is number truncated to int.
func (r RawRecord) integer(names ...string) int {
	return int(r.number(names...))
}

// text resolves the first present non-empty string from the name chain,
// else "".
func (r RawRecord) text(names ...string) string {
	for _, name := range names {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// list resolves the first present string-list from the name chain,
// else an empty slice. JSON decoding yields []any, so both forms are handled.
func (r RawRecord) list(names ...string) []string {
	for _, name := range names {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}
		switch vv := v.(type) {
		case []string:
			if len(vv) > 0 {
				out := make([]string, len(vv))
				copy(out, vv)
				return out
			}
		case []any:
			var out []string
			for _, item := range vv {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []string{}
}

// coerceFloat converts the numeric shapes seen in provider payloads.
func coerceFloat(v any) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case json.Number:
		f, err := vv.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
