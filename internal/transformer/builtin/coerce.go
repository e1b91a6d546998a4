// Package builtin holds the small value coercions the normalizer relies on.
// Raw record values are dynamically typed (string cells, Undefined
// placeholders, nested records, or anything a caller fed back in), so every
// helper here is total: unknown shapes fall back rather than fail.
package builtin

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// LeadingInt parses the integer prefix of v: optional surrounding whitespace,
// an optional sign, then decimal digits up to the first non-digit. "36",
// " 36 ", "36.9" and "36years" all yield 36. Numbers are truncated toward
// zero. ok is false when no digits are found, the value overflows int, or v
// is not a string or number.
func LeadingInt(v any) (n int, ok bool) {
	switch t := v.(type) {
	case string:
		return leadingIntString(t)
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		if t > math.MaxInt || t < math.MinInt {
			return 0, false
		}
		return int(t), true
	case float32:
		return truncFloat(float64(t))
	case float64:
		return truncFloat(t)
	default:
		return 0, false
	}
}

func truncFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

func leadingIntString(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Stringify renders v the way string interpolation of a loosely typed value
// would: Undefined as "undefined", nil as "null", nested objects as
// "[object Object]".
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case records.Missing:
		return t.String()
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case records.Record, map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, len(t))
		for i, x := range t {
			parts[i] = Stringify(x)
		}
		return strings.Join(parts, ",")
	case interface{ String() string }:
		return t.String()
	default:
		return "[object Object]"
	}
}

// StringOrEmpty is Stringify with every falsy value (Undefined, nil, "",
// false, zero) mapped to "".
func StringOrEmpty(v any) string {
	switch t := v.(type) {
	case records.Missing, nil:
		return ""
	case bool:
		if !t {
			return ""
		}
	case int:
		if t == 0 {
			return ""
		}
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
	}
	return Stringify(v)
}
