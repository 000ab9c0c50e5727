package script

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// maxDepth bounds conversions between engine values and JSON values.
const maxDepth = 256

// maxExactInt is the largest integer a float64 represents exactly.
const maxExactInt = 1 << 53

// numberValue converts a float to int64 when it is integral and exact.
func numberValue(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int64(f)
	}
	return f
}

// numberFloat returns the float value of a JSON number type.
func numberFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		return parseNumber(string(x))
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// parseNumber parses a JSON number literal. Literals beyond the float64 range
// saturate to an infinity instead of failing.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// plain deep-copies v, replacing decoder number literals with int64 or
// float64 so engines without a JSON number type can do arithmetic on them.
func plain(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nesting exceeds %d levels", maxDepth)
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return i, nil
		}
		f, ok := parseNumber(string(x))
		if !ok {
			return nil, fmt.Errorf("invalid number %q", string(x))
		}
		return f, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v2 := range x {
			c, err := plain(v2, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, v2 := range x {
			c, err := plain(v2, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

// countKey renders a scalar as a multiset key.
func countKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Count builds a multiset from its arguments: lists count their elements,
// objects add their numeric values as counts, scalars count once.
func Count(args ...any) map[string]any {
	counts := map[string]int64{}
	order := []string{}
	add := func(k string, n int64) {
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k] += n
	}
	for _, arg := range args {
		switch x := arg.(type) {
		case nil:
		case []any:
			for _, el := range x {
				add(countKey(el), 1)
			}
		case map[string]any:
			for k, n := range x {
				if f, ok := numberFloat(n); ok {
					add(k, int64(f))
				} else {
					add(k, 1)
				}
			}
		default:
			add(countKey(x), 1)
		}
	}
	out := make(map[string]any, len(counts))
	for _, k := range order {
		out[k] = counts[k]
	}
	return out
}
