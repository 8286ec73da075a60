package mapper

import (
	"encoding/json"
	"math"
	"strconv"
)

// probe returns the first defined value among the candidate keys.
func probe(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// probeString probes for a string-valued field. Non-string scalars are
// formatted; absent or nil yields "".
func probeString(raw map[string]any, keys []string) string {
	v, ok := probe(raw, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	}
	return ""
}

// probeNumber probes for a numeric field and coerces it.
func probeNumber(raw map[string]any, keys []string) *float64 {
	v, ok := probe(raw, keys)
	if !ok {
		return nil
	}
	return Number(v)
}

// probeMillis probes for a timestamp field and normalizes it to milliseconds.
func probeMillis(raw map[string]any, keys []string) *int64 {
	v, ok := probe(raw, keys)
	if !ok {
		return nil
	}
	return Millis(v)
}

// Number coerces a raw JSON value to a float. Empty string, null, and
// missing all map to nil ("value absent"); unparsable strings do too.
func Number(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		if n == "" {
			return nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// Millis normalizes a timestamp of unknown unit to milliseconds since epoch.
// Magnitude classification: <1e12 seconds, <1e15 milliseconds,
// <1e18 microseconds, otherwise nanoseconds.
func Millis(v any) *int64 {
	n := Number(v)
	if n == nil {
		return nil
	}
	f := *n
	var ms int64
	switch {
	case f < 1e12:
		ms = int64(math.Floor(f * 1000))
	case f < 1e15:
		ms = int64(math.Floor(f))
	case f < 1e18:
		ms = int64(math.Floor(f / 1e3))
	default:
		ms = int64(math.Floor(f / 1e6))
	}
	return &ms
}

// asMap returns raw as an object, or nil when it is anything else.
func asMap(raw any) map[string]any {
	m, _ := raw.(map[string]any)
	return m
}

// asSlice returns raw as an array, or nil when it is anything else.
func asSlice(raw any) []any {
	s, _ := raw.([]any)
	return s
}
