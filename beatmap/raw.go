package beatmap

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// Raw is one schema-specific JSON object as decoded by encoding/json.
// Every reader falls back to the supplied default when the key is missing
// or holds a value of the wrong kind.
type Raw map[string]any

func DecodeRaw(r io.Reader) (Raw, error) {
	var raw Raw
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = Raw{}
	}
	return raw, nil
}

func (r Raw) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Raw) Float(key string, def float64) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func (r Raw) Int(key string, def int) int {
	f := r.Float(key, math.NaN())
	// NaN and infinities fail both comparisons
	if !(f >= math.MinInt && f < math.MaxInt) {
		return def
	}
	return int(f)
}

func (r Raw) String(key string, def string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return def
	}
}

// Object returns the nested object under key, or false.
func (r Raw) Object(key string) (Raw, bool) {
	switch v := r[key].(type) {
	case map[string]any:
		return Raw(v), true
	case Raw:
		return v, true
	default:
		return nil, false
	}
}

// List returns the objects found in the array under key. Elements that are
// not objects are skipped. The bool reports whether key held an array.
func (r Raw) List(key string) ([]Raw, bool) {
	arr, ok := r[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]Raw, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Raw(m))
		}
	}
	return out, true
}

// merge returns a copy of r with the keys of extra added on top.
func (r Raw) merge(extra Raw) Raw {
	out := make(Raw, len(r)+len(extra))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
