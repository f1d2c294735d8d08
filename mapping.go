package arcanet

import (
	"encoding/json"
)

// Mapping is the universal bag used for profiles, per-score data,
// achievement payloads and lobby bodies. Values are scalars, fixed
// length integer arrays or nested sub-mappings. Typed getters return
// the supplied default when the key is absent or holds an incompatible
// type; Replace overwrites regardless of prior type.
type Mapping struct {
	m map[string]any
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{m: map[string]any{}}
}

func (m *Mapping) ensure() {
	if m.m == nil {
		m.m = map[string]any{}
	}
}

// Len returns the number of top-level keys.
func (m *Mapping) Len() int { return len(m.m) }

// Keys returns the top-level keys in unspecified order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	return keys
}

// Has reports whether the key is present with any type.
func (m *Mapping) Has(key string) bool {
	_, ok := m.m[key]
	return ok
}

func (m *Mapping) GetInt(key string, def int64) int64 {
	if v, ok := m.m[key].(int64); ok {
		return v
	}
	return def
}

func (m *Mapping) GetFloat(key string, def float64) float64 {
	if v, ok := m.m[key].(float64); ok {
		return v
	}
	return def
}

func (m *Mapping) GetBool(key string, def bool) bool {
	if v, ok := m.m[key].(bool); ok {
		return v
	}
	return def
}

func (m *Mapping) GetStr(key string, def string) string {
	if v, ok := m.m[key].(string); ok {
		return v
	}
	return def
}

func (m *Mapping) GetBytes(key string, def []byte) []byte {
	if v, ok := m.m[key].([]byte); ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out
	}
	return def
}

// GetIntArray always returns a slice of exactly length elements. A
// stored array of a different length is treated as absent.
func (m *Mapping) GetIntArray(key string, length int, def []int64) []int64 {
	if v, ok := m.m[key].([]int64); ok && len(v) == length {
		out := make([]int64, length)
		copy(out, v)
		return out
	}
	out := make([]int64, length)
	copy(out, def)
	return out
}

// GetMapping returns the nested mapping under key, or a fresh empty one
// when absent. The returned mapping is detached; write it back with
// ReplaceMapping to persist changes.
func (m *Mapping) GetMapping(key string) *Mapping {
	if v, ok := m.m[key].(*Mapping); ok {
		return v.Clone()
	}
	return NewMapping()
}

func (m *Mapping) ReplaceInt(key string, v int64) {
	m.ensure()
	m.m[key] = v
}

func (m *Mapping) ReplaceFloat(key string, v float64) {
	m.ensure()
	m.m[key] = v
}

func (m *Mapping) ReplaceBool(key string, v bool) {
	m.ensure()
	m.m[key] = v
}

func (m *Mapping) ReplaceStr(key string, v string) {
	m.ensure()
	m.m[key] = v
}

func (m *Mapping) ReplaceBytes(key string, v []byte) {
	m.ensure()
	out := make([]byte, len(v))
	copy(out, v)
	m.m[key] = out
}

func (m *Mapping) ReplaceIntArray(key string, length int, v []int64) {
	m.ensure()
	out := make([]int64, length)
	copy(out, v)
	m.m[key] = out
}

func (m *Mapping) ReplaceMapping(key string, v *Mapping) {
	m.ensure()
	m.m[key] = v.Clone()
}

// IncrementInt bumps an integer counter, treating absence as zero.
func (m *Mapping) IncrementInt(key string) {
	m.ReplaceInt(key, m.GetInt(key, 0)+1)
}

// Remove drops a key if present.
func (m *Mapping) Remove(key string) {
	delete(m.m, key)
}

// Clone deep-copies the mapping; mutations on the copy never reach the
// original.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	for k, v := range m.m {
		switch tv := v.(type) {
		case []byte:
			b := make([]byte, len(tv))
			copy(b, tv)
			out.m[k] = b
		case []int64:
			a := make([]int64, len(tv))
			copy(a, tv)
			out.m[k] = a
		case *Mapping:
			out.m[k] = tv.Clone()
		default:
			out.m[k] = v
		}
	}
	return out
}

// wireValue is the tagged persistence envelope for one mapping value.
// The tag keeps integers, floats, bytes, arrays and sub-mappings
// distinct across a JSON round trip.
type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

func (m *Mapping) MarshalJSON() ([]byte, error) {
	out := make(map[string]wireValue, len(m.m))
	for k, v := range m.m {
		var wv wireValue
		var err error
		switch tv := v.(type) {
		case int64:
			wv.T = "i"
			wv.V, err = json.Marshal(tv)
		case float64:
			wv.T = "f"
			wv.V, err = json.Marshal(tv)
		case bool:
			wv.T = "b"
			wv.V, err = json.Marshal(tv)
		case string:
			wv.T = "s"
			wv.V, err = json.Marshal(tv)
		case []byte:
			wv.T = "x"
			wv.V, err = json.Marshal(tv)
		case []int64:
			wv.T = "a"
			wv.V, err = json.Marshal(tv)
		case *Mapping:
			wv.T = "m"
			wv.V, err = json.Marshal(tv)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = wv
	}
	return json.Marshal(out)
}

func (m *Mapping) UnmarshalJSON(data []byte) error {
	var in map[string]wireValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.m = make(map[string]any, len(in))
	for k, wv := range in {
		switch wv.T {
		case "i":
			var v int64
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "f":
			var v float64
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "b":
			var v bool
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "s":
			var v string
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "x":
			var v []byte
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "a":
			var v []int64
			if err := json.Unmarshal(wv.V, &v); err != nil {
				return err
			}
			m.m[k] = v
		case "m":
			v := NewMapping()
			if err := json.Unmarshal(wv.V, v); err != nil {
				return err
			}
			m.m[k] = v
		}
	}
	return nil
}
