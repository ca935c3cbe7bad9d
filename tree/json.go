package tree

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// FromJSON builds a nested Map from a JSON document.
//
// Objects become *Map containers, arrays become containers keyed by the
// element index in decimal form ("0", "1", ...), and scalars map to Go
// string, float64, bool or nil. The top-level value must be an object or
// an array.
func FromJSON(data []byte) (*Map, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("tree: invalid JSON document")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() && !root.IsArray() {
		return nil, fmt.Errorf("tree: top-level JSON value must be an object or array, got %s", root.Type)
	}
	v := fromResult(root)
	return v.(*Map), nil
}

// fromResult converts a gjson value to a stored tree value.
func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		m := New()
		r.ForEach(func(key, value gjson.Result) bool {
			m = m.Set(key.String(), fromResult(value))
			return true
		})
		return m
	case r.IsArray():
		m := New()
		i := 0
		r.ForEach(func(_, value gjson.Result) bool {
			m = m.Set(strconv.Itoa(i), fromResult(value))
			i++
			return true
		})
		return m
	case r.Type == gjson.String:
		return r.String()
	case r.Type == gjson.Number:
		return r.Float()
	case r.Type == gjson.True:
		return true
	case r.Type == gjson.False:
		return false
	default:
		return nil
	}
}

// ToJSON renders the map as a JSON object. Nested *Map values are rendered
// as objects; index-keyed containers produced by FromJSON are not folded
// back into arrays.
func ToJSON(m *Map) ([]byte, error) {
	return json.Marshal(export(m))
}

// export converts a Map to plain map[string]any for encoding.
func export(m *Map) map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		if child, ok := v.(*Map); ok {
			out[k] = export(child)
		} else {
			out[k] = v
		}
		return true
	})
	return out
}
