package tree

import (
	"reflect"

	"github.com/benbjohnson/immutable"
)

// Map is an immutable string-keyed map with structural sharing.
// The zero value is not usable; create instances with New.
//
// Values may be scalars, nil, or nested *Map containers. Values stored in a
// Map should be comparable; uncomparable values are accepted but always
// compare as changed between versions.
type Map struct {
	m *immutable.Map[string, any]
}

// New returns an empty Map.
func New() *Map {
	return &Map{m: immutable.NewMap[string, any](nil)}
}

// Get returns the value stored under key and whether the key exists.
func (m *Map) Get(key string) (any, bool) {
	return m.m.Get(key)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return m.m.Len()
}

// Range calls fn for each entry in unspecified order until fn returns false.
func (m *Map) Range(fn func(key string, value any) bool) {
	itr := m.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}

// Set returns a version of the map with key bound to value.
// If key already holds an identical value, the receiver itself is returned,
// preserving version identity.
func (m *Map) Set(key string, value any) *Map {
	if existing, ok := m.m.Get(key); ok && sameValue(existing, value) {
		return m
	}
	return &Map{m: m.m.Set(key, value)}
}

// Delete returns a version of the map without key.
// If key is absent, the receiver itself is returned.
func (m *Map) Delete(key string) *Map {
	if _, ok := m.m.Get(key); !ok {
		return m
	}
	return &Map{m: m.m.Delete(key)}
}

// Keys returns the keys of the map in unspecified order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.m.Len())
	m.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// GetIn navigates path from m and returns the value found and whether the
// full path exists. An empty path returns m itself.
func GetIn(m *Map, path []string) (any, bool) {
	if m == nil {
		return nil, false
	}
	var current any = m
	for _, key := range path {
		container, ok := current.(*Map)
		if !ok {
			return nil, false
		}
		current, ok = container.Get(key)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetIn returns a version of m with the value at path replaced. Intermediate
// containers are created where the path crosses missing keys or scalar
// values; existing sibling subtrees are shared with the original version.
//
// An empty path replaces the root: the value must then be a *Map, anything
// else is a programming error and panics.
func SetIn(m *Map, path []string, value any) *Map {
	if len(path) == 0 {
		root, ok := value.(*Map)
		if !ok {
			panic("tree: root value must be *tree.Map")
		}
		return root
	}
	if m == nil {
		m = New()
	}

	key := path[0]
	if len(path) == 1 {
		return m.Set(key, value)
	}

	child, _ := m.Get(key)
	childMap, ok := child.(*Map)
	if !ok {
		childMap = New()
	}
	return m.Set(key, SetIn(childMap, path[1:], value))
}

// DeleteIn returns a version of m with the entry at path removed.
// If any segment of the path is missing, the receiver is returned unchanged.
// An empty path is a no-op.
func DeleteIn(m *Map, path []string) *Map {
	if m == nil || len(path) == 0 {
		return m
	}

	key := path[0]
	if len(path) == 1 {
		return m.Delete(key)
	}

	child, ok := m.Get(key)
	if !ok {
		return m
	}
	childMap, ok := child.(*Map)
	if !ok {
		return m
	}
	return m.Set(key, DeleteIn(childMap, path[1:]))
}

// sameValue reports whether two stored values are identical: pointer
// equality for *Map containers, == for comparable scalars. Uncomparable
// values never compare equal.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ma, ok := a.(*Map); ok {
		mb, ok := b.(*Map)
		return ok && ma == mb
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
