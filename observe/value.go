package observe

import "reflect"

// Container is the read surface the dispatcher needs from a persistent tree
// value. *tree.Map implements it; any keyed container with version identity
// (same pointer means same version) can back a Structure.
type Container interface {
	// Get returns the value stored under key and whether the key exists.
	Get(key string) (any, bool)

	// Len returns the number of entries.
	Len() int

	// Range calls fn for each entry in unspecified order until fn returns
	// false.
	Range(fn func(key string, value any) bool)
}

// absentType is the process-wide marker for "this key does not exist at this
// version". It is distinct from every legitimate value, including nil, and
// never escapes to callbacks.
type absentType struct{}

var absent any = absentType{}

// present reports whether v is a real value rather than the absent marker.
func present(v any) bool {
	return v != absent
}

// asContainer reports whether v is a nested container.
func asContainer(v any) (Container, bool) {
	if v == nil || !present(v) {
		return nil, false
	}
	c, ok := v.(Container)
	return c, ok
}

// childValue resolves key within v, returning the absent marker when v is
// not a container or does not hold key.
func childValue(v any, key string) any {
	c, ok := asContainer(v)
	if !ok {
		return absent
	}
	child, ok := c.Get(key)
	if !ok {
		return absent
	}
	return child
}

// identical reports whether two values are the same version: pointer
// equality for containers, == for comparable scalars. Uncomparable values
// never compare identical, so they are always treated as changed.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// classify derives the event for a (new, old) value pair. It reports false
// when no event applies: both values absent, or both present and identical.
func classify(newV, oldV any) (EventType, bool) {
	hasNew := present(newV)
	hasOld := present(oldV)

	switch {
	case hasNew && hasOld:
		if identical(newV, oldV) {
			return 0, false
		}
		return EventUpdate, true
	case hasNew:
		return EventAdd, true
	case hasOld:
		return EventDelete, true
	default:
		return 0, false
	}
}
