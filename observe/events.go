package observe

import (
	"strings"

	"github.com/dshills/statewatch/keypath"
)

// EventType identifies one of the four listener buckets held at each node of
// the listener tree. The bucket space is a closed enum kept apart from data
// keys, so reserved names can never collide with application data.
type EventType int

const (
	// EventAny fires for every add, update or delete at a node.
	EventAny EventType = iota

	// EventAdd fires when a value appears where none existed.
	EventAdd

	// EventUpdate fires when an existing value is replaced by a
	// non-identical one.
	EventUpdate

	// EventDelete fires when an existing value disappears.
	EventDelete

	// numEventTypes is the bucket count; keep it last.
	numEventTypes
)

// String returns the canonical event name.
func (e EventType) String() string {
	switch e {
	case EventAny:
		return "any"
	case EventAdd:
		return "add"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ValidEvents is the accepted event vocabulary, including aliases.
var ValidEvents = []string{"any", "add", "update", "swap", "delete", "remove"}

// ParseEventType resolves an event name to its EventType. Matching is
// case-insensitive; "swap" is an alias for update and "remove" an alias for
// delete. Unrecognized names return an *InvalidEventError.
func ParseEventType(name string) (EventType, error) {
	switch strings.ToLower(name) {
	case "any":
		return EventAny, nil
	case "add":
		return EventAdd, nil
	case "update", "swap":
		return EventUpdate, nil
	case "delete", "remove":
		return EventDelete, nil
	default:
		return 0, &InvalidEventError{Event: name, Valid: ValidEvents}
	}
}

// Change describes a single classified notification delivered to a listener.
type Change struct {
	// Event is the classification of this change. Listeners registered for
	// EventAny receive the concrete add/update/delete classification here.
	Event EventType

	// Path is the keypath of the node the listener is registered at.
	Path keypath.Keypath

	// New is the value at Path in the new root version, nil when HasNew is
	// false.
	New any

	// Old is the value at Path in the old root version, nil when HasOld is
	// false.
	Old any

	// HasNew reports whether Path exists in the new version. A nil New with
	// HasNew set means the stored value is a legitimate nil.
	HasNew bool

	// HasOld reports whether Path exists in the old version.
	HasOld bool
}

// Callback is a listener invoked synchronously during dispatch.
type Callback func(Change)
