package observe

import (
	"github.com/google/uuid"

	"github.com/dshills/statewatch/keypath"
)

// Registration is the handle returned by On, Once and Observe. Go functions
// have no usable identity, so the handle's token stands in for callback
// identity: deduplication and removal key on it.
type Registration struct {
	id    string
	event EventType
	path  keypath.Keypath
	cb    Callback
	owner *Structure
}

// newRegistration builds a registration bound to the given structure.
// The callback is attached afterwards so once-wrappers can close over the
// registration itself.
func newRegistration(owner *Structure, event EventType, kp keypath.Keypath) *Registration {
	return &Registration{
		id:    uuid.NewString(),
		event: event,
		path:  kp.Clone(),
		owner: owner,
	}
}

// ID returns the unique registration token.
func (r *Registration) ID() string {
	return r.id
}

// Event returns the event bucket the registration lives in.
func (r *Registration) Event() EventType {
	return r.event
}

// Path returns the keypath the registration is anchored to.
func (r *Registration) Path() keypath.Keypath {
	return r.path.Clone()
}

// Off unsubscribes the registration. It is idempotent: the first call
// removes the registration and returns true, later calls return false.
func (r *Registration) Off() bool {
	if r == nil || r.owner == nil {
		return false
	}
	return r.owner.removeRegistration(r)
}
