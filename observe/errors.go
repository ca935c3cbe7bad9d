package observe

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors for the observe package.
var (
	// ErrInvalidEvent is returned when an event name is not part of the
	// recognized vocabulary. Use errors.Is to match; the concrete error is
	// an *InvalidEventError carrying the offending name.
	ErrInvalidEvent = errors.New("invalid event type")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("callback cannot be nil")
)

// InvalidEventError reports an unrecognized event name passed to the
// subscription API, along with the accepted vocabulary.
type InvalidEventError struct {
	// Event is the offending event name as supplied by the caller.
	Event string

	// Valid is the accepted event vocabulary.
	Valid []string
}

// Error implements the error interface.
func (e *InvalidEventError) Error() string {
	return "invalid event type " + strconv.Quote(e.Event) + ", valid events: " + strings.Join(e.Valid, ", ")
}

// Is allows errors.Is to match InvalidEventError with ErrInvalidEvent.
func (e *InvalidEventError) Is(target error) bool {
	return target == ErrInvalidEvent
}
