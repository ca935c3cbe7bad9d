package observe

import "sync/atomic"

// structureStats holds the live counters for a Structure.
type structureStats struct {
	dispatches   atomic.Uint64
	deliveries   atomic.Uint64
	nodesVisited atomic.Uint64
	registered   atomic.Uint64
	removed      atomic.Uint64
	active       atomic.Int64
}

// Stats is a point-in-time snapshot of dispatch activity.
type Stats struct {
	// Dispatches is the number of notify passes that ran.
	Dispatches uint64

	// Deliveries is the total number of listener invocations.
	Deliveries uint64

	// NodesVisited is the total number of listener tree nodes the diff
	// phase examined.
	NodesVisited uint64

	// Registered and Removed count subscription lifecycle operations.
	Registered uint64
	Removed    uint64

	// ActiveListeners is the current number of live registrations.
	ActiveListeners int64
}

// Stats returns a snapshot of the structure's counters. All zeros when
// collection is disabled.
func (s *Structure) Stats() Stats {
	return Stats{
		Dispatches:      s.stats.dispatches.Load(),
		Deliveries:      s.stats.deliveries.Load(),
		NodesVisited:    s.stats.nodesVisited.Load(),
		Registered:      s.stats.registered.Load(),
		Removed:         s.stats.removed.Load(),
		ActiveListeners: s.stats.active.Load(),
	}
}
