package observe

import "github.com/dshills/statewatch/keypath"

// pendingEvent is a listener invocation collected during the traversal
// phase and delivered after the listener tree lock is released.
type pendingEvent struct {
	reg    *Registration
	change Change
}

// dispatcher collects the listener invocations for a single notify pass.
// Collection runs under the listener tree's read lock; invocation happens
// afterwards, so callbacks are free to register and remove listeners.
type dispatcher struct {
	strategy Strategy
	seen     map[string]struct{}
	queue    []pendingEvent
	visited  int
}

func newDispatcher(strategy Strategy) *dispatcher {
	return &dispatcher{
		strategy: strategy,
		seen:     make(map[string]struct{}),
	}
}

// run walks kp from the roots of the listener tree and both data versions in
// lock-step, collecting ancestor listeners along the way, then diffs the
// subtree pair reached at the end of the walk.
//
// The walk stops early, collecting nothing further, as soon as the listener
// subtree for the next element is absent or the two data subtrees become
// identical.
func (d *dispatcher) run(node *listenerNode, kp keypath.Keypath, newV, oldV any, propagate bool) {
	if node == nil {
		return
	}

	prefix := keypath.Keypath(nil)
	for _, key := range kp {
		if identical(newV, oldV) {
			return
		}
		if propagate {
			d.collect(node, prefix, newV, oldV)
		}
		node = node.children[key]
		if node == nil {
			return
		}
		newV = childValue(newV, key)
		oldV = childValue(oldV, key)
		prefix = prefix.Child(key)
	}

	d.diff(node, prefix, newV, oldV, propagate)
}

// collect classifies the (new, old) pair at node and queues the node's
// matching listeners: the specific bucket first, then the any bucket. Each
// registration is queued at most once per dispatch.
func (d *dispatcher) collect(node *listenerNode, path keypath.Keypath, newV, oldV any) {
	event, ok := classify(newV, oldV)
	if !ok {
		return
	}

	change := Change{
		Event:  event,
		Path:   path.Clone(),
		HasNew: present(newV),
		HasOld: present(oldV),
	}
	if change.HasNew {
		change.New = newV
	}
	if change.HasOld {
		change.Old = oldV
	}

	d.enqueue(node.buckets[event], change)
	d.enqueue(node.buckets[EventAny], change)
}

func (d *dispatcher) enqueue(bucket map[string]*Registration, change Change) {
	for id, reg := range bucket {
		if _, dup := d.seen[id]; dup {
			continue
		}
		d.seen[id] = struct{}{}
		d.queue = append(d.queue, pendingEvent{reg: reg, change: change})
	}
}

// diff recursively compares the data versions below node, collecting every
// descendant listener whose value changed. Recursion is depth-first and
// unordered across sibling keys.
//
// At each step it chooses between iterating the data entries and iterating
// the listener children based on relative size. The choice affects traversal
// cost only; both branches visit the same logical key set, so the collected
// listeners are identical either way.
func (d *dispatcher) diff(node *listenerNode, path keypath.Keypath, newV, oldV any, propagate bool) {
	if node == nil || identical(newV, oldV) {
		return
	}
	d.visited++

	d.collect(node, path, newV, oldV)

	nested := len(node.children)
	if !propagate || nested == 0 {
		return
	}

	newC, newIsC := asContainer(newV)
	oldC, oldIsC := asContainer(oldV)

	switch {
	case !newIsC && !oldIsC:
		// Scalars or absent on both sides: nothing below to compare.
		return

	case newIsC != oldIsC:
		// A value transitioned between scalar and container. Every key on
		// the container side pairs with the absent marker on the other.
		side := newC
		if oldIsC {
			side = oldC
		}
		if d.dataDriven(side.Len(), nested) {
			side.Range(func(key string, v any) bool {
				child := node.children[key]
				if child == nil {
					return true
				}
				if newIsC {
					d.diff(child, path.Child(key), v, absent, propagate)
				} else {
					d.diff(child, path.Child(key), absent, v, propagate)
				}
				return true
			})
		} else {
			for key, child := range node.children {
				v, ok := side.Get(key)
				if !ok {
					continue
				}
				if newIsC {
					d.diff(child, path.Child(key), v, absent, propagate)
				} else {
					d.diff(child, path.Child(key), absent, v, propagate)
				}
			}
		}

	default:
		// Both sides are containers.
		newSize, oldSize := newC.Len(), oldC.Len()
		if newSize == 0 && oldSize == 0 {
			return
		}
		if d.listenerDriven(nested, newSize+oldSize) {
			for key, child := range node.children {
				d.diff(child, path.Child(key), entry(newC, key), entry(oldC, key), propagate)
			}
		} else {
			// Two passes over the data visit the key union exactly once per
			// key without materializing it: new entries paired with their
			// old counterparts, then old entries missing from new.
			newC.Range(func(key string, nv any) bool {
				if child := node.children[key]; child != nil {
					d.diff(child, path.Child(key), nv, entry(oldC, key), propagate)
				}
				return true
			})
			oldC.Range(func(key string, ov any) bool {
				if _, inNew := newC.Get(key); inNew {
					return true
				}
				if child := node.children[key]; child != nil {
					d.diff(child, path.Child(key), absent, ov, propagate)
				}
				return true
			})
		}
	}
}

// entry returns the value for key in c, or the absent marker.
func entry(c Container, key string) any {
	v, ok := c.Get(key)
	if !ok {
		return absent
	}
	return v
}

// dataDriven decides the asymmetric-case traversal: iterate the container
// when it is no larger than the listener fan-out.
func (d *dispatcher) dataDriven(treeSize, nested int) bool {
	switch d.strategy {
	case StrategyData:
		return true
	case StrategyListeners:
		return false
	default:
		return treeSize <= nested
	}
}

// listenerDriven decides the symmetric-case traversal: iterate the listener
// children when there are no more of them than combined data entries. The
// threshold is an approximation, not a cost-exact model; it never changes
// which listeners fire.
func (d *dispatcher) listenerDriven(nested, combinedSize int) bool {
	switch d.strategy {
	case StrategyListeners:
		return true
	case StrategyData:
		return false
	default:
		return nested <= combinedSize
	}
}
