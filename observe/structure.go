package observe

import (
	"sync"

	"github.com/dshills/statewatch/keypath"
	"github.com/dshills/statewatch/tree"
)

// Structure owns one observed state tree: the current root version, the
// listener tree shared by every cursor, and the dispatch options. Create one
// per independent state tree; cursors derived from it are cheap handles.
type Structure struct {
	mu   sync.RWMutex
	root *tree.Map

	listeners *listenerTree

	propagate bool
	strategy  Strategy

	statsEnabled bool
	stats        structureStats
}

// New creates a Structure observing the given initial root. A nil initial
// root starts from an empty tree.
func New(initial *tree.Map, opts ...Option) *Structure {
	if initial == nil {
		initial = tree.New()
	}
	s := &Structure{
		root:         initial,
		listeners:    newListenerTree(),
		propagate:    true,
		strategy:     StrategyAuto,
		statsEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromJSON creates a Structure whose initial root is built from a JSON
// document.
func FromJSON(data []byte, opts ...Option) (*Structure, error) {
	root, err := tree.FromJSON(data)
	if err != nil {
		return nil, err
	}
	return New(root, opts...), nil
}

// Root returns the current root version.
func (s *Structure) Root() *tree.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// SetRoot replaces the root with a new version and dispatches the change
// from the top of the tree. Replacing the root with the identical version
// fires nothing.
func (s *Structure) SetRoot(newRoot *tree.Map) {
	if newRoot == nil {
		newRoot = tree.New()
	}
	s.mu.Lock()
	oldRoot := s.root
	s.root = newRoot
	propagate := s.propagate
	s.mu.Unlock()

	s.Notify(nil, newRoot, oldRoot, propagate)
}

// Cursor returns a handle bound to the given keypath.
func (s *Structure) Cursor(path ...string) *Cursor {
	return &Cursor{s: s, path: keypath.New(path...)}
}

// Notify is the update hook: given the changed keypath and the old and new
// root versions, it determines which listeners fire and invokes each at most
// once, synchronously, on the caller's goroutine. External update mechanisms
// that replace the root themselves call this directly.
//
// With propagate false only listeners registered at exactly kp may fire; no
// ancestor or descendant fan-out occurs.
func (s *Structure) Notify(kp keypath.Keypath, newRoot, oldRoot *tree.Map, propagate bool) {
	var newV, oldV any = absent, absent
	if newRoot != nil {
		newV = newRoot
	}
	if oldRoot != nil {
		oldV = oldRoot
	}
	if identical(newV, oldV) {
		return
	}

	s.mu.RLock()
	strategy := s.strategy
	statsEnabled := s.statsEnabled
	s.mu.RUnlock()

	d := newDispatcher(strategy)

	s.listeners.mu.RLock()
	d.run(s.listeners.root, kp, newV, oldV, propagate)
	s.listeners.mu.RUnlock()

	if statsEnabled {
		s.stats.dispatches.Add(1)
		s.stats.deliveries.Add(uint64(len(d.queue)))
		s.stats.nodesVisited.Add(uint64(d.visited))
	}

	for _, p := range d.queue {
		p.reg.cb(p.change)
	}
}

// commit applies a mutation to the root under lock, then dispatches the
// change anchored at kp.
func (s *Structure) commit(kp keypath.Keypath, mutate func(*tree.Map) *tree.Map) {
	s.mu.Lock()
	oldRoot := s.root
	newRoot := mutate(oldRoot)
	s.root = newRoot
	propagate := s.propagate
	s.mu.Unlock()

	if newRoot == oldRoot {
		return
	}
	s.Notify(kp, newRoot, oldRoot, propagate)
}

// register validates and installs a listener registration.
func (s *Structure) register(event string, kp keypath.Keypath, cb Callback, once bool) (*Registration, error) {
	et, err := ParseEventType(event)
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, ErrNilCallback
	}

	reg := newRegistration(s, et, kp)
	if once {
		inner := cb
		reg.cb = func(change Change) {
			reg.Off()
			inner(change)
		}
	} else {
		reg.cb = cb
	}

	s.listeners.insert(reg)
	if s.statsOn() {
		s.stats.registered.Add(1)
		s.stats.active.Add(1)
	}
	return reg, nil
}

// statsOn reports whether statistics collection is enabled.
func (s *Structure) statsOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsEnabled
}

// removeRegistration unregisters reg, reporting whether it was present.
func (s *Structure) removeRegistration(reg *Registration) bool {
	if reg == nil {
		return false
	}
	removed := s.listeners.remove(reg)
	if removed && s.statsOn() {
		s.stats.removed.Add(1)
		s.stats.active.Add(-1)
	}
	return removed
}

// ListenerCount returns the number of live registrations across the whole
// structure.
func (s *Structure) ListenerCount() int {
	return s.listeners.size()
}

// Cursor is a lightweight handle bound to a keypath within a Structure. It
// holds no data of its own: reads and writes resolve against the shared root
// version, and subscriptions land in the shared listener tree, visible to
// every cursor over the same Structure.
type Cursor struct {
	s    *Structure
	path keypath.Keypath
}

// Path returns the keypath the cursor is bound to.
func (c *Cursor) Path() keypath.Keypath {
	return c.path.Clone()
}

// Cursor derives a sub-cursor bound to a deeper keypath.
func (c *Cursor) Cursor(path ...string) *Cursor {
	return &Cursor{s: c.s, path: c.path.Child(path...)}
}

// Get returns the value at the cursor's keypath in the current root version
// and whether the full path exists.
func (c *Cursor) Get() (any, bool) {
	return tree.GetIn(c.s.Root(), c.path)
}

// Deref returns the value at the cursor's keypath, or nil if absent.
func (c *Cursor) Deref() any {
	v, ok := c.Get()
	if !ok {
		return nil
	}
	return v
}

// Set replaces the value at the cursor's keypath, creating intermediate
// containers as needed, and dispatches the change. Setting an identical
// value fires nothing.
func (c *Cursor) Set(value any) {
	c.s.commit(c.path, func(root *tree.Map) *tree.Map {
		return tree.SetIn(root, c.path, value)
	})
}

// SetKey sets one key directly below the cursor's keypath.
func (c *Cursor) SetKey(key string, value any) {
	c.Cursor(key).Set(value)
}

// Update replaces the value at the cursor's keypath with fn(current).
// fn receives nil when the path is absent.
func (c *Cursor) Update(fn func(current any) any) {
	c.s.commit(c.path, func(root *tree.Map) *tree.Map {
		current, _ := tree.GetIn(root, c.path)
		return tree.SetIn(root, c.path, fn(current))
	})
}

// Delete removes one key directly below the cursor's keypath and dispatches
// the change. Deleting a missing key fires nothing.
func (c *Cursor) Delete(key string) {
	kp := c.path.Child(key)
	c.s.commit(kp, func(root *tree.Map) *tree.Map {
		return tree.DeleteIn(root, kp)
	})
}

// On registers cb for the given event at the cursor's keypath. The event
// vocabulary is any, add, update (alias swap) and delete (alias remove),
// case-insensitive; anything else fails with an *InvalidEventError.
//
// The returned registration's Off method unsubscribes idempotently.
func (c *Cursor) On(event string, cb Callback) (*Registration, error) {
	return c.s.register(event, c.path, cb, false)
}

// Once behaves as On, but the registration removes itself before its first
// delivery, guaranteeing at most one invocation.
func (c *Cursor) Once(event string, cb Callback) (*Registration, error) {
	return c.s.register(event, c.path, cb, true)
}

// RemoveListener removes exactly one registration for the given event at
// the cursor's keypath, reporting whether removal occurred. The registration
// must have been created for the same event and keypath.
func (c *Cursor) RemoveListener(event string, reg *Registration) (bool, error) {
	et, err := ParseEventType(event)
	if err != nil {
		return false, err
	}
	if reg == nil || reg.owner != c.s || reg.event != et || !reg.path.Equal(c.path) {
		return false, nil
	}
	return c.s.removeRegistration(reg), nil
}

// RemoveListeners removes every registration for the given event at exactly
// the cursor's keypath. Other events and descendant or ancestor keypaths are
// unaffected. Returns the number of registrations removed.
func (c *Cursor) RemoveListeners(event string) (int, error) {
	et, err := ParseEventType(event)
	if err != nil {
		return 0, err
	}
	removed := c.s.listeners.removeBucket(c.path, et)
	if removed > 0 && c.s.statsOn() {
		c.s.stats.removed.Add(uint64(removed))
		c.s.stats.active.Add(-int64(removed))
	}
	return removed, nil
}

// Observe registers cb for any change at the cursor's keypath. It is
// shorthand for On("any", cb).
func (c *Cursor) Observe(cb Callback) (*Registration, error) {
	return c.On("any", cb)
}

// Unobserve removes a registration created by Observe.
func (c *Cursor) Unobserve(reg *Registration) bool {
	removed, _ := c.RemoveListener("any", reg)
	return removed
}
