package observe

import (
	"sync"

	"github.com/dshills/statewatch/keypath"
)

// listenerTree is a tree shaped like the data it observes. Each node holds
// the four event buckets for its exact keypath plus the children for deeper
// paths. One listenerTree is shared by every cursor derived from the same
// Structure. It is thread-safe for concurrent registration and dispatch.
type listenerTree struct {
	mu   sync.RWMutex
	root *listenerNode
}

// listenerNode is a single node of the listener tree. Buckets live in a
// field disjoint from children, so reserved event slots can never collide
// with data keys. Registrations are keyed by token for identity-based
// deduplication and removal.
type listenerNode struct {
	children map[string]*listenerNode
	buckets  [numEventTypes]map[string]*Registration
}

func newListenerNode() *listenerNode {
	return &listenerNode{
		children: make(map[string]*listenerNode),
	}
}

// isEmpty reports whether the node has no children and no registrations.
func (n *listenerNode) isEmpty() bool {
	if len(n.children) > 0 {
		return false
	}
	for _, bucket := range n.buckets {
		if len(bucket) > 0 {
			return false
		}
	}
	return true
}

// listenerCount returns the number of live registrations at this exact node.
func (n *listenerNode) listenerCount() int {
	count := 0
	for _, bucket := range n.buckets {
		count += len(bucket)
	}
	return count
}

func newListenerTree() *listenerTree {
	return &listenerTree{root: newListenerNode()}
}

// pathEntry tracks a node and the key used to reach it, for pruning.
type pathEntry struct {
	node *listenerNode
	key  string
}

// insert registers reg at its keypath and bucket, creating nodes along the
// path as needed. Returns false if the same token is already registered.
func (t *listenerTree) insert(reg *Registration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.root
	for _, key := range reg.path {
		child := node.children[key]
		if child == nil {
			child = newListenerNode()
			node.children[key] = child
		}
		node = child
	}

	bucket := node.buckets[reg.event]
	if bucket == nil {
		bucket = make(map[string]*Registration)
		node.buckets[reg.event] = bucket
	}
	if _, exists := bucket[reg.id]; exists {
		return false
	}
	bucket[reg.id] = reg
	return true
}

// remove unregisters reg and prunes any nodes left empty along its path.
// Returns false if the registration is not present.
func (t *listenerTree) remove(reg *Registration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := make([]pathEntry, 0, len(reg.path)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for _, key := range reg.path {
		child := node.children[key]
		if child == nil {
			return false
		}
		path = append(path, pathEntry{node: child, key: key})
		node = child
	}

	bucket := node.buckets[reg.event]
	if _, exists := bucket[reg.id]; !exists {
		return false
	}
	delete(bucket, reg.id)
	if len(bucket) == 0 {
		node.buckets[reg.event] = nil
	}

	t.prune(path)
	return true
}

// removeBucket drops every registration for event at exactly kp, pruning
// emptied nodes. Returns the number of registrations removed. Descendant and
// ancestor keypaths are unaffected.
func (t *listenerTree) removeBucket(kp keypath.Keypath, event EventType) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := make([]pathEntry, 0, len(kp)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for _, key := range kp {
		child := node.children[key]
		if child == nil {
			return 0
		}
		path = append(path, pathEntry{node: child, key: key})
		node = child
	}

	removed := len(node.buckets[event])
	if removed == 0 {
		return 0
	}
	node.buckets[event] = nil

	t.prune(path)
	return removed
}

// prune removes empty nodes from leaf back to root. The root itself is
// never pruned.
func (t *listenerTree) prune(path []pathEntry) {
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}
}

// lookup returns the node at kp, or nil if no listener lives there or below.
func (t *listenerTree) lookup(kp keypath.Keypath) *listenerNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.root
	for _, key := range kp {
		node = node.children[key]
		if node == nil {
			return nil
		}
	}
	return node
}

// size returns the total number of live registrations in the tree.
func (t *listenerTree) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return countListeners(t.root)
}

func countListeners(n *listenerNode) int {
	count := n.listenerCount()
	for _, child := range n.children {
		count += countListeners(child)
	}
	return count
}
