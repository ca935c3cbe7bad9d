// Package tree provides the persistent keyed tree that statewatch observes.
//
// A Map is an immutable string-keyed container with structural sharing:
// Set and Delete return a new version, leaving the receiver untouched, and
// versions share every subtree the operation did not rebuild. Two values are
// the same version exactly when they are the same pointer, which is what lets
// the observe package skip unchanged subtrees in O(1).
//
// Nested trees are ordinary values of type *Map. The deep helpers GetIn,
// SetIn and DeleteIn navigate and rebuild along a keypath, creating
// intermediate maps as needed and sharing all sibling subtrees.
//
// FromJSON builds a nested Map from an arbitrary JSON document; JSON arrays
// become maps keyed by their index in decimal form.
package tree
