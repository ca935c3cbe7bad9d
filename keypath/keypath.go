package keypath

import "strings"

// Separator is the character used to separate segments in the text form.
const Separator = "."

// Keypath is an ordered sequence of keys locating a node within a tree,
// root-to-node. The zero value (nil) addresses the root itself.
type Keypath []string

// Parse splits a dot-separated path into a Keypath.
// An empty string parses to the root path.
func Parse(s string) Keypath {
	if s == "" {
		return nil
	}
	return Keypath(strings.Split(s, Separator))
}

// New builds a Keypath from segments, copying the input.
func New(segments ...string) Keypath {
	if len(segments) == 0 {
		return nil
	}
	kp := make(Keypath, len(segments))
	copy(kp, segments)
	return kp
}

// String returns the dot-separated text form.
func (kp Keypath) String() string {
	return strings.Join(kp, Separator)
}

// Len returns the number of segments.
func (kp Keypath) Len() int {
	return len(kp)
}

// IsRoot reports whether the keypath addresses the root of the tree.
func (kp Keypath) IsRoot() bool {
	return len(kp) == 0
}

// Base returns the last segment, or "" for the root path.
func (kp Keypath) Base() string {
	if len(kp) == 0 {
		return ""
	}
	return kp[len(kp)-1]
}

// Parent returns the keypath with the last segment removed.
// The parent of the root path is the root path.
func (kp Keypath) Parent() Keypath {
	if len(kp) == 0 {
		return nil
	}
	return kp[:len(kp)-1]
}

// Child returns a new keypath with the given segments appended.
// The receiver is not modified.
func (kp Keypath) Child(segments ...string) Keypath {
	if len(segments) == 0 {
		return kp
	}
	out := make(Keypath, 0, len(kp)+len(segments))
	out = append(out, kp...)
	out = append(out, segments...)
	return out
}

// Equal reports whether two keypaths have identical segments.
func (kp Keypath) Equal(other Keypath) bool {
	if len(kp) != len(other) {
		return false
	}
	for i, seg := range kp {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// HasPrefix reports whether kp starts with the given prefix, matching
// complete segments only.
func (kp Keypath) HasPrefix(prefix Keypath) bool {
	if len(prefix) > len(kp) {
		return false
	}
	for i, seg := range prefix {
		if kp[i] != seg {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the keypath.
func (kp Keypath) Clone() Keypath {
	if kp == nil {
		return nil
	}
	out := make(Keypath, len(kp))
	copy(out, kp)
	return out
}
