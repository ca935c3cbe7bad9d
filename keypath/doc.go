// Package keypath provides the Keypath type used to address nodes within a
// keyed state tree.
//
// A Keypath is an ordered sequence of keys locating a node root-to-node:
//
//	keypath.Keypath{"users", "42", "name"}
//
// Keypaths also have a dot-separated text form for configuration files and
// command-line flags:
//
//	users.42.name
//
// The text form cannot represent keys that themselves contain the separator;
// construct such paths from their segments directly.
package keypath
