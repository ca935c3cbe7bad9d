// Package config loads statewatch runtime settings from TOML files and
// supports live reload.
//
// Settings control dispatch behavior that is deliberately kept out of code:
// whether changes propagate to ancestor and descendant listeners, which diff
// traversal strategy to use, and whether statistics are collected.
//
//	propagate = true
//	strategy = "auto"   # auto | data | listeners
//	stats = true
//
// A missing file yields defaults; a malformed file is an error. Watch
// re-reads the file whenever it changes on disk.
package config
