//go:build !cgo_sqlite
// +build !cgo_sqlite

package catalog

// This file is compiled by default and selects the pure Go SQLite
// implementation. No C compiler is required and the binary
// cross-compiles cleanly.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
