//go:build purego || !sqlite_cgo
// +build purego !sqlite_cgo

package storage

// The default build, no C toolchain involved:
//
//	CGO_ENABLED=0 go build ./...
//
// The pure Go implementation needs no C compiler and cross-compiles cleanly,
// at the cost of slower scans. Suitable for development and smaller
// documentation sets.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is what sql.Open gets for this build variant.
	DriverName = "sqlite"

	// BuildMode is reported by the version command.
	BuildMode = "purego"
)
