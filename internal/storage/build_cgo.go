//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// Selected by the sqlite_cgo tag:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// The mattn driver is a C binding: faster on large scans, but it needs a C
// compiler and complicates cross-compilation. Recommended for production
// deployments with large documentation sets.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is what sql.Open gets for this build variant.
	DriverName = "sqlite3"

	// BuildMode is reported by the version command.
	BuildMode = "cgo"
)
