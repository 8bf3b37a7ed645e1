// Package buildinfo exposes the version and commit of the vault binary,
// set at link time:
//
//	go build -ldflags "-X github.com/leycm/vault/internal/buildinfo.Version=v0.2.0"
package buildinfo

// Version is set at link-time with -ldflags.
var Version = "v0.1.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"
