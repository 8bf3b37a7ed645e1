// Package vault is a hierarchical configuration store backed by
// human-edited YAML, TOML and JSON files.
//
// A Factory owns a directory, the registered format adapters and type
// adapters, and a cache of loaded stores. Each Store wraps the tree parsed
// from one file; values are addressed with dotted paths and converted to Go
// types through the Factory's type registry:
//
//	f, err := vault.New("/etc/myapp")
//	if err != nil {
//		return err
//	}
//	store, err := f.Open("server.yml")
//	if err != nil {
//		return err
//	}
//
//	port := vault.GetOr(store, "http.port", 8080)
//	vault.Set(store, "http.timeout", 30*time.Second)
//	if err := store.Save(); err != nil {
//		return err
//	}
//
// Saving rewrites the whole file. Comments a human wrote next to keys and
// section headers in YAML and TOML files are carried over to the new text
// as long as their key still exists.
//
// # Views
//
// Store and Section implement View. A Section is a prefix into its Store's
// tree: reads and writes through it land in the same tree. Field and List
// bind a path and a Go type once so call sites stay short:
//
//	timeout := vault.NewField[time.Duration](store.Section("http"), "timeout")
//	hosts := vault.NewList[string](store, "upstream.hosts")
//
// # Misses
//
// Reads never fail. A path that does not exist, holds nil, or holds a value
// the type adapter cannot convert reports false.
//
// # Concurrency
//
// Factory, Store and Section are not safe for concurrent use. Callers that
// share them across goroutines must synchronize. Stats may be read at any
// time.
package vault
