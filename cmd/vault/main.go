// Command vault reads and edits configuration files from the shell while
// keeping the comments people wrote in them.
//
// Usage:
//
//	vault get <file> <path>                     - Print the value at path
//	vault set <file> <path> <value> [--type T]  - Set a value and save
//	vault unset <file> <path>                   - Remove a key and save
//	vault keys <file> [section]                 - List the keys of a section
//	vault fmt <file>                            - Rewrite a file in canonical form
//	vault settings [set <key> <value>]          - Show or change CLI settings
//
// Examples:
//
//	vault get app.yml server.port
//	vault set app.toml server.timeout 30s --type duration
//	vault set app.yml debug true --type bool --dry-run
//	vault keys app.yml server
//
// Relative file names resolve against --dir, which defaults to the dir
// setting in ~/.vault/settings.yaml.
package main

import (
	"os"

	"github.com/leycm/vault/internal/config"
	"github.com/leycm/vault/internal/log"
)

func main() {
	defer log.Sync()

	provider := config.New(log.Zap())
	settings, err := provider.Load()
	if err != nil {
		log.Fatalf("settings error: %v", err)
	}
	if err := log.SetLevel(settings.LogLevel); err != nil {
		log.Warn("ignoring log level from settings", "error", err)
	}

	root := newRootCmd(provider, settings, os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
