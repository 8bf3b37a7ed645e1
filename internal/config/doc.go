// Package config loads the settings of the vault CLI.
//
// Settings live in ~/.vault/settings.yaml and are read through a vault
// Factory like any other configuration file, so comments a user adds to the
// file survive when the CLI writes it back. A missing file is created from
// a bundled, commented copy of the defaults:
//
//	# vault CLI settings
//	dir: .
//	log_level: warn
//	atomic_save: false
//
// # Validation
//
// Load and Save validate the settings and report every problem at once:
//   - dir must not be empty
//   - log_level must be a zap level name
//
// Invalid settings wrap ErrInvalidConfig.
package config
