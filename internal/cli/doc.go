// Package cli defines the Cobra command tree for the linkmend CLI. Each file
// in this package registers one top-level command (scan, create, apply, etc.)
// with the root command. Commands delegate to the engine packages and only
// handle flag parsing, output formatting and wiring of the vault, settings
// and generation service.
package cli
