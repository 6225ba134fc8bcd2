// Package config loads, validates, and defaults the TOML configuration used
// by the readout daemon and CLI.
package config
