// Package config loads, validates, and normalizes the cliplab TOML
// configuration file.
package config
