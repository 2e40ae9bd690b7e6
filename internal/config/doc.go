// Package config loads, normalizes, and validates the TOML configuration that
// every component receives at construction time. There is no ambient global
// configuration state; callers pass the loaded *Config explicitly.
package config
