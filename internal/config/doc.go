// Package config loads, normalizes, and validates Darkroom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DARKROOM_CONFIG environment
// fallback. The Config type centralizes every knob the daemon and CLI need,
// allowing watch roots, output policy, and daemon runtime paths to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
