// Package config loads, normalizes, and validates posekit configuration.
//
// It supplies defaults, reads the TOML file, overlays POSEKIT_* environment
// variables, expands user paths (including tilde shortcuts) and rejects
// unusable values with errors that name the offending key.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and canonical enum values.
package config
