// Package config loads and validates the paperdock YAML configuration.
//
// Files may reference environment variables with ${VAR} syntax; references
// are expanded before parsing, and unknown keys are rejected. Timeouts are
// plain millisecond integers. See configs/paperdock.example.yaml for the
// full schema.
package config
