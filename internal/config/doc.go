// Package config loads, normalizes, and validates auditimport configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUDITIMPORT_ADMIN_TOKEN. The Config type centralizes every knob the CLI and
// the admin form need: where letters are uploaded, which backend holds the
// records, how the repeater field is laid out, and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend names, and clear validation errors.
package config
