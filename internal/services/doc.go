// Package services defines shared utilities consumed by the import pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, file names, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that tag adapter failures
//     so callers can classify them with errors.Is.
//
// Adapters for external collaborators (WP-CLI) live in subpackages.
package services
