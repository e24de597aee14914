// Package logging builds the slog loggers used by auditimport: a compact
// console handler or a JSON handler, written to stderr and the log file.
// WithContext stamps lines with the run ID, file and stage carried on a
// context.
package logging
