// Package logging wires slog handlers for console and JSON output and defines
// the standardized attribute keys used across the service (recording IDs,
// pipeline stages, correlation identifiers, failure kinds).
package logging
