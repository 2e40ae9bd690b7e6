// Package services defines shared utilities consumed by the analysis pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp recording IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the stored failure kinds recorded on failed recordings.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across stages.
package services
