// Package progress aggregates completed analyses into windowed metrics:
// average disfluency rate, improvement rate across the window, and the
// distribution of disfluency types.
//
// Windows are half-open [start, end) and scoped to one owner. Metric writes
// key on (owner, type, window), so recomputation after late-arriving analyses
// replaces rather than duplicates.
package progress
