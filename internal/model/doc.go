// Package model loads the disfluency weight asset and scores speech segments.
//
// The asset is a JSON file holding per-label logistic weights over a fixed
// acoustic feature vector. It is read once at daemon startup; a missing or
// malformed asset is fatal rather than degrading silently.
//
// Scoring of whole recordings is a pluggable strategy behind the Scorer
// interface so the grading curve can change without touching the pipeline.
package model
