// Package pipeline executes the staged analysis of uploaded recordings.
//
// A recording flows through four stages: load decodes the stored audio into
// normalized samples, extract slices it into voiced segments with acoustic
// features, infer classifies each segment against the disfluency model, and
// aggregate folds the classifications into a persisted result.
//
// The worker pool delivers at-least-once: a job redelivered after a crash is
// absorbed by the Pending to Processing compare-and-set, which is the only
// guard against double execution. Workers heartbeat per job so the reclaimer
// can requeue leases from dead workers.
package pipeline
