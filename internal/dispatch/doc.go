// Package dispatch queues analysis requests and supervises their delivery.
//
// Submission writes a durable job row; redelivery after a crash comes from the
// stale-lease reclaimer rather than an external broker. Delivery is
// at-least-once, so consumers must tolerate duplicates. Each recording holds
// at most one active job: duplicate submissions coalesce instead of stacking.
package dispatch
