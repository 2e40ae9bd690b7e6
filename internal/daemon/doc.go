// Package daemon coordinates the long-running fluently process.
//
// It wires configuration, the recording store, the analysis worker pool, and
// the HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances from serving the same data directory.
//
// Keep orchestration logic here: ingestion, dispatch, and analysis behavior
// live in their respective packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
