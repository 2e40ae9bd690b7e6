// Package recording persists recordings, analysis results, dispatch jobs, and
// progress metrics in SQLite and exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, guarded
// status transitions, job leasing with heartbeat tracking, stale-lease
// recovery, and the transactional completion path that couples result
// insertion to the Processing to Completed transition. Every status change
// goes through a compare-and-set on the current status, which is what keeps
// redelivered jobs from executing twice.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or result fields, update schema.sql and bump
// schemaVersion.
package recording
