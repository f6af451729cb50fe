// Package store provides the SQLite-backed audit log of accepted dispatches.
//
// Every request the dispatcher accepts becomes one row in the append-only
// dispatches table:
//   - seq: logical order of arrival, assigned by SQLite
//   - event_id: UUIDv7, unique; rewriting an event is a no-op
//   - op_id, proc_id, argc: the dry-run result
//   - args: canonical JSON of the arguments
//   - digest: ir.AuditDigest of (op_id, proc_id, args)
//
// Reads are ordered by seq. Wall-clock timestamps are recorded but never
// used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite serializes the writer
package store
