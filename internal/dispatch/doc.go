// Package dispatch authorizes and type-checks operation requests against a
// loaded schema snapshot.
//
// A request passes through a fixed sequence of gates and stops at the first
// failure:
//
//  1. Policy: the exec switch must be on and the op allow-listed
//  2. Lookup: the op must exist in the snapshot
//  3. Arity: the argument count must lie in [minArgs, maxArgs]
//  4. Signature count: the op must declare exactly one signature per argument
//  5. Types: each argument must be accepted by its declared type
//
// Every accepted request ends in a dry-run result. Nothing is executed and
// the Dispatcher holds no mutable state, so one instance serves concurrent
// callers without locking. The only side effect is one audit event per
// accepted request, handed to an AuditSink.
package dispatch
