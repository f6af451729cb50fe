// Package harness runs dispatch conformance scenarios.
//
// A scenario names an operation table, a policy and a flow of requests
// with their expected verdicts. The harness compiles the table, encodes it
// into a schema packet, loads the packet back and drives the real
// dispatcher with every request. Accepted requests are recorded in an
// in-memory audit store, so assertions can check both the trace and the
// final audit rows.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schemas/loose.cue   # optional, default is the embedded ops.cue
//	policy:                        # optional, default allows everything
//	  db_exec: "1"
//	  ops: "1001,1002"
//	flow:
//	  - op: 1002
//	    args: ["k", 1, 2]
//	    expect:
//	      verdict: accepted
//	      proc_id: 1002
//	  - op: 1002
//	    args_json: '["k", 1.5, 2]'
//	    expect:
//	      verdict: rejected
//	      reason: type
//	assertions:
//	  - type: trace_contains
//	    op: 1002
//	    verdict: accepted
//	  - type: final_state
//	    table: dispatches
//	    where: { op_id: 1002 }
//	    expect: { argc: 3 }
//
// args is a YAML list of scalars. args_json is passed through the same JSON
// decoder the HTTP endpoint uses, for values YAML cannot spell exactly.
//
// # Assertion Types
//
//   - trace_contains: a request for op appears with the given verdict, reason and args
//   - trace_order: the ops appear in this order
//   - trace_count: op (optionally with a verdict) appears exactly N times
//   - final_state: exactly one audit row matches where and carries expect
//
// # Deterministic Testing
//
// Audit event ids come from testutil.SequenceIDs and timestamps from
// testutil.DeterministicClock, so the trace and the audit rows are the
// same on every run. Traces are compared to golden files with goldie.
package harness
