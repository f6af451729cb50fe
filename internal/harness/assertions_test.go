package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/store"
	"github.com/roach88/aiir/internal/testutil"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, OpID: 1001, Args: []ir.Value{ir.String("a")}, Verdict: VerdictAccepted, ProcID: 1001, ArgCount: 1},
		{Seq: 2, OpID: 1002, Args: []ir.Value{ir.String("k")}, Verdict: VerdictRejected, Reason: "argc", Code: "ARITY_OUT_OF_RANGE"},
		{Seq: 3, OpID: 1002, Args: []ir.Value{ir.String("k"), ir.NewInt(1), ir.NewInt(2)}, Verdict: VerdictAccepted, ProcID: 1002, ArgCount: 3},
		{Seq: 4, OpID: 9001, Args: []ir.Value{}, Verdict: VerdictAccepted, ProcID: 9001},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		ok        bool
	}{
		{"op only", Assertion{Op: uint32p(1002)}, true},
		{"verdict", Assertion{Op: uint32p(1002), Verdict: VerdictAccepted}, true},
		{"reason", Assertion{Op: uint32p(1002), Reason: "argc"}, true},
		{"args prefix", Assertion{Op: uint32p(1002), Verdict: VerdictAccepted, Args: []any{"k", 1}}, true},
		{"args mismatch", Assertion{Op: uint32p(1002), Args: []any{"k", 2}}, false},
		{"args longer than request", Assertion{Op: uint32p(1001), Args: []any{"a", "b"}}, false},
		{"wrong reason", Assertion{Op: uint32p(1001), Reason: "type"}, false},
		{"absent op", Assertion{Op: uint32p(4001)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(trace, tt.assertion)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertTraceContains, ae.Type)
			assert.Equal(t, "not found in trace", ae.Actual)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []uint32{1001, 1002, 9001}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []uint32{1001, 9001}}))

	err := assertTraceOrder(trace, Assertion{Ops: []uint32{9001, 1001}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "9001 (pos 4) should be before 1001 (pos 1)", ae.Actual)

	err = assertTraceOrder(trace, Assertion{Ops: []uint32{1001, 4001}})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "missing op: 4001", ae.Actual)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: uint32p(1002), Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: uint32p(1002), Verdict: VerdictAccepted, Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: uint32p(4001), Count: 0}))

	err := assertTraceCount(trace, Assertion{Op: uint32p(1002), Reason: "argc", Count: 2})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 occurrences of op 1002 (argc)", ae.Expected)
	assert.Equal(t, "1 occurrences", ae.Actual)

	assert.Error(t, assertTraceCount(trace, Assertion{Count: 1}))
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of op 1002",
		Actual:   "0 occurrences",
		Trace:    sampleTrace()[:2],
	}
	want := "Assertion failed: trace_count\n" +
		"  Expected: 1 occurrences of op 1002\n" +
		"  Actual: 0 occurrences\n" +
		"\nFull trace:\n" +
		"  [1] op 1001 [\"a\"] accepted\n" +
		"  [2] op 1002 [\"k\"] rejected (argc)\n"
	assert.Equal(t, want, err.Error())
}

func auditStore(t *testing.T) *store.Store {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceIDs("evt")),
		store.WithClock(clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, ev := range []dispatch.AuditEvent{
		{OpID: 1001, ProcID: 1001, ArgCount: 1, Args: []ir.Value{ir.String("a")}, Digest: "d1"},
		{OpID: 1001, ProcID: 1001, ArgCount: 1, Args: []ir.Value{ir.String("b")}, Digest: "d2"},
		{OpID: 9001, ProcID: 9001, Digest: "d3"},
	} {
		require.NoError(t, st.RecordDispatch(ctx, ev))
	}
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := auditStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assertion Assertion
		actual    string
	}{
		{
			name: "match",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 1001, "args": `["b"]`},
				Expect: map[string]any{"event_id": "evt-0002", "argc": 1, "ts": 1700000001, "digest": "d2"},
			},
		},
		{
			name: "no where",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 9001},
				Expect: map[string]any{"args": "[]", "argc": 0},
			},
		},
		{
			name: "row not found",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 4001},
				Expect: map[string]any{"argc": 1},
			},
			actual: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 1001},
				Expect: map[string]any{"argc": 1},
			},
			actual: "multiple rows matched (assertion is ambiguous)",
		},
		{
			name: "value mismatch",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 9001},
				Expect: map[string]any{"proc_id": 1},
			},
			actual: `field "proc_id" = 9001 (type int64)`,
		},
		{
			name: "missing column",
			assertion: Assertion{
				Table:  "dispatches",
				Where:  map[string]any{"op_id": 9001},
				Expect: map[string]any{"flow": "x"},
			},
			actual: `field "flow" not present in result columns: [seq event_id op_id proc_id argc args digest ts]`,
		},
		{
			name: "unknown table",
			assertion: Assertion{
				Table:  "completions",
				Expect: map[string]any{"argc": 1},
			},
			actual: "query error: no such table: completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.actual == "" {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertFinalState, ae.Type)
			assert.Equal(t, tt.actual, ae.Actual)
		})
	}
}

func TestAssertFinalState_RejectsBadIdentifiers(t *testing.T) {
	st := auditStore(t)
	ctx := context.Background()

	err := assertFinalState(ctx, st, Assertion{Table: "dispatches; DROP TABLE dispatches", Expect: map[string]any{"argc": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	err = assertFinalState(ctx, st, Assertion{
		Table:  "dispatches",
		Where:  map[string]any{"op_id = 1 OR 1": 1},
		Expect: map[string]any{"argc": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")

	n, err := st.CountDispatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", []byte("a")))
	assert.True(t, stateValuesEqual(3, int64(3)))
	assert.True(t, stateValuesEqual(int64(3), int64(3)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual(3, "3"))
	assert.False(t, stateValuesEqual(nil, int64(0)))
	assert.False(t, stateValuesEqual(2.5, 2.5))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceOrder, Ops: []uint32{1001, 1002}},
		{Type: AssertTraceCount, Op: uint32p(9001), Count: 2},
		{Type: AssertFinalState, Table: "dispatches", Expect: map[string]any{"argc": 1}},
		{Type: "eventually"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Assertion failed: trace_count")
	assert.Equal(t, "assertion[2]: final_state requires database context", errs[1])
	assert.Equal(t, `assertion[3]: unknown assertion type "eventually"`, errs[2])
}
