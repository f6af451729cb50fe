package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/aiir/internal/config"
	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/store"
	"github.com/roach88/aiir/internal/testutil"
)

// Harness holds the per-scenario dispatcher and audit store.
type Harness struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory audit store. Execution flow:
//  1. Compile the operation table and round-trip it through a schema packet
//  2. Build the dispatcher with the scenario policy
//  3. Dispatch every flow step and check its expect clause
//  4. Evaluate assertions against the trace and the audit rows
//
// An error is returned only when the scenario cannot run at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	snap, err := loadSnapshot(scenario.Schema)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceIDs("evt")),
		store.WithClock(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:      st,
		dispatcher: dispatch.New(snap, scenarioPolicy(scenario.Policy), dispatch.WithAuditSink(st)),
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.Audited, err = st.CountDispatches(ctx)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// loadSnapshot compiles the table at path (or the embedded one) and loads
// it back from its encoded packet, so scenarios exercise the same decode
// path as a served core.
func loadSnapshot(path string) (*schema.Snapshot, error) {
	table := schema.Default()
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		table, err = schema.Compile(src, filepath.Base(path))
		if err != nil {
			return nil, err
		}
	}

	words, err := schema.BuildWords(table)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema packet: %w", err)
	}
	c, err := container.DecodeWords(words, container.SchemaProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema packet: %w", err)
	}
	return schema.Load(c)
}

func scenarioPolicy(p *PolicySpec) dispatch.Policy {
	if p == nil {
		return dispatch.AllowAll()
	}
	return config.ParsePolicy(p.DBExec, p.Ops)
}

// executeFlow dispatches every step and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		args, err := stepArgs(step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		event := TraceEvent{Seq: int64(i + 1), OpID: step.Op, Args: args}
		res, err := h.dispatcher.Dispatch(ctx, dispatch.Request{OpID: step.Op, Args: args})
		if err != nil {
			code := dispatch.CodeOf(err)
			if code == "" {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			event.Verdict = VerdictRejected
			event.Code = string(code)
			event.Reason = code.Reason()
		} else {
			event.Verdict = VerdictAccepted
			event.ProcID = res.ProcID
			event.ArgCount = res.ArgCount
			event.Digest, err = ir.AuditDigest(res.OpID, res.ProcID, args)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			if msg := checkExpect(i, step.Expect, event); msg != "" {
				result.AddError(msg)
			}
		}
	}
	return nil
}

func checkExpect(index int, want *ExpectClause, got TraceEvent) string {
	switch {
	case want.Verdict != got.Verdict:
		return fmt.Sprintf("flow[%d]: op %d: expected %s, got %s%s", index, got.OpID, want.Verdict, got.Verdict, reasonSuffix(got))
	case want.Reason != "" && want.Reason != got.Reason:
		return fmt.Sprintf("flow[%d]: op %d: expected reason %q, got %q", index, got.OpID, want.Reason, got.Reason)
	case want.Code != "" && want.Code != got.Code:
		return fmt.Sprintf("flow[%d]: op %d: expected code %s, got %s", index, got.OpID, want.Code, got.Code)
	case want.ProcID != nil && *want.ProcID != got.ProcID:
		return fmt.Sprintf("flow[%d]: op %d: expected proc %d, got %d", index, got.OpID, *want.ProcID, got.ProcID)
	}
	return ""
}

func reasonSuffix(e TraceEvent) string {
	if e.Reason == "" {
		return ""
	}
	return " (" + e.Reason + ")"
}

func stepArgs(step FlowStep) ([]ir.Value, error) {
	if step.ArgsJSON != "" {
		args, err := ir.DecodeArgs([]byte(step.ArgsJSON))
		if err != nil {
			return nil, fmt.Errorf("args_json: %w", err)
		}
		return args, nil
	}
	return convertArgs(step.Args)
}

// convertArgs converts YAML-parsed scalars to argument values.
func convertArgs(raw []any) ([]ir.Value, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]ir.Value, len(raw))
	for i, v := range raw {
		val, err := convertToValue(v)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

func convertToValue(v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return ir.Null{}, nil
	case bool:
		return ir.Bool(val), nil
	case string:
		return ir.String(val), nil
	case int:
		return ir.NewInt(int64(val)), nil
	case int64:
		return ir.NewInt(val), nil
	case uint64:
		// yaml.v3 only produces uint64 above the int64 range
		return ir.NewFloat(float64(val)), nil
	case float64:
		return ir.NewFloat(val), nil
	case []any:
		return nil, fmt.Errorf("arrays are not argument values")
	case map[string]any:
		return nil, fmt.Errorf("objects are not argument values")
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
