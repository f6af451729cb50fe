package harness

import "github.com/roach88/aiir/internal/ir"

// TraceEvent is one dispatched request and its verdict.
type TraceEvent struct {
	Seq     int64      `json:"seq"`
	OpID    uint32     `json:"op_id"`
	Args    []ir.Value `json:"args"`
	Verdict string     `json:"verdict"`

	// Accepted requests only.
	ProcID   uint32 `json:"proc_id,omitempty"`
	ArgCount int    `json:"argc,omitempty"`
	Digest   string `json:"digest,omitempty"`

	// Rejected requests only.
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Accepted reports whether the request passed every gate.
func (e TraceEvent) Accepted() bool {
	return e.Verdict == VerdictAccepted
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Audited is the number of rows in the audit log after the flow.
	Audited int `json:"audited"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
