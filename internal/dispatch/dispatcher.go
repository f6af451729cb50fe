package dispatch

import (
	"context"
	"log/slog"

	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/schema"
)

// ModeDryRun is the only execution mode; requests are never executed.
const ModeDryRun = "dry-run"

// Request is one decoded operation request.
type Request struct {
	OpID uint32
	Args []ir.Value
}

// Result is the dry-run acknowledgment of an accepted request.
type Result struct {
	OK       int    `json:"ok"`
	Mode     string `json:"mode"`
	OpID     uint32 `json:"opId"`
	ProcID   uint32 `json:"procId"`
	ArgCount int    `json:"argsCount"`
}

// AuditEvent describes one accepted request.
type AuditEvent struct {
	OpID     uint32
	ProcID   uint32
	ArgCount int
	Args     []ir.Value

	// Digest is ir.AuditDigest of (OpID, ProcID, Args), empty if the
	// arguments could not be canonicalized.
	Digest string
}

// AuditSink receives one event per accepted request.
type AuditSink interface {
	RecordDispatch(ctx context.Context, ev AuditEvent) error
}

// Dispatcher checks requests against an immutable schema snapshot.
type Dispatcher struct {
	snap   *schema.Snapshot
	policy Policy
	sink   AuditSink
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAuditSink sets the sink that receives accepted requests.
func WithAuditSink(s AuditSink) Option {
	return func(d *Dispatcher) {
		d.sink = s
	}
}

// New creates a Dispatcher. The snapshot and policy are shared, never
// copied or modified.
func New(snap *schema.Snapshot, policy Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{snap: snap, policy: policy}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authorize runs every gate without side effects. The verdict depends only
// on the snapshot, the policy and the request.
func (d *Dispatcher) Authorize(req Request) (Result, error) {
	if !d.policy.AllowDBExec() {
		return Result{}, newError(CodeExecDisabled, req.OpID, "db exec is disabled by policy")
	}
	if !d.policy.AllowOp(req.OpID) {
		return Result{}, newError(CodeOpNotAllowed, req.OpID, "op is not allow-listed")
	}

	op, ok := d.snap.Op(req.OpID)
	if !ok {
		return Result{}, newError(CodeOpNotFound, req.OpID, "unknown op")
	}

	argc := len(req.Args)
	if uint64(argc) < uint64(op.MinArgs) || uint64(argc) > uint64(op.MaxArgs) {
		return Result{}, newError(CodeArityOutOfRange, req.OpID,
			"%d args, op takes %d..%d", argc, op.MinArgs, op.MaxArgs)
	}

	if n := d.snap.SignatureCount(req.OpID); n != argc {
		return Result{}, newError(CodeSignatureMismatch, req.OpID,
			"%d args, op declares %d signatures", argc, n)
	}

	for i, v := range req.Args {
		sig, ok := d.snap.Signature(req.OpID, uint32(i))
		if !ok {
			return Result{}, newArgError(CodeMissingSignature, req.OpID, i, "no signature for argument")
		}
		if !Accepts(sig.Type, v) {
			return Result{}, newArgError(CodeTypeMismatch, req.OpID, i,
				"%s does not accept %s", sig.Type, tagName(v))
		}
	}

	return Result{
		OK:       1,
		Mode:     ModeDryRun,
		OpID:     op.ID,
		ProcID:   op.Proc,
		ArgCount: argc,
	}, nil
}

// Dispatch authorizes req and, on success, emits one audit event. A failing
// sink is logged and does not change the verdict.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	res, err := d.Authorize(req)
	if err != nil {
		slog.Debug("dispatch rejected", "op_id", req.OpID, "error", err)
		return Result{}, err
	}
	if d.sink == nil {
		return res, nil
	}

	digest, err := ir.AuditDigest(res.OpID, res.ProcID, req.Args)
	if err != nil {
		slog.Warn("audit digest failed", "op_id", res.OpID, "error", err)
	}
	ev := AuditEvent{
		OpID:     res.OpID,
		ProcID:   res.ProcID,
		ArgCount: res.ArgCount,
		Args:     append([]ir.Value(nil), req.Args...),
		Digest:   digest,
	}
	if err := d.sink.RecordDispatch(ctx, ev); err != nil {
		slog.Error("audit record failed",
			"error", err,
			"op_id", res.OpID,
			"proc_id", res.ProcID,
		)
	}
	return res, nil
}

func tagName(v ir.Value) string {
	if v == nil {
		return "missing value"
	}
	return v.Tag().String()
}
