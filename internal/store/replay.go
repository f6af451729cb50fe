package store

import (
	"context"
	"fmt"

	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
)

// Mismatch is a recorded dispatch whose verdict or digest differs when the
// request is authorized again.
type Mismatch struct {
	Seq    int64
	OpID   uint32
	Reason string
}

// ReplayReport summarizes a Replay.
type ReplayReport struct {
	Total      int
	Matched    int
	Mismatches []Mismatch
}

// Replay re-authorizes every recorded dispatch against d, in seq order.
// A row matches when it is still accepted with the same proc id and
// digest. Useful after a schema rebuild to see which recorded traffic the
// new table would reject.
//
// Replay never writes to the log.
func (s *Store) Replay(ctx context.Context, d *dispatch.Dispatcher) (ReplayReport, error) {
	ds, err := s.ReadDispatches(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	report := ReplayReport{Total: len(ds), Mismatches: []Mismatch{}}
	for _, rec := range ds {
		if reason := replayOne(d, rec); reason != "" {
			report.Mismatches = append(report.Mismatches, Mismatch{Seq: rec.Seq, OpID: rec.OpID, Reason: reason})
			continue
		}
		report.Matched++
	}
	return report, nil
}

func replayOne(d *dispatch.Dispatcher, rec Dispatch) string {
	args, err := ir.DecodeArgs([]byte(rec.Args))
	if err != nil {
		return "args"
	}
	res, err := d.Authorize(dispatch.Request{OpID: rec.OpID, Args: args})
	if err != nil {
		return dispatch.ReasonOf(err)
	}
	if res.ProcID != rec.ProcID {
		return "proc"
	}
	digest, err := ir.AuditDigest(res.OpID, res.ProcID, args)
	if err != nil || digest != rec.Digest {
		return "digest"
	}
	return ""
}
