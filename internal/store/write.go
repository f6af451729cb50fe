package store

import (
	"context"
	"fmt"

	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
)

// RecordDispatch appends one accepted dispatch. Uses ON CONFLICT(event_id)
// DO NOTHING, so a generator that repeats an id cannot duplicate a row.
//
// The arguments are stored as canonical JSON so the row can be re-checked
// by Replay.
func (s *Store) RecordDispatch(ctx context.Context, ev dispatch.AuditEvent) error {
	args := ev.Args
	if args == nil {
		args = []ir.Value{}
	}
	argsJSON, err := ir.MarshalCanonical(args)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(event_id, op_id, proc_id, argc, args, digest, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		s.ids.Generate(),
		ev.OpID,
		ev.ProcID,
		ev.ArgCount,
		string(argsJSON),
		ev.Digest,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

var _ dispatch.AuditSink = (*Store)(nil)
