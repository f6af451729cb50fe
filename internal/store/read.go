package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
)

// Dispatch is one row of the audit log.
type Dispatch struct {
	Seq      int64
	EventID  string
	OpID     uint32
	ProcID   uint32
	ArgCount int
	Args     string
	Digest   string
	TS       int64
}

// ReadDispatches returns every recorded dispatch ordered by seq.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadDispatches(ctx context.Context) ([]Dispatch, error) {
	return s.queryDispatches(ctx, `
		SELECT seq, event_id, op_id, proc_id, argc, args, digest, ts
		FROM dispatches
		ORDER BY seq ASC
	`)
}

// ReadDispatchesForOp returns the dispatches of one op ordered by seq.
func (s *Store) ReadDispatchesForOp(ctx context.Context, opID uint32) ([]Dispatch, error) {
	return s.queryDispatches(ctx, `
		SELECT seq, event_id, op_id, proc_id, argc, args, digest, ts
		FROM dispatches
		WHERE op_id = ?
		ORDER BY seq ASC
	`, opID)
}

func (s *Store) queryDispatches(ctx context.Context, query string, args ...any) ([]Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	out := []Dispatch{}
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return out, nil
}

func scanDispatch(rows *sql.Rows) (Dispatch, error) {
	var d Dispatch
	if err := rows.Scan(&d.Seq, &d.EventID, &d.OpID, &d.ProcID, &d.ArgCount, &d.Args, &d.Digest, &d.TS); err != nil {
		return Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}
	return d, nil
}

// CountDispatches returns the number of recorded dispatches.
func (s *Store) CountDispatches(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatches").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

// walLine is the line format of the plain-text dispatch log.
type walLine struct {
	TS     int64  `json:"ts"`
	OpID   uint32 `json:"opId"`
	ProcID uint32 `json:"procId"`
	Argc   int    `json:"argc"`
}

// WriteJSONL writes the log as one {"ts","opId","procId","argc"} object per
// line, in seq order.
func (s *Store) WriteJSONL(ctx context.Context, w io.Writer) error {
	ds, err := s.ReadDispatches(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, d := range ds {
		if err := enc.Encode(walLine{TS: d.TS, OpID: d.OpID, ProcID: d.ProcID, Argc: d.ArgCount}); err != nil {
			return fmt.Errorf("write jsonl: %w", err)
		}
	}
	return nil
}
