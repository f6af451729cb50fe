package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/schema"
)

// sequenceIDs hands out evt-0001, evt-0002, ... so rows are predictable.
type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("evt-%04d", g.n)
}

// repeatingIDs always returns the same id.
type repeatingIDs struct{}

func (repeatingIDs) Generate() string { return "evt-same" }

var fixedTime = time.Unix(1700000000, 0)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "ai.wal")
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func event1002() dispatch.AuditEvent {
	args := []ir.Value{ir.String("k"), ir.NewInt(1), ir.NewInt(2)}
	return dispatch.AuditEvent{
		OpID:     1002,
		ProcID:   1002,
		ArgCount: 3,
		Args:     args,
		Digest:   ir.MustAuditDigest(1002, 1002, args),
	}
}

func TestOpen_CreatesDatabaseAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "ai.wal")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='dispatches'").Scan(&name)
	if err != nil {
		t.Errorf("dispatches table not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// parent "dir" is a regular file
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(filepath.Join(blocker, "sub", "test.db"))
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct{ name, want string }{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// simulate a database created before v1
	if _, err := s.db.Exec("DROP INDEX idx_dispatches_digest"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_dispatches_digest'").Scan(&name)
	if err != nil {
		t.Errorf("digest index missing after upgrade: %v", err)
	}
}

func TestRecordDispatch_ReadBack(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(&sequenceIDs{}))
	ctx := context.Background()

	if err := s.RecordDispatch(ctx, event1002()); err != nil {
		t.Fatalf("RecordDispatch() failed: %v", err)
	}
	if err := s.RecordDispatch(ctx, dispatch.AuditEvent{OpID: 9001, ProcID: 9001, Digest: "d"}); err != nil {
		t.Fatalf("RecordDispatch() failed: %v", err)
	}

	ds, err := s.ReadDispatches(ctx)
	if err != nil {
		t.Fatalf("ReadDispatches() failed: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d rows, want 2", len(ds))
	}

	first := ds[0]
	if first.Seq != 1 || first.EventID != "evt-0001" {
		t.Errorf("first row seq=%d id=%q", first.Seq, first.EventID)
	}
	if first.OpID != 1002 || first.ProcID != 1002 || first.ArgCount != 3 {
		t.Errorf("first row = %+v", first)
	}
	if first.Args != `["k",1,2]` {
		t.Errorf("args = %s", first.Args)
	}
	if first.TS != fixedTime.Unix() {
		t.Errorf("ts = %d", first.TS)
	}
	if ds[1].Args != "[]" {
		t.Errorf("nil args stored as %s, want []", ds[1].Args)
	}

	n, err := s.CountDispatches(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountDispatches() = %d, %v", n, err)
	}

	only, err := s.ReadDispatchesForOp(ctx, 9001)
	if err != nil || len(only) != 1 || only[0].Seq != 2 {
		t.Errorf("ReadDispatchesForOp() = %+v, %v", only, err)
	}
}

func TestReadDispatches_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	ds, err := s.ReadDispatches(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ds == nil || len(ds) != 0 {
		t.Errorf("ReadDispatches() = %#v, want empty slice", ds)
	}
}

func TestRecordDispatch_DuplicateEventIDIgnored(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(repeatingIDs{}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.RecordDispatch(ctx, event1002()); err != nil {
			t.Fatalf("RecordDispatch() #%d failed: %v", i, err)
		}
	}
	n, _ := s.CountDispatches(ctx)
	if n != 1 {
		t.Errorf("got %d rows, want 1", n)
	}
}

func TestRecordDispatch_RejectsNonFiniteArgs(t *testing.T) {
	s := createTestStore(t)

	ev := dispatch.AuditEvent{OpID: 1, ProcID: 1, ArgCount: 1, Args: []ir.Value{ir.NewFloat(math.Inf(1))}}
	if err := s.RecordDispatch(context.Background(), ev); err == nil {
		t.Error("expected error for non-finite argument")
	}
}

func TestWriteJSONL(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.RecordDispatch(ctx, event1002()); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.WriteJSONL(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	want := `{"ts":1700000000,"opId":1002,"procId":1002,"argc":3}` + "\n"
	if buf.String() != want {
		t.Errorf("WriteJSONL() = %q, want %q", buf.String(), want)
	}
}

func TestStore_IsDispatcherSink(t *testing.T) {
	s := createTestStore(t)
	snap, err := schema.NewSnapshot(schema.Default())
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch.New(snap, dispatch.AllowAll(), dispatch.WithAuditSink(s))

	_, err = d.Dispatch(context.Background(), dispatch.Request{
		OpID: 1002,
		Args: []ir.Value{ir.String("k"), ir.NewInt(1), ir.NewInt(2)},
	})
	if err != nil {
		t.Fatal(err)
	}

	ds, _ := s.ReadDispatches(context.Background())
	if len(ds) != 1 {
		t.Fatalf("got %d rows, want 1", len(ds))
	}
	if ds[0].Digest != "f4fa291bf0dcbabf3ef12907efb2bff23db924a9bc98f85935ce93717062a4f1" {
		t.Errorf("digest = %s", ds[0].Digest)
	}
}

func TestReplay(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	full, err := schema.NewSnapshot(schema.Default())
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch.New(full, dispatch.AllowAll(), dispatch.WithAuditSink(s))
	reqs := []dispatch.Request{
		{OpID: 1002, Args: []ir.Value{ir.String("k"), ir.NewInt(1), ir.NewInt(2)}},
		{OpID: 1001, Args: []ir.Value{ir.String("q")}},
		{OpID: 9001},
	}
	for _, r := range reqs {
		if _, err := d.Dispatch(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	report, err := s.Replay(ctx, dispatch.New(full, dispatch.AllowAll()))
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Matched != 3 || len(report.Mismatches) != 0 {
		t.Errorf("replay against same schema = %+v", report)
	}

	// 1001 removed and 9001 now routed to another procedure
	tbl := schema.Default()
	var ops []schema.Op
	var sigs []schema.Signature
	for _, op := range tbl.Ops {
		switch op.ID {
		case 1001:
			continue
		case 9001:
			op.Proc = 9999
		}
		ops = append(ops, op)
	}
	for _, sig := range tbl.Signatures {
		if sig.OpID != 1001 {
			sigs = append(sigs, sig)
		}
	}
	changed, err := schema.NewSnapshot(&schema.Table{Ops: ops, Signatures: sigs})
	if err != nil {
		t.Fatal(err)
	}

	report, err = s.Replay(ctx, dispatch.New(changed, dispatch.AllowAll()))
	if err != nil {
		t.Fatal(err)
	}
	want := []Mismatch{
		{Seq: 2, OpID: 1001, Reason: "op"},
		{Seq: 3, OpID: 9001, Reason: "proc"},
	}
	if report.Matched != 1 || len(report.Mismatches) != 2 {
		t.Fatalf("replay against changed schema = %+v", report)
	}
	for i, m := range want {
		if report.Mismatches[i] != m {
			t.Errorf("mismatch[%d] = %+v, want %+v", i, report.Mismatches[i], m)
		}
	}
}

func TestWriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "snapshot.json")

	if err := WriteSnapshot(path, fixedTime, map[string]any{"files": 3}); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\"ts\":1700000000,\"meta\":{\"files\":3}}\n" {
		t.Errorf("snapshot = %q", got)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Errorf("snapshot is not JSON: %v", err)
	}

	// overwritten, not appended
	if err := WriteSnapshot(path, fixedTime, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "{\"ts\":1700000000,\"meta\":{}}\n" {
		t.Errorf("snapshot = %q", got)
	}
}
