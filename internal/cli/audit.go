package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/config"
	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/store"
)

// AuditOptions holds flags for the audit subcommands.
type AuditOptions struct {
	*RootOptions
	WAL         string
	AllowDBExec string
	AllowOps    string
}

// ReplayMismatch is one recorded request that no longer replays.
type ReplayMismatch struct {
	Seq    int64  `json:"seq"`
	OpID   uint32 `json:"opId"`
	Reason string `json:"reason"`
}

// ReplayResult summarizes an audit replay.
type ReplayResult struct {
	WAL        string           `json:"wal"`
	Total      int              `json:"total"`
	Matched    int              `json:"matched"`
	Mismatches []ReplayMismatch `json:"mismatches"`
}

func (r ReplayResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replayed %d recorded requests from %s: %d matched, %d mismatched",
		r.Total, r.WAL, r.Matched, len(r.Mismatches))
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "\n  ✗ [%d] op %d: %s", m.Seq, m.OpID, m.Reason)
	}
	return b.String()
}

// NewAuditCommand creates the audit command and its subcommands.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the dispatch audit log",
		Long: `Inspect the SQLite audit log the runtime records accepted requests in.
The log path defaults to AI_WAL_PATH.`,
	}
	cmd.PersistentFlags().StringVar(&opts.WAL, "wal", "", "audit log path (overrides AI_WAL_PATH)")

	cmd.AddCommand(newAuditExportCommand(opts))
	cmd.AddCommand(newAuditReplayCommand(opts))
	return cmd
}

func newAuditExportCommand(opts *AuditOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the audit log as JSON lines",
		Long: `Print one {"ts","opId","procId","argc"} object per recorded request,
in the order they were recorded.

Examples:
  aiir audit export --wal ai/state/ai.wal > dispatches.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.WriteJSONL(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return WrapExitError(ExitCommandError, "failed to export audit log", err)
			}
			return nil
		},
	}
}

func newAuditReplayCommand(opts *AuditOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <core-dir>",
		Short: "Re-authorize recorded requests against a schema packet",
		Long: `Re-authorize every recorded request against the schema packet in the
core directory. A request matches when it is still accepted with the same
proc id and digest. Run this after rebuilding the schema to see which
recorded traffic the new table would reject.

Exit codes:
  0 - Every recorded request matched
  1 - One or more mismatches
  2 - Command error (missing log or schema packet)

Examples:
  aiir audit replay ai/core --wal ai/state/ai.wal`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.AllowDBExec, "allow-db-exec", "yes", "master exec switch used for replay")
	cmd.Flags().StringVar(&opts.AllowOps, "allow-ops", "*", "allowed op ids used for replay")
	return cmd
}

func runAuditReplay(opts *AuditOptions, coreDir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	snap, err := schema.LoadFile(coreDir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCoreLoad, fmt.Sprintf("failed to load schema packet: %v", err), nil)
	}
	st, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	d := dispatch.New(snap, config.ParsePolicy(opts.AllowDBExec, opts.AllowOps))
	rep, err := st.Replay(cmd.Context(), d)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay audit log", err)
	}

	res := ReplayResult{WAL: st.Path(), Total: rep.Total, Matched: rep.Matched, Mismatches: []ReplayMismatch{}}
	for _, m := range rep.Mismatches {
		res.Mismatches = append(res.Mismatches, ReplayMismatch{Seq: m.Seq, OpID: m.OpID, Reason: m.Reason})
	}
	if len(res.Mismatches) == 0 {
		return f.Success(res)
	}
	msg := fmt.Sprintf("%d recorded request(s) no longer replay", len(res.Mismatches))
	if opts.Format == "json" {
		return f.Fail(ExitFailure, ErrCodeReplay, msg, res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res)
	return NewExitError(ExitFailure, msg)
}

// openStore opens an existing audit log. A missing file is an error rather
// than an empty log.
func (o *AuditOptions) openStore(cmd *cobra.Command) (*store.Store, error) {
	path := o.WAL
	if path == "" {
		cfg, err := o.loadConfig(cmd, nil)
		if err != nil {
			return nil, err
		}
		path = cfg.WALPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("audit log not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open audit log", err)
	}
	return st, nil
}
