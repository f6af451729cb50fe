package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/config"
	"github.com/roach88/aiir/internal/dispatch"
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/store"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	OpID        uint32
	Args        string // JSON array of scalars
	AllowDBExec string
	AllowOps    string
	WAL         string // audit log to record accepted requests in
}

// DispatchResult is an accepted request.
type DispatchResult struct {
	dispatch.Result
	Digest string `json:"digest"`
}

func (r DispatchResult) String() string {
	return fmt.Sprintf("accepted op %d -> proc %d (%d args, %s)\ndigest %s",
		r.OpID, r.ProcID, r.ArgCount, r.Mode, r.Digest)
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <core-dir>",
		Short: "Authorize one operation request against the schema packet",
		Long: `Run a request through the policy, schema and type gates of the
dry-run dispatcher, using the schema packet in the core directory. Nothing
is executed. Policy flags take the same syntax as AI_POLICY_ALLOW_DB_EXEC
and AI_POLICY_ALLOW_OPS; by default every op is allowed.

Exit codes:
  0 - Request accepted
  1 - Request rejected
  2 - Command error (missing schema packet, malformed --args)

Examples:
  aiir dispatch ai/core --op 1002 --args '["key", 1, 2]'
  aiir dispatch ai/core --op 9001 --allow-ops 1001,1002
  aiir dispatch ai/core --op 1001 --args '["k"]' --wal ai/state/ai.wal`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.OpID, "op", 0, "operation id (required)")
	cmd.Flags().StringVar(&opts.Args, "args", "[]", "arguments as a JSON array of scalars")
	cmd.Flags().StringVar(&opts.AllowDBExec, "allow-db-exec", "yes", "master exec switch (1/true/yes, 0/false/no)")
	cmd.Flags().StringVar(&opts.AllowOps, "allow-ops", "*", `allowed op ids ("*" or a comma-separated list)`)
	cmd.Flags().StringVar(&opts.WAL, "wal", "", "record accepted requests in this audit log")
	cmd.MarkFlagRequired("op")

	return cmd
}

func runDispatch(opts *DispatchOptions, coreDir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	args, err := ir.DecodeArgs([]byte(opts.Args))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("invalid --args: %v", err), nil)
	}

	snap, err := schema.LoadFile(coreDir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCoreLoad, fmt.Sprintf("failed to load schema packet: %v", err), nil)
	}

	var dopts []dispatch.Option
	if opts.WAL != "" {
		st, err := store.Open(opts.WAL)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open audit log", err)
		}
		defer st.Close()
		dopts = append(dopts, dispatch.WithAuditSink(st))
	}

	d := dispatch.New(snap, config.ParsePolicy(opts.AllowDBExec, opts.AllowOps), dopts...)
	req := dispatch.Request{OpID: opts.OpID, Args: args}
	res, err := d.Dispatch(cmd.Context(), req)
	if err != nil {
		details := map[string]any{
			"opId":   opts.OpID,
			"reason": dispatch.ReasonOf(err),
			"code":   string(dispatch.CodeOf(err)),
		}
		return f.Fail(ExitFailure, ErrCodeRejected, err.Error(), details)
	}

	digest, err := ir.AuditDigest(res.OpID, res.ProcID, args)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compute digest", err)
	}
	return f.Success(DispatchResult{Result: res, Digest: digest})
}
