package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/schema"
)

// RebuildOptions holds flags shared by the rebuild commands.
type RebuildOptions struct {
	*RootOptions
	Schema string // CUE operation table; empty means the built-in one
}

// RebuildResult reports what a rebuild wrote.
type RebuildResult struct {
	Dir    string              `json:"dir"`
	Core   *corpus.Stats       `json:"core,omitempty"`
	Schema *corpus.SchemaStats `json:"schema,omitempty"`
}

func (r RebuildResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "core dir: %s", r.Dir)
	if r.Core != nil {
		fmt.Fprintf(&b, "\ncore: %d repos, %d packets, %d table words, %d blob words, %d adapt ids, %d adapt blob words",
			r.Core.Repos, r.Core.Packets, r.Core.TableWords, r.Core.BlobWords, r.Core.AdaptIDs, r.Core.AdaptBlobWords)
	}
	if r.Schema != nil {
		fmt.Fprintf(&b, "\nschema packet: %d words, %d ops, %d signatures",
			r.Schema.TotalWords, r.Schema.Ops, r.Schema.Signatures)
	}
	return b.String()
}

// NewRebuildDBCommand creates the rebuild-db command.
func NewRebuildDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rebuild-db <core-dir>",
		Short: "Write the operation schema packet",
		Long: `Compile the operation table and write db.packet.aiir into the core
directory. Without --schema the built-in table is used.

Examples:
  aiir rebuild-db ai/core
  aiir rebuild-db ai/core --schema ./ops.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := RebuildResult{Dir: args[0]}
			if err := rebuildSchema(opts, args[0], &res); err != nil {
				return err
			}
			return opts.formatter(cmd).Success(res)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE operation table")
	return cmd
}

// NewRebuildCoreCommand creates the rebuild-core command.
func NewRebuildCoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rebuild-core <git-root> <core-dir>",
		Short: "Rebuild artifact packets from the repositories under git-root",
		Long: `Walk every repository under git-root and write the lite and adapt
tables and blobs into the core directory. Limits come from AI_MAX_* settings.

Examples:
  aiir rebuild-core ~/src ai/core`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := RebuildResult{Dir: args[1]}
			if err := rebuildCore(cmd, opts, args[0], args[1], &res); err != nil {
				return err
			}
			return opts.formatter(cmd).Success(res)
		},
	}
	return cmd
}

// NewRebuildAllCommand creates the rebuild-all command.
func NewRebuildAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "rebuild-all <git-root> <core-dir>",
		Short:         "Write the schema packet, then rebuild the core",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rebuildAll(cmd, opts, args[0], args[1])
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Success(res)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE operation table")
	return cmd
}

// BootstrapOptions holds flags for the bootstrap command.
type BootstrapOptions struct {
	RebuildOptions
	Serve bool
}

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BootstrapOptions{RebuildOptions: RebuildOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "bootstrap <git-root> <core-dir>",
		Short: "Rebuild everything and optionally start the runtime",
		Long: `Run rebuild-all, then with --serve start the runtime on the fresh core
directory until interrupted.

Examples:
  aiir bootstrap ~/src ai/core
  aiir bootstrap ~/src ai/core --serve --port 7788`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rebuildAll(cmd, &opts.RebuildOptions, args[0], args[1])
			if err != nil {
				return err
			}
			if err := opts.formatter(cmd).Success(res); err != nil {
				return err
			}
			if !opts.Serve {
				return nil
			}
			return runServe(cmd, opts.RootOptions, args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE operation table")
	cmd.Flags().BoolVar(&opts.Serve, "serve", false, "start the runtime after rebuilding")
	addServeFlags(cmd)
	return cmd
}

func rebuildAll(cmd *cobra.Command, opts *RebuildOptions, gitRoot, coreDir string) (RebuildResult, error) {
	res := RebuildResult{Dir: coreDir}
	if err := rebuildSchema(opts, coreDir, &res); err != nil {
		return res, err
	}
	if err := rebuildCore(cmd, opts, gitRoot, coreDir, &res); err != nil {
		return res, err
	}
	return res, nil
}

func rebuildSchema(opts *RebuildOptions, coreDir string, res *RebuildResult) error {
	t := schema.Default()
	if opts.Schema != "" {
		src, err := os.ReadFile(opts.Schema)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read schema", err)
		}
		t, err = schema.Compile(src, opts.Schema)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to compile schema", err)
		}
	}
	st, err := corpus.RebuildSchema(coreDir, t)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write schema packet", err)
	}
	res.Schema = &st
	return nil
}

func rebuildCore(cmd *cobra.Command, opts *RebuildOptions, gitRoot, coreDir string, res *RebuildResult) error {
	if _, err := os.Stat(gitRoot); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("git root not found: %s", gitRoot))
	}
	cfg, err := opts.loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	st, err := corpus.Rebuild(cmd.Context(), gitRoot, coreDir, cfg.Limits)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to rebuild core", err)
	}
	res.Core = &st
	return nil
}
