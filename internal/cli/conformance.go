package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/validate"
)

// maxIterations bounds the iteration argument; larger values are ignored.
const maxIterations = 1000000

// ConformanceOptions holds flags for the conformance command.
type ConformanceOptions struct {
	*RootOptions
	Seed   uint32
	Target string // "artifact" (first lite packet) or "schema"
}

// ConformanceResult is the outcome of a mutation run.
type ConformanceResult struct {
	Target string `json:"target"`
	Words  int    `json:"words"`
	validate.Report
	RejectRate float64 `json:"rejectRate"`
}

func (r ConformanceResult) String() string {
	baseline := "baseline valid"
	if !r.BaselineValid {
		baseline = "baseline INVALID"
	}
	return fmt.Sprintf("conformance %s (%d words): %d iterations, %d rejected (%.1f%%), %s",
		r.Target, r.Words, r.Iterations, r.Rejected, r.RejectRate*100, baseline)
}

// NewConformanceCommand creates the conformance command.
func NewConformanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conformance <core-dir> [iterations]",
		Short: "Flip random bits in a packet and count how many the validator rejects",
		Long: `Validate a baseline packet from the core directory, then validate that
many single-bit mutants of it. The default target is the artifact packet of
file 0; --target schema uses the schema packet instead.

iterations defaults to 500 and must be in [1, 1000000]; other values fall
back to the default.

Exit codes:
  0 - Baseline valid
  1 - Baseline packet invalid
  2 - Command error (missing core files, etc.)

Examples:
  aiir conformance ai/core
  aiir conformance ai/core 5000 --seed 7
  aiir conformance ai/core --target schema --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			iters := validate.DefaultIterations
			if len(args) == 2 {
				iters = parseIterations(args[1])
			}
			return runConformance(opts, args[0], iters, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Seed, "seed", validate.DefaultSeed, "xorshift32 seed")
	cmd.Flags().StringVar(&opts.Target, "target", container.ArtifactProfile.Name, "packet to mutate (artifact|schema)")
	return cmd
}

func parseIterations(s string) int {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 || n > maxIterations {
		return validate.DefaultIterations
	}
	return int(n)
}

func runConformance(opts *ConformanceOptions, coreDir string, iters int, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	words, p, err := conformanceTarget(coreDir, opts.Target)
	if err != nil {
		return err
	}

	rep := validate.Conformance(words, p, validate.Options{Iterations: iters, Seed: opts.Seed})
	res := ConformanceResult{Target: p.Name, Words: len(words), Report: rep, RejectRate: rep.RejectRate()}
	if !rep.BaselineValid {
		return f.Fail(ExitFailure, ErrCodeConformance, "baseline packet is invalid", res)
	}
	return f.Success(res)
}

func conformanceTarget(coreDir, target string) ([]uint32, container.Profile, error) {
	switch target {
	case container.SchemaProfile.Name:
		words, err := container.LoadPreferred(coreDir, schema.PacketStem)
		if err != nil {
			return nil, container.Profile{}, WrapExitError(ExitCommandError, "failed to load schema packet", err)
		}
		return words, container.SchemaProfile, nil

	case container.ArtifactProfile.Name:
		table, err := container.LoadPreferred(coreDir, corpus.LiteTableStem)
		if err != nil {
			return nil, container.Profile{}, WrapExitError(ExitCommandError, "failed to load lite table", err)
		}
		blob, err := container.LoadPreferred(coreDir, corpus.LiteBlobStem)
		if err != nil {
			return nil, container.Profile{}, WrapExitError(ExitCommandError, "failed to load lite blob", err)
		}
		core := &corpus.Core{LiteTable: table, LiteBlob: blob}
		words, ok := core.Packet(0)
		if !ok {
			return nil, container.Profile{}, NewExitError(ExitCommandError, "lite table has no usable row 0")
		}
		return words, container.ArtifactProfile, nil
	}
	return nil, container.Profile{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown target %q: must be artifact or schema", target))
}
