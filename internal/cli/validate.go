package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/artifact"
	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Profile string
}

// SectionInfo describes one TOC entry.
type SectionInfo struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name,omitempty"`
	Offset   uint32 `json:"offset"`
	Length   uint32 `json:"length"`
	RowWidth uint32 `json:"rowWidth"`
}

// ValidateResult describes a valid packet.
type ValidateResult struct {
	Path     string            `json:"path"`
	Profile  string            `json:"profile"`
	Words    int               `json:"words"`
	Sections []SectionInfo     `json:"sections"`
	Summary  *artifact.Summary `json:"summary,omitempty"`
	Meta     *artifact.Meta    `json:"meta,omitempty"`
	Ops      int               `json:"ops,omitempty"`
	Sigs     int               `json:"signatures,omitempty"`
}

func (r ValidateResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s: valid %s packet, %d words, %d sections", r.Path, r.Profile, r.Words, len(r.Sections))
	for _, s := range r.Sections {
		name := s.Name
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(&b, "\n  [%d] %-14s offset %d length %d width %d", s.ID, name, s.Offset, s.Length, s.RowWidth)
	}
	if r.Summary != nil {
		fmt.Fprintf(&b, "\n  records: %d code, %d slot, %d meta", r.Summary.CodeRecords, r.Summary.SlotRecords, r.Summary.MetaRecords)
	}
	if r.Meta != nil {
		fmt.Fprintf(&b, "\n  source: %d bytes, %d lines, language %d, %d tokens", r.Meta.ContentLength, r.Meta.Lines, r.Meta.Language, r.Meta.Tokens)
	}
	if r.Profile == container.SchemaProfile.Name {
		fmt.Fprintf(&b, "\n  schema: %d ops, %d signatures", r.Ops, r.Sigs)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <packet-file>",
		Short: "Check a packet file against the container layout",
		Long: `Read a word file (.aiir or .u32) and check it against the container
layout invariants and a profile. Without --profile the profile is chosen by
the packet's magic word. Schema packets are also loaded as an operation
table.

Exit codes:
  0 - Packet valid
  1 - Packet invalid
  2 - Command error (unreadable file, unknown profile)

Examples:
  aiir validate ai/core/db.packet.aiir
  aiir validate packet.u32 --profile artifact --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "container profile (artifact|schema)")
	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	words, err := container.ReadWordsFile(path)
	if err != nil {
		if container.IsStructuralError(err) {
			return structuralFailure(f, err)
		}
		return WrapExitError(ExitCommandError, "failed to read packet", err)
	}

	p, err := resolveProfile(opts.Profile, words)
	if err != nil {
		return err
	}
	f.VerboseLog("validating %s (%d words) with the %s profile", path, len(words), p.Name)

	if err := validate.Packet(words, p, len(words)); err != nil {
		return structuralFailure(f, err)
	}
	c, err := container.DecodeWords(words, p)
	if err != nil {
		return structuralFailure(f, err)
	}

	res := ValidateResult{Path: path, Profile: p.Name, Words: len(words)}
	for _, e := range c.Sections() {
		info := SectionInfo{ID: e.ID, Offset: e.Offset, Length: e.Length, RowWidth: e.RowWidth}
		if spec, ok := p.Spec(e.ID); ok {
			info.Name = spec.Name
		}
		res.Sections = append(res.Sections, info)
	}

	switch p.Name {
	case container.ArtifactProfile.Name:
		sum := artifact.Summarize(c, artifact.FallbackCodeInfo)
		res.Summary = &sum
		if m, ok := artifact.ReadMeta(c); ok {
			res.Meta = &m
		}
	case container.SchemaProfile.Name:
		snap, err := schema.Load(c)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeStructural, err.Error(), nil)
		}
		res.Ops = len(snap.Ops())
		res.Sigs = len(snap.Signatures())
	}
	return f.Success(res)
}

// resolveProfile returns the named profile, or the one whose magic matches
// the first word when name is empty.
func resolveProfile(name string, words []uint32) (container.Profile, error) {
	if name != "" {
		p, ok := container.ProfileByName(name)
		if !ok {
			return container.Profile{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown profile %q: must be artifact or schema", name))
		}
		return p, nil
	}
	if len(words) > 0 {
		for _, p := range []container.Profile{container.ArtifactProfile, container.SchemaProfile} {
			if words[0] == p.Magic {
				return p, nil
			}
		}
	}
	// Unknown magic: the artifact profile reports it as a structural error.
	return container.ArtifactProfile, nil
}

func structuralFailure(f *OutputFormatter, err error) error {
	details := map[string]any{"code": string(container.StructuralCode(err))}
	return f.Fail(ExitFailure, ErrCodeStructural, err.Error(), details)
}
