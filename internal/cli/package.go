package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/pack"
)

// BuildPackageResult reports a written package.
type BuildPackageResult struct {
	Out string `json:"out"`
	pack.BuildStats
}

func (r BuildPackageResult) String() string {
	return fmt.Sprintf("package %s: %d files, %d contents, %d source bytes, %d core files",
		r.Out, r.Files, r.Contents, r.SourceBytes, r.CoreFiles)
}

// UnpackResult reports a restored package.
type UnpackResult struct {
	Out string `json:"out"`
	pack.UnpackStats
}

func (r UnpackResult) String() string {
	return fmt.Sprintf("unpacked %s: format %d, %d files, %d written, %d skipped",
		r.Out, r.Format, r.Files, r.Written, r.Skipped)
}

// NewBuildPackageCommand creates the build-package command.
func NewBuildPackageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-package <src-dir> <out-dir> <core-dir>",
		Short: "Package a source tree and its core files",
		Long: `Store every file under src-dir in a portable package written to
out-dir, together with whichever core files exist in core-dir.

Examples:
  aiir build-package . dist/pkg ai/core`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("source directory not found: %s", args[0]))
			}
			st, err := pack.Build(args[0], args[1], args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build package", err)
			}
			return rootOpts.formatter(cmd).Success(BuildPackageResult{Out: args[1], BuildStats: st})
		},
	}
	return cmd
}

// NewUnpackPackageCommand creates the unpack-package command.
func NewUnpackPackageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack-package <package-dir> <out-dir>",
		Short: "Restore the files stored in a package",
		Long: `Write every file recorded in the package under out-dir. Entries whose
path would escape out-dir are skipped.

Examples:
  aiir unpack-package dist/pkg /tmp/restored`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := pack.Unpack(args[0], args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to unpack package", err)
			}
			return rootOpts.formatter(cmd).Success(UnpackResult{Out: args[1], UnpackStats: st})
		},
	}
	return cmd
}
