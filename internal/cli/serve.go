package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/aiir/internal/config"
	"github.com/roach88/aiir/internal/runtime"
	"github.com/roach88/aiir/internal/server"
)

// ServeInfo is printed once the runtime is listening.
type ServeInfo struct {
	Addr    string `json:"addr"`
	CoreDir string `json:"coreDir"`
	Files   int    `json:"files"`
}

func (s ServeInfo) String() string {
	return fmt.Sprintf("serving %s on %s (%d files)", s.CoreDir, s.Addr, s.Files)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a core directory over HTTP",
		Long: `Load the core directory and serve GET /health, GET /ai/meta,
GET /ai/render/{id} and POST /ai/db/exec until interrupted. Flags override
AI_CORE_DIR, AI_RUNTIME_HOST and AI_RUNTIME_PORT.

Examples:
  aiir serve --core ai/core
  AI_POLICY_ALLOW_OPS=1001,1002 aiir serve --port 8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, "")
		},
	}

	cmd.Flags().String("core", "", "core directory")
	addServeFlags(cmd)
	return cmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "listen host")
	cmd.Flags().Int("port", 0, "listen port")
}

// runServe loads the runtime and blocks until SIGINT or SIGTERM. A
// non-empty coreDir overrides the configured one.
func runServe(cmd *cobra.Command, opts *RootOptions, coreDir string) error {
	cfg, err := opts.loadConfig(cmd, map[string]string{
		config.KeyCoreDir: "core",
		config.KeyHost:    "host",
		config.KeyPort:    "port",
	})
	if err != nil {
		return err
	}
	if coreDir != "" {
		cfg.CoreDir = coreDir
	}

	rt, err := runtime.Load(cfg, runtime.Options{})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load runtime", err)
	}
	defer rt.Close()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := ServeInfo{Addr: ln.Addr().String(), CoreDir: cfg.CoreDir, Files: rt.Meta().Files}
	if err := opts.formatter(cmd).Success(info); err != nil {
		ln.Close()
		return err
	}
	if err := server.New(rt).Serve(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "server stopped", err)
	}
	return nil
}
