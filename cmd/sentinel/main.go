package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raaihank/literal-sentinel/internal/api"
	"github.com/raaihank/literal-sentinel/internal/bootstrap"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/logger"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// errSecurityFindings makes `scan --fail-on-security` exit with status 2
var errSecurityFindings = errors.New("security priority candidates found")

// app carries the state shared by all subcommands
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	loader *config.Loader
	log    *logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errSecurityFindings):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "sentinel",
		Short:        "Find hard-coded configuration literals and suggest placeholders",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level")

	root.AddCommand(
		newScanCommand(a),
		newRewriteCommand(a),
		newServeCommand(a),
		newCatalogCommand(a),
		newRunsCommand(a),
		newCacheCommand(a),
		newHealthCommand(a),
		newVersionCommand(),
	)
	return root
}

// init loads configuration and the logger
func (a *app) init() error {
	cfg, loader, err := config.NewLoader(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	log, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.loader = loader
	a.log = log
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Literal-Sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// newHealthCommand checks a running server, for container health probes
func newHealthCommand(a *app) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Perform health check against a running server and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = fmt.Sprintf("http://localhost:%d/health", a.cfg.Server.Port)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: HTTP %d", resp.StatusCode)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Health check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Health endpoint (default http://localhost:<server.port>/health)")
	return cmd
}

func init() {
	api.Version = version
}
