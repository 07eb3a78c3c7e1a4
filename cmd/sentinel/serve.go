package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/api"
	"github.com/raaihank/literal-sentinel/internal/bootstrap"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/report"
)

func newServeCommand(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan API and live dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the catalog when the configuration file changes")
	return cmd
}

func runServe(ctx context.Context, a *app, watch bool) error {
	log := a.log
	cfg := a.cfg

	log.Info("Starting Literal-Sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	services, err := bootstrap.Initialize(cfg, log)
	if err != nil {
		return err
	}
	defer services.Close()

	deps := api.Dependencies{NewEngine: services.NewEngine}
	if services.Store != nil {
		deps.Store = services.Store
	}
	if cfg.Scan.ReportDir != "" {
		deps.Sinks = append(deps.Sinks, report.NewJSONFile(cfg.Scan.ReportDir))
	}

	server, err := api.New(cfg, log, services.Engine, deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	catalogFile := cfg.Scan.CatalogFile
	reloads := make(chan string, 1)
	if watch && a.loader.ConfigFileUsed() != "" {
		err := a.loader.Watch(func(next *config.Config) {
			select {
			case reloads <- next.Scan.CatalogFile:
			default:
			}
		}, func(err error) {
			log.Warn("Configuration change rejected", zap.Error(err))
		})
		if err != nil {
			log.Warn("Configuration watch unavailable", zap.Error(err))
		}
	}

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.Start(ctx)
	}()

	for {
		select {
		case err := <-serverErrors:
			if err != nil {
				log.Error("Server error", zap.Error(err))
			}
			return err
		case path := <-reloads:
			catalogFile = path
			if _, err := server.ReloadCatalog(catalogFile); err != nil {
				log.Error("Catalog reload failed, keeping current catalog", zap.Error(err))
			}
		case <-hangup:
			log.Info("SIGHUP received, reloading catalog", zap.String("catalog_file", catalogFile))
			if _, err := server.ReloadCatalog(catalogFile); err != nil {
				log.Error("Catalog reload failed, keeping current catalog", zap.Error(err))
			}
		case <-ctx.Done():
			log.Info("Shutdown signal received")

			// Give outstanding requests 30 seconds to complete
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelShutdown()

			if err := server.Stop(shutdownCtx); err != nil {
				log.Error("Failed to shutdown server gracefully", zap.Error(err))
				return err
			}

			log.Info("Server shutdown complete")
			return nil
		}
	}
}
