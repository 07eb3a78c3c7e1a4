package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/bootstrap"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/etl"
	"github.com/raaihank/literal-sentinel/internal/ingest"
	"github.com/raaihank/literal-sentinel/internal/logger"
	"github.com/raaihank/literal-sentinel/internal/report"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Document corpus (CSV, Parquet, or JSON lines)")
		batchSize    = flag.Int("batch-size", 0, "Documents per batch (overrides etl.batch_size)")
		workers      = flag.Int("workers", -1, "Concurrent documents per batch (overrides scan.workers)")
		skipCache    = flag.Bool("skip-cache", false, "Skip updating Redis cache")
		validateOnly = flag.Bool("validate-only", false, "Only read and validate the corpus, don't scan")
		dryRun       = flag.Bool("dry-run", false, "Dry run - don't write to database")
		reportDir    = flag.String("report-dir", "", "Write a JSON report of the run into this directory")
		clearCache   = flag.Bool("clear-cache", false, "Remove every cached document result and exit")
		showStats    = flag.Bool("stats", false, "Show database and cache statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*clearCache && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input corpus.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input corpus.parquet --workers 8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --clear-cache\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *batchSize > 0 {
		cfg.ETL.BatchSize = *batchSize
	}
	if *workers >= 0 {
		cfg.Scan.Workers = *workers
	}
	if *skipCache {
		cfg.ETL.UpdateCache = false
	}
	if *dryRun {
		cfg.Store.Enabled = false
	}

	log, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Literal-Sentinel ETL Pipeline",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *validateOnly {
		if err := validateCorpus(ctx, cfg, *inputFile, log); err != nil {
			log.Fatal("Corpus validation failed", zap.Error(err))
		}
		return
	}

	services, err := bootstrap.Initialize(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	switch {
	case *showStats:
		err = showDatabaseStats(ctx, services)
	case *clearCache:
		err = clearResultCache(ctx, services, log)
	default:
		err = processCorpus(ctx, cfg, services, *inputFile, *reportDir, log)
	}
	if err != nil {
		log.Error("ETL pipeline failed", zap.Error(err))
		services.Close()
		os.Exit(1)
	}

	log.Info("ETL pipeline completed successfully")
}

// processCorpus scans the input corpus as one run
func processCorpus(ctx context.Context, cfg *config.Config, services *bootstrap.Services, inputFile, reportDir string, log *logger.Logger) error {
	if _, err := os.Stat(inputFile); err != nil {
		return fmt.Errorf("input file is not readable: %w", err)
	}

	var runStore etl.RunStore
	if services.Store != nil {
		runStore = services.Store
	}
	var warmer etl.CacheWarmer
	if services.Cache != nil {
		warmer = services.Cache
	}

	pipeline := etl.NewPipeline(services.Engine, runStore, warmer, bootstrap.ETLConfig(cfg.ETL), log.WithComponent("etl").Logger)

	result, aggregate, err := pipeline.ProcessFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	log.Info("Corpus processing completed",
		zap.String("file", inputFile),
		zap.String("run_id", result.RunID),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("documents_scanned", result.DocumentsScanned),
		zap.Int64("records_rejected", result.RecordsRejected),
		zap.Int64("candidates", result.Candidates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("scan_time", result.ScanTime),
		zap.Duration("database_time", result.DatabaseTime),
		zap.Duration("cache_time", result.CacheTime))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}

	if reportDir != "" {
		runID := result.RunID
		if runID == "" {
			runID = "dry-run"
		}
		if err := report.NewJSONFile(reportDir).Publish(ctx, runID, aggregate); err != nil {
			return err
		}
	}

	return report.Summarize(aggregate).WriteText(os.Stdout)
}

// validateCorpus reads the corpus without scanning and reports what would be loaded
func validateCorpus(ctx context.Context, cfg *config.Config, inputFile string, log *logger.Logger) error {
	reader := ingest.NewCorpusReader(cfg.ETL.BatchSize, cfg.ETL.MaxRecordSize, log.WithComponent("ingest").Logger)
	stats, err := reader.ReadBatches(ctx, inputFile, func(context.Context, []engine.Document) error {
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Corpus %s (%s) ===\n", inputFile, ingest.DetectFileFormat(inputFile))
	fmt.Printf("Records Read:       %d\n", stats.Read)
	fmt.Printf("Accepted:           %d\n", stats.Accepted)
	fmt.Printf("Too Large:          %d\n", stats.TooLarge)
	fmt.Printf("Invalid:            %d\n", stats.Invalid)
	return nil
}

// showDatabaseStats displays placeholder usage and cache statistics
func showDatabaseStats(ctx context.Context, services *bootstrap.Services) error {
	if services.Store != nil {
		runs, err := services.Store.ListRuns(ctx, 1)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		usage, err := services.Store.TopPlaceholders(ctx, 10)
		if err != nil {
			return fmt.Errorf("failed to get placeholder usage: %w", err)
		}

		fmt.Printf("\n=== Literal-Sentinel Result Store ===\n")
		if len(runs) > 0 {
			last := runs[0]
			fmt.Printf("Last Run:           %s (%s)\n", last.ID, last.Source)
			fmt.Printf("Candidates:         %d\n", last.CandidateCount)
			fmt.Printf("Security Priority:  %d\n", last.SecurityPriorityCount)
			fmt.Printf("Conversion Rate:    %.1f%%\n", last.EstimatedConversionRate)
		}
		for _, u := range usage {
			fmt.Printf("%-28s %-22s %d\n", u.Placeholder, u.Category, u.UsageFrequency)
		}
	}

	if services.Cache != nil {
		cacheStats, err := services.Cache.GetStats(ctx)
		if err == nil {
			fmt.Printf("\n=== Cache Statistics ===\n")
			fmt.Printf("Total Keys:         %d\n", cacheStats.TotalKeys)
			fmt.Printf("Memory Usage:       %.2f MB\n", float64(cacheStats.MemoryUsage)/1024/1024)
		}
	}

	return nil
}

// clearResultCache drops cached results, e.g. after editing the catalog
func clearResultCache(ctx context.Context, services *bootstrap.Services, log *logger.Logger) error {
	if services.Cache == nil {
		return fmt.Errorf("result cache is not enabled")
	}

	log.Info("Clearing result cache...")
	if err := services.Cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	log.Info("Result cache cleared")
	return nil
}
