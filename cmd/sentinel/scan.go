package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/bootstrap"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/ingest"
	"github.com/raaihank/literal-sentinel/internal/privacy"
	"github.com/raaihank/literal-sentinel/internal/report"
	"github.com/raaihank/literal-sentinel/internal/store"
)

type scanOptions struct {
	catalogFile    string
	reportDir      string
	workers        int
	jsonOutput     bool
	failOnSecurity bool
	redact         bool
}

func newScanCommand(a *app) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Analyse the source files under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("catalog") {
				a.cfg.Scan.CatalogFile = opts.catalogFile
			}
			if cmd.Flags().Changed("report-dir") {
				a.cfg.Scan.ReportDir = opts.reportDir
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Scan.Workers = opts.workers
			}
			if cmd.Flags().Changed("redact") {
				a.cfg.Privacy.Redact = opts.redact
			}
			return runScan(cmd, a, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogFile, "catalog", "", "Catalog file overriding scan.catalog_file")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Write a JSON report into this directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent documents (0 uses all CPUs)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full report as JSON instead of a summary")
	cmd.Flags().BoolVar(&opts.failOnSecurity, "fail-on-security", false, "Exit with status 2 when secret or confidential literals are found")
	cmd.Flags().BoolVar(&opts.redact, "redact", false, "Mask sensitive literals in reports (privacy.redact)")
	return cmd
}

func runScan(cmd *cobra.Command, a *app, root string, opts *scanOptions) error {
	ctx := cmd.Context()
	log := a.log

	services, err := bootstrap.Initialize(a.cfg, log)
	if err != nil {
		return err
	}
	defer services.Close()

	start := time.Now()
	docs, stats, err := ingest.WalkDirectory(ctx, root, bootstrap.ScanPolicy(a.cfg.Scan), log.WithComponent("ingest").Logger)
	if err != nil {
		return err
	}

	result, err := services.Engine.Run(ctx, docs)
	if err != nil {
		return err
	}

	securityHits := len(result.Batches.SecurityPriority)
	if a.cfg.Privacy.Redact {
		redactor, err := privacy.New(a.cfg.Privacy, log.WithComponent("privacy"))
		if err != nil {
			return err
		}
		result = redactor.RedactResult(result).Result
	}

	runID := store.NewRunID()
	log.WithRunID(runID).Info("Directory analysed",
		zap.String("root", root),
		zap.Int64("files_read", stats.Read),
		zap.Int64("files_skipped", stats.Skipped+stats.TooLarge),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("duration", time.Since(start)))

	var sinks []report.Sink
	var jsonReport *report.JSONFile
	if a.cfg.Scan.ReportDir != "" {
		jsonReport = report.NewJSONFile(a.cfg.Scan.ReportDir)
		sinks = append(sinks, jsonReport)
	}
	if services.Store != nil {
		sinks = append(sinks, &report.StoreSink{
			Store:              services.Store,
			Source:             root,
			CatalogFingerprint: services.Engine.Fingerprint(),
		})
	}
	multi := &report.Multi{Sinks: sinks, Logger: log.WithRunID(runID).Logger}
	if err := multi.Publish(ctx, runID, result); err != nil {
		log.Warn("Some reports were not written", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.Document{
			RunID:       runID,
			GeneratedAt: time.Now().UTC(),
			Summary:     report.Summarize(result),
			Result:      result,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Run %s\n", runID)
		if err := report.Summarize(result).WriteText(out); err != nil {
			return err
		}
		if jsonReport != nil {
			fmt.Fprintf(out, "Report written to %s\n", jsonReport.Path(runID))
		}
	}

	if opts.failOnSecurity && securityHits > 0 {
		return errSecurityFindings
	}
	return nil
}

func newRewriteCommand(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "rewrite <file>",
		Short: "Print a file with its literals replaced by suggested placeholders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			services, err := bootstrap.Initialize(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer services.Close()

			doc := engine.Document{
				Path:         path,
				Content:      strings.ToValidUTF8(string(data), ""),
				FileCategory: ingest.FileCategoryFor(path),
			}
			rewritten := privacy.Rewrite(doc, services.Engine.ScanDocument(doc))

			if write {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(rewritten.MaskedText), info.Mode().Perm()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d literals replaced, %d skipped\n",
					path, len(rewritten.Replacements), rewritten.Skipped)
				return nil
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), rewritten.MaskedText)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite the file in place instead of printing it")
	return cmd
}
