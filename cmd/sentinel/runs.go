package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raaihank/literal-sentinel/internal/bootstrap"
	"github.com/raaihank/literal-sentinel/internal/cache"
	"github.com/raaihank/literal-sentinel/internal/store"
)

func (a *app) openStore() (*store.Store, error) {
	if !a.cfg.Store.Enabled {
		return nil, errors.New("result store is disabled (set store.enabled)")
	}
	return store.NewStore(bootstrap.StoreConfig(a.cfg.Store), a.log.WithComponent("store").Logger)
}

func newRunsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query persisted analysis runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOURCE\tFINISHED\tDOCUMENTS\tCANDIDATES\tSECURITY\tRATE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f%%\n",
					r.ID, r.Source, r.FinishedAt.Format(time.RFC3339),
					r.DocumentsScanned, r.CandidateCount, r.SecurityPriorityCount, r.EstimatedConversionRate)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run and its candidates as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			candidates, err := st.Candidates(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			counts, err := st.CategoryCounts(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"run":        run,
				"categories": counts,
				"candidates": candidates,
			})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}

	var top int
	placeholders := &cobra.Command{
		Use:   "placeholders",
		Short: "Show the placeholders suggested most often across runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			usage, err := st.TopPlaceholders(cmd.Context(), top)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLACEHOLDER\tCATEGORY\tUSES\tLAST SEEN")
			for _, u := range usage {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", u.Placeholder, u.Category, u.UsageFrequency, u.LastSeen.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	placeholders.Flags().IntVar(&top, "top", 20, "Number of placeholders to show")

	cmd.AddCommand(list, show, remove, placeholders)
	return cmd
}

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the Redis result cache",
	}

	open := func() (*cache.ResultCache, error) {
		if !a.cfg.Cache.Enabled {
			return nil, errors.New("result cache is disabled (set cache.enabled)")
		}
		return cache.NewResultCache(bootstrap.CacheConfig(a.cfg.Cache), a.log.WithComponent("cache").Logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := open()
			if err != nil {
				return err
			}
			defer rc.Close()

			stats, err := rc.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n=== Cache Statistics ===\n")
			fmt.Fprintf(out, "Total Keys:         %d\n", stats.TotalKeys)
			fmt.Fprintf(out, "Memory Usage:       %.2f MB\n", float64(stats.MemoryUsage)/1024/1024)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached document result",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := open()
			if err != nil {
				return err
			}
			defer rc.Close()

			if err := rc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	})

	return cmd
}
