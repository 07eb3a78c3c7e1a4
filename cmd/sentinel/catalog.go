package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raaihank/literal-sentinel/internal/catalog"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate pattern catalogs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List the categories and rules of the configured catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := catalog.LoadFile(a.cfg.Scan.CatalogFile)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tWEIGHT\tRULE\tPATTERN")
			for _, c := range cat.Categories() {
				for _, rule := range c.Rules {
					fmt.Fprintf(tw, "%s\t%g\t%d\t%s\n", c.Name, c.BaseWeight, rule.Index, rule.Source)
				}
			}
			fmt.Fprintf(tw, "\nfingerprint\t%s\n", cat.Fingerprint())
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Compile a catalog file and report skipped entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Scan.CatalogFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no catalog file given and scan.catalog_file is empty")
			}

			cat, vocab, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range cat.Warnings() {
				fmt.Fprintf(out, "skipped: %v\n", w)
			}
			fmt.Fprintf(out, "%s: %d categories, %d rules, %d direct keywords\n",
				path, len(cat.Categories()), cat.RuleCount(), len(vocab.Direct()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the bundled catalog as a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file := catalog.File{
				Categories: catalog.DefaultCategories(),
				Vocabulary: &catalog.VocabularyFile{
					Direct:   catalog.DefaultDirect(),
					Cascades: catalog.DefaultCascades(),
				},
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(file); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	return cmd
}
