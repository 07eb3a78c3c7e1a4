package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// Summary holds the headline metrics of a run
type Summary struct {
	FilesAnalyzed           int             `json:"files_analyzed"`
	TotalCandidates         int             `json:"total_candidates"`
	HighConfidence          int             `json:"high_confidence"`
	SecurityCritical        int             `json:"security_critical"`
	Categories              []CategoryTotal `json:"categories"`
	TopPlaceholders         []CategoryTotal `json:"top_placeholders"`
	EstimatedConversionRate float64         `json:"estimated_conversion_rate"`
}

// CategoryTotal is a named count
type CategoryTotal struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

const topPlaceholders = 10

// Summarize computes the summary of a result
func Summarize(result *engine.AggregateResult) Summary {
	placeholders := make(map[string]int)
	for _, c := range result.Candidates {
		placeholders[c.SuggestedPlaceholder]++
	}

	top := sortedTotals(placeholders)
	if len(top) > topPlaceholders {
		top = top[:topPlaceholders]
	}

	return Summary{
		FilesAnalyzed:           result.DocumentsScanned,
		TotalCandidates:         len(result.Candidates),
		HighConfidence:          len(result.Batches.Immediate),
		SecurityCritical:        len(result.Batches.SecurityPriority),
		Categories:              sortedTotals(result.ByCategory),
		TopPlaceholders:         top,
		EstimatedConversionRate: result.EstimatedConversionRate,
	}
}

// sortedTotals orders by count descending, then name
func sortedTotals(counts map[string]int) []CategoryTotal {
	totals := make([]CategoryTotal, 0, len(counts))
	for name, n := range counts {
		totals = append(totals, CategoryTotal{Name: name, Count: n})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Count != totals[j].Count {
			return totals[i].Count > totals[j].Count
		}
		return totals[i].Name < totals[j].Name
	})
	return totals
}

// WriteText prints the summary as an aligned table
func (s Summary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Files analyzed\t%d\n", s.FilesAnalyzed)
	fmt.Fprintf(tw, "Candidates\t%d\n", s.TotalCandidates)
	fmt.Fprintf(tw, "High confidence\t%d\n", s.HighConfidence)
	fmt.Fprintf(tw, "Security critical\t%d\n", s.SecurityCritical)
	fmt.Fprintf(tw, "Estimated conversion rate\t%.1f%%\n", s.EstimatedConversionRate)
	if len(s.Categories) > 0 {
		fmt.Fprintln(tw, "\nCategory\tCount")
		for _, c := range s.Categories {
			fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
		}
	}
	if len(s.TopPlaceholders) > 0 {
		fmt.Fprintln(tw, "\nPlaceholder\tUses")
		for _, p := range s.TopPlaceholders {
			fmt.Fprintf(tw, "%s\t%d\n", p.Name, p.Count)
		}
	}
	return tw.Flush()
}
