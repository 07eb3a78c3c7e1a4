package engine

// Confidence thresholds and the conversion-rate ceiling
const (
	ImmediateThreshold         = 80.0
	BatchThreshold             = 60.0
	MaxEstimatedConversionRate = 95.0
)

// Aggregate reduces the candidates of a run into category counts and remediation
// batches. Candidate order is preserved in every batch.
func Aggregate(candidates []Candidate, diagnostics []Diagnostic, documents int) *AggregateResult {
	result := &AggregateResult{
		DocumentsScanned: documents,
		Candidates:       candidates,
		ByCategory:       make(map[string]int),
		Batches: Batches{
			SecurityPriority: []Candidate{},
			Immediate:        []Candidate{},
			BatchConversion:  []Candidate{},
			ManualReview:     []Candidate{},
		},
		Diagnostics: diagnostics,
	}
	if result.Candidates == nil {
		result.Candidates = []Candidate{}
	}

	for _, c := range candidates {
		result.ByCategory[c.Category]++

		if c.SecurityLevel == SecuritySecret || c.SecurityLevel == SecurityConfidential {
			result.Batches.SecurityPriority = append(result.Batches.SecurityPriority, c)
		}

		switch {
		case c.ConfidenceScore >= ImmediateThreshold:
			result.Batches.Immediate = append(result.Batches.Immediate, c)
		case c.ConfidenceScore >= BatchThreshold:
			result.Batches.BatchConversion = append(result.Batches.BatchConversion, c)
		default:
			result.Batches.ManualReview = append(result.Batches.ManualReview, c)
		}
	}

	total := len(candidates)
	if total < 1 {
		total = 1
	}
	rate := float64(len(result.Batches.Immediate)) / float64(total) * 100
	if rate > MaxEstimatedConversionRate {
		rate = MaxEstimatedConversionRate
	}
	result.EstimatedConversionRate = rate

	return result
}
