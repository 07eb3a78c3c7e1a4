package privacy

import "github.com/raaihank/literal-sentinel/internal/engine"

// DefaultReplacement is written in place of redacted literals
const DefaultReplacement = "[REDACTED]"

// Finding counts the literals masked for one security level
type Finding struct {
	SecurityLevel engine.SecurityLevel `json:"security_level"`
	Count         int                  `json:"count"`
}

// RedactResult is a run with sensitive literals masked
type RedactResult struct {
	Result   *engine.AggregateResult `json:"result"`
	Findings []Finding               `json:"findings"`
}

// Replacement is one placeholder substitution applied by Rewrite
type Replacement struct {
	LineNumber  int    `json:"line_number"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
}

// RewriteResult contains a document with its literals replaced by placeholders
type RewriteResult struct {
	MaskedText   string        `json:"masked_text"`
	Replacements []Replacement `json:"replacements"`
	// Skipped counts candidates that overlapped an earlier replacement or no longer
	// matched the document text
	Skipped  int    `json:"skipped"`
	Original string `json:"-"` // Never serialize original text
}
