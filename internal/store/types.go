package store

import (
	"errors"
	"time"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("analysis run not found")

// Run describes one persisted analysis run
type Run struct {
	ID                      string    `db:"id" json:"id"`
	Source                  string    `db:"source" json:"source"`
	StartedAt               time.Time `db:"started_at" json:"started_at"`
	FinishedAt              time.Time `db:"finished_at" json:"finished_at"`
	DocumentsScanned        int       `db:"documents_scanned" json:"documents_scanned"`
	CandidateCount          int       `db:"candidate_count" json:"candidate_count"`
	ImmediateCount          int       `db:"immediate_count" json:"immediate_count"`
	SecurityPriorityCount   int       `db:"security_priority_count" json:"security_priority_count"`
	EstimatedConversionRate float64   `db:"estimated_conversion_rate" json:"estimated_conversion_rate"`
	CatalogFingerprint      string    `db:"catalog_fingerprint" json:"catalog_fingerprint"`
}

// ResultRow is one candidate as stored in code_analysis_results
type ResultRow struct {
	RunID                string  `db:"run_id"`
	Seq                  int     `db:"seq"`
	DocumentPath         string  `db:"document_path"`
	LineNumber           int     `db:"line_number"`
	ColumnNumber         int     `db:"column_number"`
	Category             string  `db:"category"`
	OriginalValue        string  `db:"original_value"`
	ExtractedValue       string  `db:"extracted_value"`
	SuggestedPlaceholder string  `db:"suggested_placeholder"`
	ConfidenceScore      float64 `db:"confidence_score"`
	SecurityLevel        string  `db:"security_level"`
	ConversionComplexity string  `db:"conversion_complexity"`
}

// Candidate converts a row back to the engine type
func (r ResultRow) Candidate() engine.Candidate {
	return engine.Candidate{
		DocumentPath:         r.DocumentPath,
		LineNumber:           r.LineNumber,
		ColumnNumber:         r.ColumnNumber,
		Category:             r.Category,
		OriginalValue:        r.OriginalValue,
		ExtractedValue:       r.ExtractedValue,
		SuggestedPlaceholder: r.SuggestedPlaceholder,
		ConfidenceScore:      r.ConfidenceScore,
		SecurityLevel:        engine.SecurityLevel(r.SecurityLevel),
		ConversionComplexity: engine.Complexity(r.ConversionComplexity),
	}
}

func newResultRow(runID string, seq int, c engine.Candidate) ResultRow {
	return ResultRow{
		RunID:                runID,
		Seq:                  seq,
		DocumentPath:         c.DocumentPath,
		LineNumber:           c.LineNumber,
		ColumnNumber:         c.ColumnNumber,
		Category:             c.Category,
		OriginalValue:        c.OriginalValue,
		ExtractedValue:       c.ExtractedValue,
		SuggestedPlaceholder: c.SuggestedPlaceholder,
		ConfidenceScore:      c.ConfidenceScore,
		SecurityLevel:        string(c.SecurityLevel),
		ConversionComplexity: string(c.ConversionComplexity),
	}
}

// PlaceholderUsage is one row of placeholder_intelligence
type PlaceholderUsage struct {
	Placeholder    string    `db:"placeholder" json:"placeholder"`
	Category       string    `db:"category" json:"category"`
	UsageFrequency int64     `db:"usage_frequency" json:"usage_frequency"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
}

// CategoryCount is the number of candidates of one category in a run
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

// Config contains database configuration
type Config struct {
	// Driver is "postgres" or "sqlite". Empty means derive it from DatabaseURL.
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}
