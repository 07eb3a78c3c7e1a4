package engine

// FileCategory is the caller-supplied kind of a document, used to judge how hard a
// literal is to convert.
type FileCategory string

const (
	FileCategoryScript         FileCategory = "script"
	FileCategoryStructuredData FileCategory = "structured-data"
	FileCategoryMarkup         FileCategory = "markup"
	FileCategoryOther          FileCategory = "other"
)

// SecurityLevel classifies how sensitive a detected literal is
type SecurityLevel string

const (
	SecurityPublic       SecurityLevel = "PUBLIC"
	SecurityInternal     SecurityLevel = "INTERNAL"
	SecurityConfidential SecurityLevel = "CONFIDENTIAL"
	SecuritySecret       SecurityLevel = "SECRET"
)

// Complexity estimates the effort of replacing a literal with its placeholder
type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

// Document is one unit of input text
type Document struct {
	Path         string       `json:"path"`
	Content      string       `json:"content"`
	FileCategory FileCategory `json:"file_category"`
}

// RawMatch is a single rule hit inside a document, before classification
type RawMatch struct {
	DocumentPath   string
	LineNumber     int
	ColumnNumber   int
	Category       string
	RuleIndex      int
	RawText        string
	ExtractedValue string
	// ValueOffset is the byte offset of ExtractedValue inside RawText
	ValueOffset int
}

// Candidate is a classified literal with its suggested placeholder
type Candidate struct {
	DocumentPath         string        `json:"document_path"`
	LineNumber           int           `json:"line_number"`
	ColumnNumber         int           `json:"column_number"`
	Category             string        `json:"category"`
	OriginalValue        string        `json:"original_value"`
	ExtractedValue       string        `json:"extracted_value"`
	SuggestedPlaceholder string        `json:"suggested_placeholder"`
	ConfidenceScore      float64       `json:"confidence_score"`
	SecurityLevel        SecurityLevel `json:"security_level"`
	ConversionComplexity Complexity    `json:"conversion_complexity"`
}

// Batches partitions candidates for follow-up work
type Batches struct {
	SecurityPriority []Candidate `json:"security_priority"`
	Immediate        []Candidate `json:"immediate"`
	BatchConversion  []Candidate `json:"batch_conversion"`
	ManualReview     []Candidate `json:"manual_review"`
}

// DiagnosticKind names the class of a non-fatal problem
type DiagnosticKind string

const (
	DiagnosticCatalogConfiguration DiagnosticKind = "catalog-configuration"
)

// Diagnostic is a non-fatal problem surfaced alongside the result
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Category string         `json:"category,omitempty"`
	Rule     int            `json:"rule"`
	Pattern  string         `json:"pattern,omitempty"`
	Message  string         `json:"message"`
}

// AggregateResult is the complete output of one run
type AggregateResult struct {
	DocumentsScanned        int            `json:"documents_scanned"`
	Candidates              []Candidate    `json:"candidates"`
	ByCategory              map[string]int `json:"by_category"`
	Batches                 Batches        `json:"batches"`
	EstimatedConversionRate float64        `json:"estimated_conversion_rate"`
	Diagnostics             []Diagnostic   `json:"diagnostics,omitempty"`
}
