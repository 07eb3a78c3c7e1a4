package etl

import (
	"time"
)

// ProcessingResult represents the result of processing a corpus
type ProcessingResult struct {
	RunID            string        `json:"run_id"`
	TotalRecords     int64         `json:"total_records"`
	DocumentsScanned int64         `json:"documents_scanned"`
	RecordsRejected  int64         `json:"records_rejected"`
	Candidates       int64         `json:"candidates"`
	Duration         time.Duration `json:"duration"`
	ScanTime         time.Duration `json:"scan_time"`
	DatabaseTime     time.Duration `json:"database_time"`
	CacheTime        time.Duration `json:"cache_time"`
	Errors           []string      `json:"errors,omitempty"`
}

// Config contains ETL pipeline configuration
type Config struct {
	BatchSize      int   `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	MaxRecordSize  int64 `yaml:"max_record_size" mapstructure:"max_record_size"` // 1 MiB
	UpdateCache    bool  `yaml:"update_cache" mapstructure:"update_cache"`       // true
	ProgressReport int   `yaml:"progress_report" mapstructure:"progress_report"` // 10000
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	DocumentsDone  int64     `json:"documents_done"`
	CandidatesSeen int64     `json:"candidates_seen"`
	CacheWrites    int64     `json:"cache_writes"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // documents per second
}
