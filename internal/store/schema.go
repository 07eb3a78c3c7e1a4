package store

// schema is valid for both PostgreSQL and SQLite
var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		documents_scanned INTEGER NOT NULL,
		candidate_count INTEGER NOT NULL,
		immediate_count INTEGER NOT NULL,
		security_priority_count INTEGER NOT NULL,
		estimated_conversion_rate DOUBLE PRECISION NOT NULL,
		catalog_fingerprint TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS code_analysis_results (
		run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		document_path TEXT NOT NULL,
		line_number INTEGER NOT NULL,
		column_number INTEGER NOT NULL,
		category TEXT NOT NULL,
		original_value TEXT NOT NULL,
		extracted_value TEXT NOT NULL,
		suggested_placeholder TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		security_level TEXT NOT NULL,
		conversion_complexity TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_code_analysis_results_category ON code_analysis_results (run_id, category)`,
	`CREATE TABLE IF NOT EXISTS placeholder_intelligence (
		placeholder TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		usage_frequency INTEGER NOT NULL,
		last_seen TIMESTAMP NOT NULL
	)`,
}
