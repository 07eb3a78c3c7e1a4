package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	insertChunk = 500
)

// Store persists analysis runs, their candidates and placeholder usage
type Store struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// NewStore opens the database and creates the schema
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, dsn, err := resolveDriver(config)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time, otherwise concurrent saves fail with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{db: db, driver: driver, logger: logger}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Result store initialized successfully",
		zap.String("driver", driver),
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// resolveDriver picks the sql driver and the DSN it expects
func resolveDriver(config *Config) (string, string, error) {
	dsn := config.DatabaseURL
	if dsn == "" {
		return "", "", errors.New("database_url is required")
	}

	driver := config.Driver
	if driver == "" {
		switch {
		case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
			driver = DriverPostgres
		default:
			driver = DriverSQLite
		}
	}

	switch driver {
	case DriverPostgres:
		return driver, dsn, nil
	case DriverSQLite:
		return driver, strings.TrimPrefix(dsn, "sqlite://"), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if s.driver == DriverSQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	s.logger.Debug("Database schema ready", zap.Int("statements", len(schema)))
	return nil
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun stores a run, all of its candidates and the placeholder usage counts in one
// transaction. An empty run.ID is filled in.
func (s *Store) SaveRun(ctx context.Context, run *Run, result *engine.AggregateResult) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	run.DocumentsScanned = result.DocumentsScanned
	run.CandidateCount = len(result.Candidates)
	run.ImmediateCount = len(result.Batches.Immediate)
	run.SecurityPriorityCount = len(result.Batches.SecurityPriority)
	run.EstimatedConversionRate = result.EstimatedConversionRate

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO analysis_runs (id, source, started_at, finished_at, documents_scanned,
			candidate_count, immediate_count, security_priority_count,
			estimated_conversion_rate, catalog_fingerprint)
		VALUES (:id, :source, :started_at, :finished_at, :documents_scanned,
			:candidate_count, :immediate_count, :security_priority_count,
			:estimated_conversion_rate, :catalog_fingerprint)`, run)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	rows := make([]ResultRow, len(result.Candidates))
	for i, c := range result.Candidates {
		rows[i] = newResultRow(run.ID, i, c)
	}
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO code_analysis_results (run_id, seq, document_path, line_number, column_number,
				category, original_value, extracted_value, suggested_placeholder,
				confidence_score, security_level, conversion_complexity)
			VALUES (:run_id, :seq, :document_path, :line_number, :column_number,
				:category, :original_value, :extracted_value, :suggested_placeholder,
				:confidence_score, :security_level, :conversion_complexity)`, rows[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert candidates: %w", err)
		}
	}

	for _, usage := range placeholderUsage(result.Candidates, run.FinishedAt) {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO placeholder_intelligence (placeholder, category, usage_frequency, last_seen)
			VALUES (:placeholder, :category, :usage_frequency, :last_seen)
			ON CONFLICT (placeholder) DO UPDATE SET
				usage_frequency = placeholder_intelligence.usage_frequency + excluded.usage_frequency,
				last_seen = excluded.last_seen`, usage)
		if err != nil {
			return fmt.Errorf("failed to update placeholder usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("Analysis run saved",
		zap.String("run_id", run.ID),
		zap.Int("candidates", run.CandidateCount),
		zap.Int("documents", run.DocumentsScanned))

	return nil
}

// placeholderUsage counts placeholders in first-seen order. The category recorded is
// the one of the first candidate that produced the placeholder.
func placeholderUsage(candidates []engine.Candidate, seen time.Time) []PlaceholderUsage {
	index := make(map[string]int)
	var usage []PlaceholderUsage
	for _, c := range candidates {
		if i, ok := index[c.SuggestedPlaceholder]; ok {
			usage[i].UsageFrequency++
			continue
		}
		index[c.SuggestedPlaceholder] = len(usage)
		usage = append(usage, PlaceholderUsage{
			Placeholder:    c.SuggestedPlaceholder,
			Category:       c.Category,
			UsageFrequency: 1,
			LastSeen:       seen,
		})
	}
	return usage
}

// GetRun returns one run by id
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, s.db.Rebind(`SELECT * FROM analysis_runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []Run{}
	err := s.db.SelectContext(ctx, &runs,
		s.db.Rebind(`SELECT * FROM analysis_runs ORDER BY finished_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Candidates returns the candidates of a run in their original order
func (s *Store) Candidates(ctx context.Context, runID string) ([]engine.Candidate, error) {
	var rows []ResultRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT * FROM code_analysis_results WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	candidates := make([]engine.Candidate, len(rows))
	for i, r := range rows {
		candidates[i] = r.Candidate()
	}
	return candidates, nil
}

// CategoryCounts returns the candidate count per category of a run
func (s *Store) CategoryCounts(ctx context.Context, runID string) ([]CategoryCount, error) {
	counts := []CategoryCount{}
	err := s.db.SelectContext(ctx, &counts, s.db.Rebind(`
		SELECT category, COUNT(*) AS count
		FROM code_analysis_results
		WHERE run_id = ?
		GROUP BY category
		ORDER BY count DESC, category`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return counts, nil
}

// TopPlaceholders returns the most used placeholders across all runs
func (s *Store) TopPlaceholders(ctx context.Context, limit int) ([]PlaceholderUsage, error) {
	if limit <= 0 {
		limit = 20
	}
	usage := []PlaceholderUsage{}
	err := s.db.SelectContext(ctx, &usage, s.db.Rebind(`
		SELECT placeholder, category, usage_frequency, last_seen
		FROM placeholder_intelligence
		ORDER BY usage_frequency DESC, placeholder
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load placeholder usage: %w", err)
	}
	return usage, nil
}

// DeleteRun removes a run and its candidates
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM code_analysis_results WHERE run_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete candidates: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM analysis_runs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password of a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
