package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// BatchFunc receives documents as they are loaded
type BatchFunc func(ctx context.Context, docs []engine.Document) error

// CorpusReader loads (path, content) rows from CSV, JSON Lines or Parquet files
type CorpusReader struct {
	batchSize   int
	maxFileSize int64
	logger      *zap.Logger
}

// NewCorpusReader creates a reader that hands documents over in batches
func NewCorpusReader(batchSize int, maxFileSize int64, logger *zap.Logger) *CorpusReader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusReader{batchSize: batchSize, maxFileSize: maxFileSize, logger: logger}
}

// ReadAll loads the whole corpus into memory
func (r *CorpusReader) ReadAll(ctx context.Context, filePath string) ([]engine.Document, *Stats, error) {
	var docs []engine.Document
	stats, err := r.ReadBatches(ctx, filePath, func(_ context.Context, batch []engine.Document) error {
		docs = append(docs, batch...)
		return nil
	})
	return docs, stats, err
}

// ReadBatches streams the corpus through fn
func (r *CorpusReader) ReadBatches(ctx context.Context, filePath string, fn BatchFunc) (*Stats, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer file.Close()

	format := DetectFileFormat(filePath)
	r.logger.Info("Loading corpus", zap.String("file", filePath), zap.String("format", string(format)))

	var next func() (*Record, error)
	switch format {
	case FormatCSV:
		next, err = r.csvRecords(file)
	case FormatJSONL:
		next = r.jsonRecords(file)
	case FormatParquet:
		reader := parquet.NewReader(file)
		defer reader.Close()
		next = func() (*Record, error) {
			var rec Record
			if err := reader.Read(&rec); err != nil {
				return nil, err
			}
			return &rec, nil
		}
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	batch := make([]engine.Document, 0, r.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		batch = make([]engine.Document, 0, r.batchSize)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			var syntaxErr *json.SyntaxError
			if errors.As(err, &parseErr) || errors.As(err, &syntaxErr) || errors.Is(err, errBadRecord) {
				stats.Read++
				stats.Invalid++
				r.logger.Warn("Failed to read corpus record", zap.Error(err))
				if errors.As(err, &syntaxErr) {
					// a JSON stream cannot resynchronise after a syntax error
					break
				}
				continue
			}
			return stats, fmt.Errorf("failed to read corpus: %w", err)
		}

		stats.Read++
		if !r.accept(rec, stats) {
			continue
		}
		rec.Content = strings.ToValidUTF8(rec.Content, "")
		batch = append(batch, rec.Document())
		stats.Accepted++

		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	r.logger.Info("Corpus loaded",
		zap.Int64("records", stats.Read),
		zap.Int64("accepted", stats.Accepted),
		zap.Int64("invalid", stats.Invalid),
		zap.Int64("too_large", stats.TooLarge))

	return stats, nil
}

var errBadRecord = errors.New("malformed corpus record")

func (r *CorpusReader) csvRecords(file io.Reader) (func() (*Record, error), error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pathCol, okPath := columns["path"]
	contentCol, okContent := columns["content"]
	if !okPath || !okContent {
		return nil, fmt.Errorf("CSV header must name path and content columns, got %v", header)
	}
	categoryCol, hasCategory := columns["file_category"]

	r.logger.Debug("CSV header detected", zap.Strings("columns", header))

	return func() (*Record, error) {
		row, err := reader.Read()
		if err != nil {
			return nil, err
		}
		if pathCol >= len(row) || contentCol >= len(row) {
			return nil, fmt.Errorf("%w: %d fields", errBadRecord, len(row))
		}
		rec := &Record{Path: row[pathCol], Content: row[contentCol]}
		if hasCategory && categoryCol < len(row) {
			rec.FileCategory = row[categoryCol]
		}
		return rec, nil
	}, nil
}

func (r *CorpusReader) jsonRecords(file io.Reader) func() (*Record, error) {
	decoder := json.NewDecoder(file)
	return func() (*Record, error) {
		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return nil, fmt.Errorf("%w: %v", errBadRecord, err)
			}
			return nil, err
		}
		return &rec, nil
	}
}

func (r *CorpusReader) accept(rec *Record, stats *Stats) bool {
	if strings.TrimSpace(rec.Path) == "" {
		stats.Invalid++
		r.logger.Debug("Invalid record: empty path")
		return false
	}
	if int64(len(rec.Content)) >= r.maxFileSize {
		stats.TooLarge++
		r.logger.Debug("Invalid record: content too large", zap.String("path", rec.Path), zap.Int("length", len(rec.Content)))
		return false
	}
	return true
}
