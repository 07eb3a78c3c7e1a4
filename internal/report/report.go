// Package report publishes finished analysis runs to files, the result store and
// live dashboard clients.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/store"
	"github.com/raaihank/literal-sentinel/internal/websocket"
)

// Sink receives every finished run
type Sink interface {
	Publish(ctx context.Context, runID string, result *engine.AggregateResult) error
}

// Document is the JSON report layout
type Document struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Summary     Summary                 `json:"summary"`
	Result      *engine.AggregateResult `json:"result"`
}

// JSONFile writes one indented JSON report per run into Dir
type JSONFile struct {
	Dir string
	now func() time.Time
}

// NewJSONFile creates a file sink writing into dir
func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{Dir: dir, now: time.Now}
}

// Path returns the report file name of a run
func (j *JSONFile) Path(runID string) string {
	return filepath.Join(j.Dir, fmt.Sprintf("literal-analysis-%s.json", runID))
}

func (j *JSONFile) Publish(_ context.Context, runID string, result *engine.AggregateResult) error {
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(Document{
		RunID:       runID,
		GeneratedAt: j.now().UTC(),
		Summary:     Summarize(result),
		Result:      result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	path := j.Path(runID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return os.Rename(tmp, path)
}

// RunSaver is the part of the result store a sink needs
type RunSaver interface {
	SaveRun(ctx context.Context, run *store.Run, result *engine.AggregateResult) error
}

// StoreSink persists runs to the result store
type StoreSink struct {
	Store              RunSaver
	Source             string
	CatalogFingerprint string
}

func (s *StoreSink) Publish(ctx context.Context, runID string, result *engine.AggregateResult) error {
	return s.Store.SaveRun(ctx, &store.Run{
		ID:                 runID,
		Source:             s.Source,
		CatalogFingerprint: s.CatalogFingerprint,
	}, result)
}

// Broadcaster is the part of the websocket hub a sink needs
type Broadcaster interface {
	BroadcastEvent(event websocket.Event)
}

// LiveSink announces runs to dashboard clients
type LiveSink struct {
	Hub Broadcaster
}

func (l *LiveSink) Publish(_ context.Context, runID string, result *engine.AggregateResult) error {
	l.Hub.BroadcastEvent(ScanEvent(runID, result))
	return nil
}

// ScanEvent builds the scan_completed event of a run
func ScanEvent(runID string, result *engine.AggregateResult) websocket.Event {
	return websocket.Event{
		Type:      websocket.EventTypeScanCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data: websocket.ScanCompletedEvent{
			RunID:                   runID,
			DocumentsScanned:        result.DocumentsScanned,
			TotalCandidates:         len(result.Candidates),
			SecurityPriority:        len(result.Batches.SecurityPriority),
			Immediate:               len(result.Batches.Immediate),
			BatchConversion:         len(result.Batches.BatchConversion),
			ManualReview:            len(result.Batches.ManualReview),
			ByCategory:              result.ByCategory,
			EstimatedConversionRate: result.EstimatedConversionRate,
			Diagnostics:             len(result.Diagnostics),
		},
	}
}

// Multi publishes to every sink. A failing sink is logged and does not stop the
// others; the joined error is returned.
type Multi struct {
	Sinks  []Sink
	Logger *zap.Logger
}

func (m *Multi) Publish(ctx context.Context, runID string, result *engine.AggregateResult) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.Publish(ctx, runID, result); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("Report sink failed",
					zap.String("run_id", runID),
					zap.String("sink", fmt.Sprintf("%T", sink)),
					zap.Error(err))
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
