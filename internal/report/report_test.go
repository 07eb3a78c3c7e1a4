package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/store"
	"github.com/raaihank/literal-sentinel/internal/websocket"
)

func sampleResult() *engine.AggregateResult {
	return engine.Aggregate([]engine.Candidate{
		{DocumentPath: "a.py", Category: "database-connection", SuggestedPlaceholder: "{{DATABASE_PASSWORD}}", ConfidenceScore: 100, SecurityLevel: engine.SecuritySecret},
		{DocumentPath: "a.py", Category: "configuration-value", SuggestedPlaceholder: "{{TIMEOUT_SECONDS}}", ConfidenceScore: 60, SecurityLevel: engine.SecurityPublic},
		{DocumentPath: "b.py", Category: "configuration-value", SuggestedPlaceholder: "{{TIMEOUT_SECONDS}}", ConfidenceScore: 40, SecurityLevel: engine.SecurityPublic},
	}, nil, 2)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult())

	assert.Equal(t, 2, s.FilesAnalyzed)
	assert.Equal(t, 3, s.TotalCandidates)
	assert.Equal(t, 1, s.HighConfidence)
	assert.Equal(t, 1, s.SecurityCritical)
	assert.Equal(t, []CategoryTotal{
		{Name: "configuration-value", Count: 2},
		{Name: "database-connection", Count: 1},
	}, s.Categories)
	assert.Equal(t, CategoryTotal{Name: "{{TIMEOUT_SECONDS}}", Count: 2}, s.TopPlaceholders[0])

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), "Files analyzed")
	assert.Contains(t, buf.String(), "33.3%")
	assert.Contains(t, buf.String(), "configuration-value  2")
}

func TestJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewJSONFile(dir)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, sink.Publish(context.Background(), "run-1", sampleResult()))

	data, err := os.ReadFile(sink.Path("run-1"))
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 3, doc.Summary.TotalCandidates)
	assert.Len(t, doc.Result.Candidates, 3)
	assert.True(t, doc.GeneratedAt.Equal(sink.now()))
}

func TestStoreSink(t *testing.T) {
	st, err := store.NewStore(&store.Config{DatabaseURL: filepath.Join(t.TempDir(), "runs.db")}, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	sink := &StoreSink{Store: st, Source: "repo", CatalogFingerprint: "fp"}
	require.NoError(t, sink.Publish(context.Background(), "run-1", sampleResult()))

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "repo", run.Source)
	assert.Equal(t, 3, run.CandidateCount)
}

type recordingHub struct {
	events []websocket.Event
}

func (r *recordingHub) BroadcastEvent(e websocket.Event) {
	r.events = append(r.events, e)
}

func TestLiveSink(t *testing.T) {
	hub := &recordingHub{}
	require.NoError(t, (&LiveSink{Hub: hub}).Publish(context.Background(), "run-9", sampleResult()))

	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.EventTypeScanCompleted, hub.events[0].Type)
	data := hub.events[0].Data.(websocket.ScanCompletedEvent)
	assert.Equal(t, "run-9", data.RunID)
	assert.Equal(t, 3, data.TotalCandidates)
	assert.Equal(t, 1, data.SecurityPriority)
	assert.Equal(t, 1, data.ManualReview)
}

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, string, *engine.AggregateResult) error { return f.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	hub := &recordingHub{}
	m := &Multi{Sinks: []Sink{failingSink{boom}, &LiveSink{Hub: hub}}, Logger: zap.NewNop()}

	err := m.Publish(context.Background(), "run-1", sampleResult())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, hub.events, 1)

	assert.NoError(t, (&Multi{}).Publish(context.Background(), "run-1", sampleResult()))
}
