package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/catalog"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/logger"
	"github.com/raaihank/literal-sentinel/internal/store"
	"github.com/raaihank/literal-sentinel/internal/websocket"
)

func testConfig() *config.Config {
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, deps Dependencies) (*Server, *httptest.Server) {
	t.Helper()
	eng, err := engine.New(catalog.Default(), catalog.DefaultVocabulary(), zap.NewNop())
	require.NoError(t, err)

	s, err := New(cfg, logger.NewNop(), eng, deps)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(&store.Config{DatabaseURL: filepath.Join(t.TempDir(), "runs.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func postScan(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/scan", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const passwordScan = `{"documents":[{"path":"app.py","content":"password = \"supersecret123\"\n"}]}`

func TestHealthAndInfo(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), Dependencies{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(ts.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "literal-sentinel", info["name"])
	assert.Equal(t, float64(catalog.Default().RuleCount()), info["rules"])
	assert.Equal(t, false, info["store_enabled"])
}

func TestScanPersistsRun(t *testing.T) {
	st := newTestStore(t)
	_, ts := newTestServer(t, testConfig(), Dependencies{Store: st})

	resp := postScan(t, ts, passwordScan)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scan ScanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scan))
	require.NotEmpty(t, scan.RunID)
	assert.Empty(t, scan.Warnings)
	assert.Equal(t, 1, scan.Result.DocumentsScanned)
	assert.Len(t, scan.Result.Candidates, 2)
	assert.Equal(t, 2, scan.Summary.SecurityCritical)
	for _, c := range scan.Result.Candidates {
		assert.Equal(t, "app.py", c.DocumentPath)
	}

	listResp, err := http.Get(ts.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var runs []store.Run
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, scan.RunID, runs[0].ID)
	assert.Equal(t, "api", runs[0].Source)

	runResp, err := http.Get(ts.URL + "/api/v1/runs/" + scan.RunID)
	require.NoError(t, err)
	defer runResp.Body.Close()
	var detail RunDetail
	require.NoError(t, json.NewDecoder(runResp.Body).Decode(&detail))
	assert.Equal(t, scan.Result.Candidates, detail.Candidates)

	missing, err := http.Get(ts.URL + "/api/v1/runs/does-not-exist")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestScanDerivesFileCategory(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), Dependencies{})

	resp := postScan(t, ts, `{"documents":[{"path":"settings.json","content":"{\"timeout\": 30}"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scan ScanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scan))
	require.NotEmpty(t, scan.Result.Candidates)
	for _, c := range scan.Result.Candidates {
		assert.Equal(t, engine.ComplexityLow, c.ConversionComplexity)
	}
}

func TestScanRejectsBadRequests(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 256
	_, ts := newTestServer(t, cfg, Dependencies{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"documents":`, http.StatusBadRequest},
		{"empty", `{"documents":[]}`, http.StatusBadRequest},
		{"too large", `{"documents":[{"path":"a.py","content":"` + strings.Repeat("x", 512) + `"}]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postScan(t, ts, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRunsWithoutStore(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), Dependencies{})

	resp, err := http.Get(ts.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	_, ts := newTestServer(t, cfg, Dependencies{})

	first, err := http.Get(ts.URL + "/api/v1/catalog")
	require.NoError(t, err)
	defer first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/v1/catalog")
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))

	// health checks are not rate limited
	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestCatalogReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: queue-url
    base_weight: 85
    patterns: ['queue_url\s*=\s*"([^"\n]+)"']
`), 0o644))

	cfg := testConfig()
	cfg.Scan.CatalogFile = path
	s, ts := newTestServer(t, cfg, Dependencies{})
	before := s.Engine().Fingerprint()

	resp, err := http.Post(ts.URL+"/api/v1/catalog/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info CatalogInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Len(t, info.Categories, 1)
	assert.Equal(t, "queue-url", info.Categories[0].Name)
	assert.Equal(t, 1, info.RuleCount)
	assert.NotEqual(t, before, info.Fingerprint)
	assert.Equal(t, info.Fingerprint, s.Engine().Fingerprint())

	scan := postScan(t, ts, `{"documents":[{"path":"q.py","content":"queue_url = \"amqp://mq/jobs\""}]}`)
	var result ScanResponse
	require.NoError(t, json.NewDecoder(scan.Body).Decode(&result))
	require.Len(t, result.Result.Candidates, 1)
	assert.Equal(t, "queue-url", result.Result.Candidates[0].Category)

	// a broken file keeps the current catalog
	require.NoError(t, os.WriteFile(path, []byte("categories: [\n"), 0o644))
	bad, err := http.Post(ts.URL+"/api/v1/catalog/reload", "application/json", nil)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
	assert.Equal(t, info.Fingerprint, s.Engine().Fingerprint())
}

func TestScanIsBroadcast(t *testing.T) {
	s, ts := newTestServer(t, testConfig(), Dependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.GetWebSocketHub().Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// wait for registration before scanning
	require.Eventually(t, func() bool {
		return s.GetWebSocketHub().GetStats().ActiveConnections == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := postScan(t, ts, passwordScan)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var event struct {
			Type websocket.EventType          `json:"type"`
			Data websocket.ScanCompletedEvent `json:"data"`
		}
		require.NoError(t, json.NewDecoder(bytes.NewReader(data)).Decode(&event))
		if event.Type != websocket.EventTypeScanCompleted {
			continue
		}
		assert.Equal(t, 2, event.Data.TotalCandidates)
		assert.Equal(t, 2, event.Data.SecurityPriority)
		return
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.1.1:5555"
	assert.Equal(t, "10.1.1.1", getClientIP(r))

	r.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "10.3.3.3, 10.4.4.4")
	assert.Equal(t, "10.3.3.3", getClientIP(r))
}

func TestScanRedactsSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Privacy.Redact = true
	_, ts := newTestServer(t, cfg, Dependencies{})

	resp := postScan(t, ts, passwordScan)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scan ScanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scan))
	require.NotEmpty(t, scan.Result.Candidates)
	for _, c := range scan.Result.Candidates {
		assert.Equal(t, "[REDACTED]", c.ExtractedValue)
		assert.NotContains(t, c.OriginalValue, "supersecret123")
	}
}

func TestRewrite(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), Dependencies{})

	resp, err := http.Post(ts.URL+"/api/v1/rewrite", "application/json",
		strings.NewReader(`{"document":{"path":"app.py","content":"endpoint = \"https://api.example.com/v1\"\n"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		MaskedText string `json:"masked_text"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "endpoint = \"{{API_ENDPOINT}}\"\n", body.MaskedText)
}

func TestRecoveryMiddleware(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), Dependencies{})
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}
