package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, config *HubConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(config, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastScanCompleted(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastScans: true})
	conn := dial(t, server, nil)

	require.Eventually(t, func() bool { return hub.GetStats().ActiveConnections == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastEvent(Event{
		Type:  EventTypeScanCompleted,
		RunID: "run-1",
		Data:  ScanCompletedEvent{RunID: "run-1", TotalCandidates: 3, ByCategory: map[string]int{"api-endpoint": 3}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Type  EventType          `json:"type"`
		RunID string             `json:"run_id"`
		Data  ScanCompletedEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventTypeScanCompleted, got.Type)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Data.TotalCandidates)
}

func TestHub_Ping(t *testing.T) {
	hub, server := startHub(t, &HubConfig{})
	conn := dial(t, server, nil)
	require.Eventually(t, func() bool { return hub.GetStats().ActiveConnections == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventTypePong, got.Type)
}

func TestHub_DisabledEventsAreDropped(t *testing.T) {
	hub := NewHub(&HubConfig{BroadcastScans: true}, nil)

	hub.BroadcastEvent(Event{Type: EventTypeCatalogReloaded})
	assert.Len(t, hub.broadcast, 0)

	hub.BroadcastEvent(Event{Type: EventTypeScanCompleted})
	assert.Len(t, hub.broadcast, 1)
}

func TestHub_RequiresCredentials(t *testing.T) {
	_, server := startHub(t, &HubConfig{Username: "admin", Password: "s3cret"})
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.SetBasicAuth("admin", "s3cret")
	dial(t, server, req.Header)
}

func TestShouldSendToClient(t *testing.T) {
	scan := Event{Type: EventTypeScanCompleted, Data: ScanCompletedEvent{
		SecurityPriority: 0,
		ByCategory:       map[string]int{"file-path": 2},
	}}
	reload := Event{Type: EventTypeCatalogReloaded, Data: CatalogReloadedEvent{Rules: 3}}

	all := &Client{}
	assert.True(t, shouldSendToClient(all, scan))
	assert.True(t, shouldSendToClient(all, reload))

	scansOnly := &Client{Subscription: &SubscriptionRequest{Events: []EventType{EventTypeScanCompleted}}}
	assert.True(t, shouldSendToClient(scansOnly, scan))
	assert.False(t, shouldSendToClient(scansOnly, reload))

	security := &Client{Subscription: &SubscriptionRequest{Filter: &EventFilter{OnlySecurityHits: true}}}
	assert.False(t, shouldSendToClient(security, scan))
	assert.True(t, shouldSendToClient(security, reload))

	paths := &Client{Subscription: &SubscriptionRequest{Filter: &EventFilter{Categories: []string{"file-path"}}}}
	assert.True(t, shouldSendToClient(paths, scan))
	tokens := &Client{Subscription: &SubscriptionRequest{Filter: &EventFilter{Categories: []string{"security-token"}}}}
	assert.False(t, shouldSendToClient(tokens, scan))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	assert.Equal(t, "10.0.0.5", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(r))
}

func TestHub_ReplaysLastScanToNewClients(t *testing.T) {
	hub, server := startHub(t, &HubConfig{BroadcastScans: true})

	hub.BroadcastEvent(Event{
		Type:  EventTypeScanCompleted,
		RunID: "run-early",
		Data:  ScanCompletedEvent{RunID: "run-early", TotalCandidates: 7},
	})
	require.Eventually(t, func() bool { return hub.GetStats().TotalBroadcasts == 1 }, time.Second, 10*time.Millisecond)

	conn := dial(t, server, nil)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Type  EventType          `json:"type"`
		RunID string             `json:"run_id"`
		Data  ScanCompletedEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventTypeScanCompleted, got.Type)
	assert.Equal(t, "run-early", got.RunID)
	assert.Equal(t, 7, got.Data.TotalCandidates)
}
