package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeScanCompleted is sent after every finished analysis run
	EventTypeScanCompleted EventType = "scan_completed"
	// EventTypeCatalogReloaded is sent when the pattern catalog was swapped
	EventTypeCatalogReloaded EventType = "catalog_reloaded"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RunID     string      `json:"run_id,omitempty"`
}

// ScanCompletedEvent summarises a finished run
type ScanCompletedEvent struct {
	RunID                   string         `json:"run_id"`
	DocumentsScanned        int            `json:"documents_scanned"`
	TotalCandidates         int            `json:"total_candidates"`
	SecurityPriority        int            `json:"security_priority"`
	Immediate               int            `json:"immediate"`
	BatchConversion         int            `json:"batch_conversion"`
	ManualReview            int            `json:"manual_review"`
	ByCategory              map[string]int `json:"by_category"`
	EstimatedConversionRate float64        `json:"estimated_conversion_rate"`
	Diagnostics             int            `json:"diagnostics"`
}

// CatalogReloadedEvent describes the catalog now in use
type CatalogReloadedEvent struct {
	Source      string `json:"source"`
	Categories  int    `json:"categories"`
	Rules       int    `json:"rules"`
	Skipped     int    `json:"skipped"`
	Fingerprint string `json:"fingerprint"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows scan events down to runs that found something relevant
type EventFilter struct {
	Categories       []string `json:"categories,omitempty"`
	OnlySecurityHits bool     `json:"only_security_hits,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
