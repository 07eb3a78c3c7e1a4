package config

import (
	"time"
)

// defaultMaxFileSize is the largest document a directory scan reads, in bytes
const defaultMaxFileSize = 1 << 20

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	ETL       ETLConfig       `yaml:"etl" mapstructure:"etl"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Privacy   PrivacyConfig   `yaml:"privacy" mapstructure:"privacy"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Dashboard    bool          `yaml:"dashboard" mapstructure:"dashboard"`
}

// ScanConfig controls document discovery and the detection engine
type ScanConfig struct {
	Workers     int   `yaml:"workers" mapstructure:"workers"`
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"`
	// IncludeExtensions and SkipDirs fall back to the built-in lists when empty
	IncludeExtensions []string `yaml:"include_extensions" mapstructure:"include_extensions"`
	SkipDirs          []string `yaml:"skip_dirs" mapstructure:"skip_dirs"`
	// CatalogFile is a YAML catalog override; empty uses the bundled catalog
	CatalogFile string `yaml:"catalog_file" mapstructure:"catalog_file"`
	// ReportDir receives one JSON report per run when set
	ReportDir string `yaml:"report_dir" mapstructure:"report_dir"`
}

// StoreConfig enables run persistence
type StoreConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Driver is "postgres" or "sqlite". Empty means derive it from DatabaseURL.
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig enables the Redis result cache
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ETLConfig contains batch corpus processing configuration
type ETLConfig struct {
	BatchSize      int   `yaml:"batch_size" mapstructure:"batch_size"`
	MaxRecordSize  int64 `yaml:"max_record_size" mapstructure:"max_record_size"`
	UpdateCache    bool  `yaml:"update_cache" mapstructure:"update_cache"`
	ProgressReport int   `yaml:"progress_report" mapstructure:"progress_report"`
}

// RateLimitConfig limits API requests per client
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// PrivacyConfig controls masking of sensitive literals in published results
type PrivacyConfig struct {
	Redact      bool     `yaml:"redact" mapstructure:"redact"`
	Levels      []string `yaml:"levels" mapstructure:"levels"`
	Replacement string   `yaml:"replacement" mapstructure:"replacement"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Events   struct {
		BroadcastScans       bool `yaml:"broadcast_scans" mapstructure:"broadcast_scans"`
		BroadcastCatalog     bool `yaml:"broadcast_catalog" mapstructure:"broadcast_catalog"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 32 << 20,
			Dashboard:    true,
		},
		Scan: ScanConfig{
			MaxFileSize: defaultMaxFileSize,
		},
		Store: StoreConfig{
			DatabaseURL:     "sentinel.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Cache: CacheConfig{
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     24 * time.Hour,
			KeyPrefix:      "sentinel",
		},
		ETL: ETLConfig{
			BatchSize:      1000,
			MaxRecordSize:  defaultMaxFileSize,
			UpdateCache:    true,
			ProgressReport: 10000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Privacy: PrivacyConfig{
			Levels:      []string{"SECRET", "CONFIDENTIAL"},
			Replacement: "[REDACTED]",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
	}
	cfg.Logging.File.Path = "logs/sentinel.log"
	cfg.WebSocket.Events.BroadcastScans = true
	cfg.WebSocket.Events.BroadcastCatalog = true
	cfg.WebSocket.Events.BroadcastConnections = true
	return cfg
}
