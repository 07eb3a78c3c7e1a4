package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Loader reads the configuration and keeps the viper instance for watching
type Loader struct {
	v *viper.Viper
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg, _, err := NewLoader(configPath)
	return cfg, err
}

// NewLoader loads the configuration and returns a loader that can watch it.
// Every key has a default so that SENTINEL_* variables override any of them.
func NewLoader(configPath string) (*Config, *Loader, error) {
	v := viper.New()
	if err := registerDefaults(v, GetDefaults()); err != nil {
		return nil, nil, err
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/literal-sentinel/")
	v.AddConfigPath("$HOME/.literal-sentinel/")

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		// no config file means defaults plus environment
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loader := &Loader{v: v}
	cfg, err := loader.decode()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// ConfigFileUsed returns the file the configuration came from, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// registerDefaults walks the YAML form of the defaults and registers each leaf
// so that defaults survive config reloads.
func registerDefaults(v *viper.Viper, defaults *Config) error {
	raw, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, value)
	}
}

func (l *Loader) decode() (*Config, error) {
	cfg := GetDefaults()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func Validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Scan.Workers < 0 {
		return fmt.Errorf("invalid scan workers: %d", config.Scan.Workers)
	}
	if config.Scan.MaxFileSize <= 0 {
		return fmt.Errorf("invalid scan max_file_size: %d", config.Scan.MaxFileSize)
	}

	if config.Store.Enabled && config.Store.DatabaseURL == "" {
		return errors.New("store is enabled but store.database_url is empty")
	}
	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return errors.New("cache is enabled but cache.redis_url is empty")
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: %g req/s, burst %d", config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}

	for _, level := range config.Privacy.Levels {
		switch strings.ToUpper(level) {
		case "PUBLIC", "INTERNAL", "CONFIDENTIAL", "SECRET":
		default:
			return fmt.Errorf("invalid privacy level: %s", level)
		}
	}

	if config.WebSocket.Enabled && !strings.HasPrefix(config.WebSocket.Path, "/") {
		return fmt.Errorf("invalid websocket path: %q", config.WebSocket.Path)
	}

	return nil
}

// Watch calls callback with every valid configuration written to the config file.
// Invalid edits are reported through onError and otherwise ignored.
func (l *Loader) Watch(callback func(*Config), onError func(error)) error {
	if l.v.ConfigFileUsed() == "" {
		return errors.New("no configuration file to watch")
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("ignoring change to %s: %w", e.Name, err))
			}
			return
		}
		callback(cfg)
	})
	l.v.WatchConfig()

	return nil
}
