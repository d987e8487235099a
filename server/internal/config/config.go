package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata" // estimation.timezone must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort = 8080
	DefaultDataPath = "data/stats.json"
	DefaultCacheTTL = time.Hour
	DefaultTimezone = "Asia/Tokyo"
	DefaultLogLevel = "info"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `fetcher:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and /metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Data locates the snapshot file and controls its cache.
	Data DataConfig `yaml:"data"`

	// Hierarchy overrides the built-in parent/child region layout used for
	// deaggregation. Empty means types.DefaultHierarchy.
	Hierarchy map[string][]string `yaml:"hierarchy"`

	// Estimation tunes the completion forecast.
	Estimation EstimationConfig `yaml:"estimation"`

	// Auth protects the mutating endpoints.
	Auth AuthConfig `yaml:"auth"`

	Log LogConfig `yaml:"log"`
}

// DataConfig locates the snapshot file.
type DataConfig struct {
	// Path is the e-Stat JSON snapshot written by the fetcher.
	Path string `yaml:"path"`

	// CacheTTL is how long a parsed snapshot is served before the file is
	// read again. Default: 1h.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Watch invalidates the cache as soon as the file changes on disk.
	Watch bool `yaml:"watch"`
}

// EstimationConfig tunes the estimation engine.
type EstimationConfig struct {
	// Timezone decides which calendar day "today" is (default Asia/Tokyo).
	Timezone string `yaml:"timezone"`

	// Strict rejects region and category codes outside the catalogs (default true).
	Strict bool `yaml:"strict"`
}

// Location resolves Timezone.
func (e EstimationConfig) Location() (*time.Location, error) {
	return time.LoadLocation(e.Timezone)
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// LogConfig sets the slog level: debug | info | warn | error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// EffectiveHierarchy returns the configured hierarchy or the built-in one.
func (s ServerConfig) EffectiveHierarchy() types.Hierarchy {
	if len(s.Hierarchy) == 0 {
		return types.DefaultHierarchy()
	}
	return types.Hierarchy(s.Hierarchy)
}

// envOverrides are applied after the file is parsed. Unset variables leave
// the file value alone.
type envOverrides struct {
	DataPath *string        `env:"BACKLOGCAST_DATA_PATH"`
	HTTPPort *int           `env:"BACKLOGCAST_HTTP_PORT"`
	CacheTTL *time.Duration `env:"BACKLOGCAST_CACHE_TTL"`
	Timezone *string        `env:"BACKLOGCAST_TIMEZONE"`
	LogLevel *string        `env:"BACKLOGCAST_LOG_LEVEL"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults, then environment overrides are
// applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Data: DataConfig{
				Path:     DefaultDataPath,
				CacheTTL: DefaultCacheTTL,
			},
			Estimation: EstimationConfig{
				Timezone: DefaultTimezone,
				Strict:   true,
			},
			Log: LogConfig{Level: DefaultLogLevel},
		},
	}
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	s := &cfg.Server
	if o.DataPath != nil {
		s.Data.Path = *o.DataPath
	}
	if o.HTTPPort != nil {
		s.HTTPPort = *o.HTTPPort
	}
	if o.CacheTTL != nil {
		s.Data.CacheTTL = *o.CacheTTL
	}
	if o.Timezone != nil {
		s.Estimation.Timezone = *o.Timezone
	}
	if o.LogLevel != nil {
		s.Log.Level = *o.LogLevel
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.Data.Path == "" {
		return fmt.Errorf("server.data.path must not be empty")
	}
	if s.Data.CacheTTL < 0 {
		return fmt.Errorf("server.data.cache_ttl must not be negative")
	}
	switch s.Auth.Mode {
	case "apikey":
		if s.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when mode is apikey")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if _, err := s.Estimation.Location(); err != nil {
		return fmt.Errorf("server.estimation.timezone %q: %w", s.Estimation.Timezone, err)
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log.level %q unknown: want debug|info|warn|error", s.Log.Level)
	}
	for parent, children := range s.Hierarchy {
		for _, c := range children {
			if c == parent {
				return fmt.Errorf("server.hierarchy: region %s lists itself as a child", parent)
			}
		}
	}
	return nil
}
