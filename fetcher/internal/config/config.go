package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultEndpoint   = "https://api.e-stat.go.jp/rest/3.0/app/json/getStatsData"
	DefaultAppIDEnv   = "ESTAT_APP_ID"
	DefaultTimeout    = 60 * time.Second
	DefaultInterval   = 24 * time.Hour
	DefaultOutputPath = "data/stats.json"
	DefaultLogLevel   = "info"
)

// Config holds the fetcher configuration parsed from the `fetcher:` section
// of config.yaml. The `server:` key in the same file is ignored.
type Config struct {
	Fetcher FetcherConfig `yaml:"fetcher"`
}

// FetcherConfig holds all fetcher-side settings.
type FetcherConfig struct {
	// Source describes the statistics table to download.
	Source SourceConfig `yaml:"source"`

	// Interval controls how often the table is downloaded again.
	Interval time.Duration `yaml:"interval"`

	// OutputPath is where the snapshot file is written. The server reads
	// the same path (server.data.path).
	OutputPath string `yaml:"output_path"`

	Log LogConfig `yaml:"log"`
}

// SourceConfig locates the getStatsData endpoint and the table to fetch.
type SourceConfig struct {
	// Endpoint is the full getStatsData URL.
	Endpoint string `yaml:"endpoint"`

	// AppIDEnv is the name of the environment variable that holds the portal
	// application ID.
	AppIDEnv string `yaml:"app_id_env"`

	// StatsDataID identifies the statistics table.
	StatsDataID string `yaml:"stats_data_id"`

	// Timeout bounds a single download.
	Timeout time.Duration `yaml:"timeout"`
}

// AppID returns the application ID resolved from the environment.
// Returns empty string if AppIDEnv is unset or the variable is not found.
func (s SourceConfig) AppID() string {
	if s.AppIDEnv == "" {
		return ""
	}
	return os.Getenv(s.AppIDEnv)
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

// envOverrides are applied after the file is parsed. Unset variables leave
// the file value alone.
type envOverrides struct {
	OutputPath  *string        `env:"BACKLOGCAST_OUTPUT_PATH"`
	Interval    *time.Duration `env:"BACKLOGCAST_FETCH_INTERVAL"`
	StatsDataID *string        `env:"BACKLOGCAST_STATS_DATA_ID"`
	LogLevel    *string        `env:"BACKLOGCAST_LOG_LEVEL"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	o.apply(&cfg.Fetcher)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func (o envOverrides) apply(f *FetcherConfig) {
	if o.OutputPath != nil {
		f.OutputPath = *o.OutputPath
	}
	if o.Interval != nil {
		f.Interval = *o.Interval
	}
	if o.StatsDataID != nil {
		f.Source.StatsDataID = *o.StatsDataID
	}
	if o.LogLevel != nil {
		f.Log.Level = *o.LogLevel
	}
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Source: SourceConfig{
				Endpoint: DefaultEndpoint,
				AppIDEnv: DefaultAppIDEnv,
				Timeout:  DefaultTimeout,
			},
			Interval:   DefaultInterval,
			OutputPath: DefaultOutputPath,
			Log:        LogConfig{Level: DefaultLogLevel},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	f := cfg.Fetcher
	u, err := url.Parse(f.Source.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("fetcher.source.endpoint %q must be an http(s) URL", f.Source.Endpoint)
	}
	if f.Source.StatsDataID == "" {
		return fmt.Errorf("fetcher.source.stats_data_id is required")
	}
	if f.Source.AppIDEnv == "" {
		return fmt.Errorf("fetcher.source.app_id_env is required")
	}
	if f.Source.Timeout <= 0 {
		return fmt.Errorf("fetcher.source.timeout must be positive")
	}
	if f.Interval <= 0 {
		return fmt.Errorf("fetcher.interval must be positive")
	}
	if f.OutputPath == "" {
		return fmt.Errorf("fetcher.output_path is required")
	}
	switch f.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("fetcher.log.level %q unknown: want debug|info|warn|error", f.Log.Level)
	}
	return nil
}
