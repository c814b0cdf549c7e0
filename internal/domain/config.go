package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrConfig marks a missing or invalid configuration field.
// Configuration errors are fatal at startup and at reload.
var ErrConfig = errors.New("invalid configuration")

// Config holds the complete engine configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Engine holds the reward gate and karma bounds.
	Engine EngineConfig `json:"engine"`

	// Rules maps category names to their conditions.
	// Empty means the builtin catalog is used.
	Rules map[string]RuleConfig `json:"rules,omitempty"`

	// BoxTypes maps category names to presentation and value settings.
	// Empty means the builtin box types are used.
	BoxTypes map[string]BoxTypeConfig `json:"box_types,omitempty"`

	// Temporal holds weekend and seasonal multiplier settings.
	Temporal TemporalConfig `json:"temporal_trends"`

	// Component configurations
	Oracle   OracleConfig   `json:"oracle"`
	Ledger   LedgerConfig   `json:"ledger"`
	Cache    CacheConfig    `json:"cache"`
	EventBus EventBusConfig `json:"event_bus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds the decision gate and karma bounds.
type EngineConfig struct {
	// Threshold is the minimum classifier probability that qualifies
	// for a reward. A probability exactly equal to it qualifies.
	Threshold float64 `json:"threshold"`

	// KarmaMin and KarmaMax clamp computed reward values.
	KarmaMin int `json:"karma_min"`
	KarmaMax int `json:"karma_max"`
}

// TemporalConfig holds calendar-driven multiplier settings.
type TemporalConfig struct {
	// WeekendDays are day names ("Saturday") that earn the 1.2x
	// weekend multiplier. Empty means Saturday and Sunday.
	WeekendDays []string `json:"weekend_days,omitempty"`

	// SeasonalMultipliers maps month numbers "1".."12" to multipliers.
	// Unlisted months multiply by 1.0.
	SeasonalMultipliers map[string]float64 `json:"seasonal_multipliers,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"read_timeout"`  // seconds
	WriteTimeout int    `json:"write_timeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"service_name"`
	ExporterType string `json:"exporter_type"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns a configuration that runs out of the box:
// SQLite ledger, in-process cache and bus, static oracle.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Engine: EngineConfig{
			Threshold: 0.5,
			KarmaMin:  10,
			KarmaMax:  50,
		},
		Temporal: TemporalConfig{
			WeekendDays: []string{"Saturday", "Sunday"},
		},
		Oracle: OracleConfig{
			Type:        "static",
			Probability: 0.65,
		},
		Ledger: LedgerConfig{
			Driver:        "sqlite",
			SQLitePath:    "./karma.db",
			RetentionDays: 30,
			SweepInterval: 3600,
			SweepTimeout:  30,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300,        // 5 minutes
			AwardTTL:     48 * 3600,  // awards are per-day, keep two days
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "karma-engine",
		},
	}
}

// LoadConfig builds the effective configuration: defaults, overlaid
// by the JSON file at path (if any), overlaid by environment
// variables. The result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays deploy-varying settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("KARMA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("KARMA_LEDGER_DRIVER"); v != "" {
		c.Ledger.Driver = v
	}
	if v := os.Getenv("KARMA_SQLITE_PATH"); v != "" {
		c.Ledger.SQLitePath = v
	}
	if v := os.Getenv("KARMA_REDIS_ADDR"); v != "" {
		c.Ledger.RedisAddr = v
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KARMA_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := os.Getenv("KARMA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks required fields and fills per-box defaults.
// Any violation is fatal: the process must not start (or reload)
// with a half-usable configuration.
func (c *Config) Validate() error {
	if c.Engine.Threshold < 0 || c.Engine.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0,1], got %g", ErrConfig, c.Engine.Threshold)
	}
	if c.Engine.KarmaMin > c.Engine.KarmaMax {
		return fmt.Errorf("%w: karma_min %d exceeds karma_max %d", ErrConfig, c.Engine.KarmaMin, c.Engine.KarmaMax)
	}

	if len(c.BoxTypes) > 0 {
		if _, ok := c.BoxTypes[CategoryMystery]; !ok {
			return fmt.Errorf("%w: box_types must include the %q fallback", ErrConfig, CategoryMystery)
		}
	}
	for category, box := range c.BoxTypes {
		if box.BaseKarma < 1 {
			return fmt.Errorf("%w: box type %q: base_karma must be >= 1, got %d", ErrConfig, category, box.BaseKarma)
		}
		if len(box.RarityWeights) == 0 {
			box.RarityWeights = DefaultRarityWeights()
			c.BoxTypes[category] = box
			continue
		}
		var total float64
		for rarity, weight := range box.RarityWeights {
			if _, ok := RarityMultipliers[rarity]; !ok {
				return fmt.Errorf("%w: box type %q: unknown rarity %q", ErrConfig, category, rarity)
			}
			if weight < 0 {
				return fmt.Errorf("%w: box type %q: rarity %q has negative weight", ErrConfig, category, rarity)
			}
			total += weight
		}
		if total <= 0 {
			return fmt.Errorf("%w: box type %q: rarity weights sum to zero", ErrConfig, category)
		}
	}

	switch c.Oracle.Type {
	case "static":
		if c.Oracle.Probability < 0 || c.Oracle.Probability > 1 {
			return fmt.Errorf("%w: static oracle probability must be within [0,1], got %g", ErrConfig, c.Oracle.Probability)
		}
	case "logistic":
		if c.Oracle.ModelPath == "" {
			return fmt.Errorf("%w: logistic oracle requires model_path", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported oracle type %q", ErrConfig, c.Oracle.Type)
	}

	switch c.Ledger.Driver {
	case "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("%w: unsupported ledger driver %q", ErrConfig, c.Ledger.Driver)
	}
	if c.Ledger.RetentionDays < 0 {
		return fmt.Errorf("%w: retention_days must not be negative", ErrConfig)
	}

	return nil
}
