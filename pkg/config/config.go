package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Timezone    string `yaml:"timezone" default:"UTC"`
	Server      struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"3s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		BodyLimit       string        `yaml:"body_limit" default:"64K"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		JWTAlgorithm string `yaml:"jwt_algorithm" default:"HS256"`
	} `yaml:"auth"`
	Upstream struct {
		Timeout time.Duration `yaml:"timeout" default:"8s"`
	} `yaml:"upstream"`
	CoinGecko struct {
		BaseURL       string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		APIKey        string        `yaml:"api_key"`
		PriceCacheTTL time.Duration `yaml:"price_cache_ttl" default:"60s"`
		ChartDays     int           `yaml:"chart_days" default:"7"`
	} `yaml:"coingecko"`
	CryptoPanic struct {
		BaseURL string `yaml:"base_url" default:"https://cryptopanic.com/api/developer/v2"`
		Token   string `yaml:"token"`
	} `yaml:"cryptopanic"`
	OpenRouter struct {
		BaseURL     string   `yaml:"base_url" default:"https://openrouter.ai/api/v1"`
		APIKey      string   `yaml:"api_key"`
		Models      []string `yaml:"models"`
		Temperature float64  `yaml:"temperature" default:"0.4"`
		MaxTokens   int      `yaml:"max_tokens" default:"120"`
	} `yaml:"openrouter"`
	Dashboard struct {
		NewsLimit      int    `yaml:"news_limit" default:"5"`
		InsightAssets  int    `yaml:"insight_assets" default:"3"`
		ReferenceAsset string `yaml:"reference_asset" default:"bitcoin"`
		Catalog        string `yaml:"catalog" default:"config/catalog.json"`
		RefreshBurst   int    `yaml:"refresh_burst" default:"5"`
		RefreshPerMin  int    `yaml:"refresh_per_minute" default:"6"`
	} `yaml:"dashboard"`
	Store struct {
		Backend     string        `yaml:"backend" default:"memory"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"72h"`
		SQLitePath  string        `yaml:"sqlite_path" default:"data/dashboard.db"`
		Redis       struct {
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"dashboard"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			LocalTTL     time.Duration `yaml:"local_ttl" default:"10m"`
		} `yaml:"redis"`
		// Memory tunes in-process caching. The memory backend itself never
		// evicts records; max_entries bounds the local layer in front of redis.
		Memory struct {
			MaxEntries    int           `yaml:"max_entries" default:"10000"`
			SweepInterval time.Duration `yaml:"sweep_interval" default:"5m"`
		} `yaml:"memory"`
	} `yaml:"store"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic" default:"dashboard.events"`
		PrewarmTopic string   `yaml:"prewarm_topic" default:"dashboard.prewarm"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"dashboard-prewarm"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := getenv("CRYPTOPANIC_TOKEN"); v != "" {
		c.CryptoPanic.Token = v
	}
	if v := getenv("OPENROUTER_API_KEY"); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := getenv("OPENROUTER_MODELS"); v != "" {
		c.OpenRouter.Models = splitList(v)
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("JWT_ALGORITHM"); v != "" {
		c.Auth.JWTAlgorithm = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("APP_TIMEZONE"); v != "" {
		c.Timezone = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Store.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("store.backend must be 'memory', 'redis' or 'sqlite', got '%s'", c.Store.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.JWTAlgorithm != "HS256" && c.Auth.JWTAlgorithm != "HS384" && c.Auth.JWTAlgorithm != "HS512" {
		return fmt.Errorf("auth.jwt_algorithm must be an HMAC algorithm, got '%s'", c.Auth.JWTAlgorithm)
	}
	if len(c.OpenRouter.Models) == 0 {
		return fmt.Errorf("openrouter.models cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location returns the configured calendar-day timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
