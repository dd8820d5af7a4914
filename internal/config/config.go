package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	LogstashAddr  string `toml:"logstash_addr"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// store: memory | redis | postgres | sqlite
	StoreBackend      string `toml:"store_backend"`
	MemoryStoreSizeMB int    `toml:"memory_store_size_mb"`
	RedisHost         string `toml:"redis_host"`
	RedisPort         string `toml:"redis_port"`
	RedisDB           int    `toml:"redis_db"`
	PostgresHost      string `toml:"postgres_host"`
	PostgresPort      string `toml:"postgres_port"`
	PostgresUser      string `toml:"postgres_user"`
	PostgresDBName    string `toml:"postgres_db_name"`
	SQLitePath        string `toml:"sqlite_path"`

	// tracker
	DailyReset bool `toml:"daily_reset"`

	// http
	AllowedOrigins         []string `toml:"allowed_origins"`
	RateLimitAllowedPerMin int      `toml:"rate_limit_allowed_per_min"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	Environment string `toml:"-"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = strings.ToLower(env)
	cfg.setDefaults()
	return cfg, nil
}

func Load(env, configPath string) (*Config, error) {
	var tomlConfig Toml
	if _, err := toml.DecodeFile(configPath, &tomlConfig); err != nil {
		return nil, fmt.Errorf("decode toml config [%s]: %w", configPath, err)
	}
	return tomlConfig.Get(env)
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.StoreBackend == "" {
		c.StoreBackend = "memory"
	}
	if c.MemoryStoreSizeMB <= 0 {
		c.MemoryStoreSizeMB = 64
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "fitclub"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "./data/fitclub.db"
	}
	if c.RateLimitAllowedPerMin <= 0 {
		c.RateLimitAllowedPerMin = 120
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}
