package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultPath is read when CONFIG_PATH is not set
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server struct {
		GRPCAddr string `yaml:"grpc_addr"`
		HTTPAddr string `yaml:"http_addr"`
		APIToken string `yaml:"api_token"`
	} `yaml:"server"`
	Storage struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Prices struct {
		BaseURL   string        `yaml:"base_url"`
		ProxyURL  string        `yaml:"proxy_url"`
		Timeout   time.Duration `yaml:"timeout"`
		LatestTTL time.Duration `yaml:"latest_ttl"`
	} `yaml:"prices"`
	Log struct {
		Env string `yaml:"env"`
	} `yaml:"log"`
}

// Path returns the config file location from CONFIG_PATH or the default
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("PRICES_BASE_URL"); v != "" {
		cfg.Prices.BaseURL = v
	}
	if v, ok := os.LookupEnv("PRICES_PROXY_URL"); ok {
		cfg.Prices.ProxyURL = v
	}
	if v := os.Getenv("PRICES_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse PRICES_TIMEOUT: %w", err)
		}
		cfg.Prices.Timeout = d
	}
	if v := os.Getenv("NETWORTH_ENV"); v != "" {
		cfg.Log.Env = v
	}

	// Defaults
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = ":8080"
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8081"
	}
	if cfg.Server.APIToken == "" {
		cfg.Server.APIToken = "dev-token"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/networth.db"
	}
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.Driver == DriverPostgres {
		cfg.Storage.PostgresDSN = postgresDSNFromEnv()
	}
	if cfg.Prices.BaseURL == "" {
		cfg.Prices.BaseURL = "https://query1.finance.yahoo.com"
	}
	if _, ok := os.LookupEnv("PRICES_PROXY_URL"); !ok && cfg.Prices.ProxyURL == "" {
		cfg.Prices.ProxyURL = "https://api.allorigins.win/raw?url="
	}
	if cfg.Prices.Timeout == 0 {
		cfg.Prices.Timeout = 10 * time.Second
	}
	if cfg.Prices.LatestTTL == 0 {
		cfg.Prices.LatestTTL = 5 * time.Minute
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = "production"
	}

	return cfg, nil
}

// postgresDSNFromEnv builds the connection string from individual variables (Docker friendly)
func postgresDSNFromEnv() string {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		get("DB_HOST", "localhost"),
		get("DB_PORT", "5432"),
		get("DB_USER", "postgres"),
		get("DB_PASSWORD", "postgres"),
		get("DB_NAME", "networth"),
	)
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, postgres; got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required")
	}
	if c.Storage.Driver == DriverPostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required")
	}
	if c.Server.APIToken == "" {
		return fmt.Errorf("server.api_token is required")
	}
	if c.Prices.BaseURL == "" {
		return fmt.Errorf("prices.base_url is required")
	}
	if c.Prices.Timeout <= 0 {
		return fmt.Errorf("prices.timeout must be positive")
	}
	if c.Prices.LatestTTL <= 0 {
		return fmt.Errorf("prices.latest_ttl must be positive")
	}
	return nil
}
