package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the effective configuration of the binaries: defaults, then the
// YAML file named by KONTRIBUTE_CONFIG, then KONTRIBUTE_* environment
// variables.
type Config struct {
	Gateway struct {
		Addr           string        `yaml:"addr"`
		RateLimit      float64       `yaml:"rate_limit"`
		RateBurst      int           `yaml:"rate_burst"`
		WatchInterval  time.Duration `yaml:"watch_interval"`
		ShutdownWindow time.Duration `yaml:"shutdown_window"`
	} `yaml:"gateway"`
	Listing struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"listing"`
	Shards struct {
		RegistryPath string        `yaml:"registry_path"`
		Endpoints    []string      `yaml:"endpoints"`
		MaxInFlight  int           `yaml:"max_in_flight"`
		Timeout      time.Duration `yaml:"timeout"`
		Parallel     bool          `yaml:"parallel_proposals"`
	} `yaml:"shards"`
	Ledger struct {
		Addr string `yaml:"addr"`
		Seed string `yaml:"seed"`
	} `yaml:"ledger"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func defaultConfig() Config {
	var c Config
	c.Gateway.Addr = ":8080"
	c.Gateway.RateLimit = 20
	c.Gateway.RateBurst = 40
	c.Gateway.WatchInterval = 3 * time.Second
	c.Gateway.ShutdownWindow = 5 * time.Second
	c.Listing.BaseURL = "https://nftpkg.com"
	c.Listing.Timeout = 10 * time.Second
	c.Shards.Timeout = 10 * time.Second
	c.Ledger.Addr = "localhost:50051"
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	return c
}

// LoadConfig reads .env if present, then the optional YAML file, then the
// environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaultConfig()
	if path := os.Getenv("KONTRIBUTE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("KONTRIBUTE_ADDR", &cfg.Gateway.Addr)
	str("KONTRIBUTE_LISTING_URL", &cfg.Listing.BaseURL)
	str("KONTRIBUTE_REGISTRY_PATH", &cfg.Shards.RegistryPath)
	str("KONTRIBUTE_LEDGER_ADDR", &cfg.Ledger.Addr)
	str("KONTRIBUTE_LEDGER_SEED", &cfg.Ledger.Seed)
	str("KONTRIBUTE_LOG_LEVEL", &cfg.Logging.Level)
	str("KONTRIBUTE_LOG_FORMAT", &cfg.Logging.Format)

	if v := os.Getenv("KONTRIBUTE_SHARD_ENDPOINTS"); v != "" {
		cfg.Shards.Endpoints = nil
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.Shards.Endpoints = append(cfg.Shards.Endpoints, s)
			}
		}
	}

	durations := map[string]*time.Duration{
		"KONTRIBUTE_HTTP_TIMEOUT":   &cfg.Listing.Timeout,
		"KONTRIBUTE_SHARD_TIMEOUT":  &cfg.Shards.Timeout,
		"KONTRIBUTE_WATCH_INTERVAL": &cfg.Gateway.WatchInterval,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("KONTRIBUTE_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("KONTRIBUTE_RATE_LIMIT: %w", err)
		}
		cfg.Gateway.RateLimit = f
	}
	if v := os.Getenv("KONTRIBUTE_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KONTRIBUTE_MAX_IN_FLIGHT: %w", err)
		}
		cfg.Shards.MaxInFlight = n
	}
	if v := os.Getenv("KONTRIBUTE_PARALLEL_PROPOSALS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KONTRIBUTE_PARALLEL_PROPOSALS: %w", err)
		}
		cfg.Shards.Parallel = b
	}
	return nil
}
