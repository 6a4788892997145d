package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CGROUP_ANALYZER_"

// Cache backends.
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendValkey = "valkey"
)

// Config captures the settings of the batch CLI and the analysis service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Source   SourceConfig   `yaml:"source"`
	Rules    RulesConfig    `yaml:"rules"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	MaxMessageBytes int           `yaml:"maxMessageBytes"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AnalysisConfig tunes the interpretation pipeline.
type AnalysisConfig struct {
	// Workers bounds per-cgroup parallelism; 0 means GOMAXPROCS.
	Workers     int     `yaml:"workers"`
	Periodicity bool    `yaml:"periodicity"`
	ClusterGap  float64 `yaml:"clusterGap"`
	OutputDir   string  `yaml:"outputDir"`
}

// SourceConfig controls how input tables are fetched.
type SourceConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of analysis results by input digest.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	TTL          time.Duration `yaml:"ttl"`
	// Size caps the in-process cache entry count.
	Size int `yaml:"size"`
}

// MetricsConfig controls Prometheus export in batch mode.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			MaxMessageBytes: 64 << 20,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Analysis: AnalysisConfig{
			Periodicity: true,
			ClusterGap:  10,
			OutputDir:   "analysis_output",
		},
		Source: SourceConfig{Timeout: 30 * time.Second},
		Rules:  RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Backend:      CacheBackendNone,
			TTL:          10 * time.Minute,
			Size:         128,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "", CacheBackendNone, CacheBackendMemory:
	case CacheBackendValkey:
		if c.Cache.Addr == "" {
			return errors.New("cache backend valkey requires cache.addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := env("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := env("METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := env("SERVER_MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxMessageBytes = n
		}
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := env("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.Workers = n
		}
	}
	if v := env("PERIODICITY"); v != "" {
		cfg.Analysis.Periodicity = truthy(v)
	}
	if v := env("OUTPUT_DIR"); v != "" {
		cfg.Analysis.OutputDir = v
	}
	if v := env("SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.Timeout = d
		}
	}
	if v := env("RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := env("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := env("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := env("CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := env("CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := env("CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := env("CACHE_TLS"); truthy(v) {
		cfg.Cache.TLS = true
	}
	if v := env("CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := env("CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := env("CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := env("CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := env("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := env("CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
	if v := env("METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.TextfilePath = v
	}
}

func env(name string) string {
	return os.Getenv(envPrefix + name)
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
