// Package config loads the service configuration from an optional yaml
// file, flags and environment variables.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string
	// Environment tag reported by the health endpoint.
	Environment string

	// APIKey authenticates against the upstream quote provider.
	APIKey string
	// BaseURL of the upstream quote provider.
	BaseURL string
	// MinCallInterval is the minimum spacing between upstream calls.
	MinCallInterval time.Duration
	// UpstreamTimeout bounds a single upstream request.
	UpstreamTimeout time.Duration

	// PriceTickInterval is the broadcast cadence.
	PriceTickInterval time.Duration
	// EvictionInterval is the idle sweep cadence.
	EvictionInterval time.Duration
	// EvictionTimeout is the subscriber inactivity limit.
	EvictionTimeout time.Duration

	// BroadcastSource selects where the broadcast tick gets its prices:
	// "local" (synthetic walk) or "upstream" (rate limited live feed).
	BroadcastSource string
}

type configYaml struct {
	ListenAddr        string        `yaml:"listen_addr"`
	Environment       string        `yaml:"environment"`
	BaseURL           string        `yaml:"base_url"`
	MinCallInterval   time.Duration `yaml:"min_call_interval"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`
	PriceTickInterval time.Duration `yaml:"price_tick_interval"`
	EvictionInterval  time.Duration `yaml:"eviction_interval"`
	EvictionTimeout   time.Duration `yaml:"eviction_timeout"`
	BroadcastSource   string        `yaml:"broadcast_source"`
}

// Get resolves the configuration: defaults, then the yaml file named by
// --config if given, then environment overrides for secrets.
func Get() (Config, error) {
	path := flag.String("config", "", "path to yaml config")
	listen := flag.String("listen", "", "HTTP listen address (overrides config file)")
	flag.Parse()

	cfg := defaults()

	if *path != "" {
		if err := applyYaml(&cfg, *path); err != nil {
			return Config{}, err
		}
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}

	if cfg.BroadcastSource != "local" && cfg.BroadcastSource != "upstream" {
		return Config{}, errors.Errorf("invalid broadcast_source %q (want local or upstream)", cfg.BroadcastSource)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr:        ":8080",
		Environment:       "development",
		MinCallInterval:   12 * time.Second,
		UpstreamTimeout:   10 * time.Second,
		PriceTickInterval: time.Second,
		EvictionInterval:  time.Minute,
		EvictionTimeout:   5 * time.Minute,
		BroadcastSource:   "local",
	}
}

func applyYaml(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	var y configYaml
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	if y.ListenAddr != "" {
		cfg.ListenAddr = y.ListenAddr
	}
	if y.Environment != "" {
		cfg.Environment = y.Environment
	}
	if y.BaseURL != "" {
		cfg.BaseURL = y.BaseURL
	}
	if y.MinCallInterval > 0 {
		cfg.MinCallInterval = y.MinCallInterval
	}
	if y.UpstreamTimeout > 0 {
		cfg.UpstreamTimeout = y.UpstreamTimeout
	}
	if y.PriceTickInterval > 0 {
		cfg.PriceTickInterval = y.PriceTickInterval
	}
	if y.EvictionInterval > 0 {
		cfg.EvictionInterval = y.EvictionInterval
	}
	if y.EvictionTimeout > 0 {
		cfg.EvictionTimeout = y.EvictionTimeout
	}
	if y.BroadcastSource != "" {
		cfg.BroadcastSource = y.BroadcastSource
	}
	return nil
}
