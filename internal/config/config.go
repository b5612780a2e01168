package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `yaml:"idle_timeout_ms"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
}

// TierLimit overrides one named tier. Both fields must be positive to take
// effect.
type TierLimit struct {
	MaxRequests int `yaml:"max_requests"`
	WindowMS    int `yaml:"window_ms"`
}

func (t TierLimit) Valid() bool {
	return t.MaxRequests > 0 && t.WindowMS > 0
}

func (t TierLimit) Window() time.Duration {
	return time.Duration(t.WindowMS) * time.Millisecond
}

type Limits struct {
	DefaultTier       string               `yaml:"default_tier"`
	Tiers             map[string]TierLimit `yaml:"tiers"`
	TrustedIPs        []string             `yaml:"trusted_ips"`
	CleanupIntervalMS int                  `yaml:"cleanup_interval_ms"`
	Headers           bool                 `yaml:"headers"`
}

func (l Limits) CleanupInterval() time.Duration {
	if l.CleanupIntervalMS <= 0 {
		return time.Minute
	}
	return time.Duration(l.CleanupIntervalMS) * time.Millisecond
}

// Redis selects the shared store. Empty addr means the in-process store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Route struct {
	ID    string `yaml:"id"`
	Match struct {
		PathPrefix string   `yaml:"path_prefix"`
		Methods    []string `yaml:"methods"`
	} `yaml:"match"`

	Upstream struct {
		URL       string `yaml:"url"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"upstream"`

	Tier  string     `yaml:"tier"`
	Limit *TierLimit `yaml:"limit"` // per-route override, beats the tier
}

type Root struct {
	Server        Server        `yaml:"server"`
	Observability Observability `yaml:"observability"`
	Limits        Limits        `yaml:"limits"`
	Redis         Redis         `yaml:"redis"`
	Routes        []Route       `yaml:"routes"`
}

func (s Server) ReadTimeout() time.Duration {
	if s.ReadTimeoutMS == 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func (s Server) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS == 0 {
		return 10 * time.Second
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s Server) IdleTimeout() time.Duration {
	if s.IdleTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (s Server) MaxBody() int64 {
	if s.MaxBodyBytes == 0 {
		return 10 << 20
	}
	return s.MaxBodyBytes
} // default 10MB

func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}
	if cfg.Limits.DefaultTier == "" {
		cfg.Limits.DefaultTier = "standard"
	}
	// tier overrides with non-positive values are config mistakes; dropping
	// them here keeps the limiter free of runtime validation
	for name, t := range cfg.Limits.Tiers {
		if !t.Valid() {
			delete(cfg.Limits.Tiers, name)
		}
	}
	for i := range cfg.Routes {
		if cfg.Routes[i].Upstream.TimeoutMS <= 0 {
			cfg.Routes[i].Upstream.TimeoutMS = 3000
		}
		if cfg.Routes[i].Limit != nil && !cfg.Routes[i].Limit.Valid() {
			cfg.Routes[i].Limit = nil
		}
	}

	return &cfg, nil
}
