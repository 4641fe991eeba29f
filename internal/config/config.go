package config

import (
	"fmt"
	"time"

	"github.com/voxtel/voxtel/internal/logger"
	"github.com/voxtel/voxtel/pkg/pricing"
)

// Config represents the main voxtel configuration
type Config struct {
	// Logging
	Logging logger.Config `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Session lifecycle
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Trace sink
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Pricing overrides
	Pricing PricingConfig `json:"pricing" mapstructure:"pricing"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// SessionConfig holds session lifecycle tuning
type SessionConfig struct {
	IdleTimeout   time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval"`
	DefaultModel  string        `json:"default_model" mapstructure:"default_model"`
}

// TracingConfig holds trace-sink configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// PricingConfig holds pricing-override configuration
type PricingConfig struct {
	OverridesPath string `json:"overrides_path" mapstructure:"overrides_path"`
	Watch         bool   `json:"watch" mapstructure:"watch"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: 5 * time.Minute,
			DefaultModel:  pricing.DefaultAudioModel,
		},
		Tracing: TracingConfig{
			Enabled:     true,
			ServiceName: "voxtel",
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session idle_timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep_interval must be positive")
	}
	if c.Session.SweepInterval > c.Session.IdleTimeout {
		return fmt.Errorf("session sweep_interval must not exceed idle_timeout")
	}
	if c.Session.DefaultModel == "" {
		return fmt.Errorf("session default_model cannot be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr cannot be empty when metrics are enabled")
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing service_name cannot be empty when tracing is enabled")
	}
	return nil
}
