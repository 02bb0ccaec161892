package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and Load.
const (
	DefaultTimeoutHint        = 60000 // milliseconds
	DefaultSessionTimeout     = 3600000
	DefaultPublishingInterval = 500.0
	DefaultLifetimeCount      = 10000
	DefaultKeepAliveCount     = 10
	DefaultSamplingInterval   = 500.0
	DefaultSlotCapacity       = 10
	DefaultPollInterval       = 5000 // milliseconds
)

var (
	// ErrNoEndpoint is returned when neither an endpoint URL nor a
	// fallback URL is configured.
	ErrNoEndpoint = errors.New("either endpoint_url or fallback_url must be set")
)

// SubscriptionConfig holds subscription parameters.
type SubscriptionConfig struct {
	// PublishingInterval in milliseconds.
	PublishingInterval float64 `yaml:"publishing_interval"`

	// LifetimeCount in publishing intervals.
	LifetimeCount uint32 `yaml:"lifetime_count"`

	// KeepAliveCount in publishing intervals.
	KeepAliveCount uint32 `yaml:"keep_alive_count"`

	// MaxNotifications per publish, 0 for unlimited.
	MaxNotifications uint32 `yaml:"max_notifications"`

	// Priority relative to other subscriptions.
	Priority uint8 `yaml:"priority"`

	// SamplingInterval is the default per-item interval in milliseconds.
	SamplingInterval float64 `yaml:"sampling_interval"`
}

// Config holds the full client configuration.
type Config struct {
	// EndpointURL of the persistent channel.
	EndpointURL string `yaml:"endpoint_url"`

	// FallbackURL of the point-to-point transport, used when the channel
	// is closed.
	FallbackURL string `yaml:"fallback_url"`

	// SessionName sent in CreateSession.
	SessionName string `yaml:"session_name"`

	// SessionTimeout requested in CreateSession, in milliseconds.
	SessionTimeout float64 `yaml:"session_timeout"`

	// TimeoutHint stamped on request headers, in milliseconds.
	TimeoutHint uint32 `yaml:"timeout_hint"`

	// SessionEnabled requests a session as soon as the channel opens.
	SessionEnabled bool `yaml:"session_enabled"`

	// AssumeSuccess keeps the optimistic state transitions of the session
	// and subscription machines.
	AssumeSuccess bool `yaml:"assume_success"`

	// SlotCapacity bounds the logical subscriber table.
	SlotCapacity int `yaml:"slot_capacity"`

	// PollInterval of the degraded read-polling fallback, in
	// milliseconds. 0 disables polling.
	PollInterval uint32 `yaml:"poll_interval"`

	// Subscription parameters.
	Subscription SubscriptionConfig `yaml:"subscription"`

	// LogFile captures protocol events when set.
	LogFile string `yaml:"log_file"`
}

// Default returns the default configuration. An endpoint URL must still be
// provided before use.
func Default() Config {
	return Config{
		SessionName:    "uaflow-client",
		SessionTimeout: DefaultSessionTimeout,
		TimeoutHint:    DefaultTimeoutHint,
		SessionEnabled: true,
		AssumeSuccess:  true,
		SlotCapacity:   DefaultSlotCapacity,
		PollInterval:   DefaultPollInterval,
		Subscription: SubscriptionConfig{
			PublishingInterval: DefaultPublishingInterval,
			LifetimeCount:      DefaultLifetimeCount,
			KeepAliveCount:     DefaultKeepAliveCount,
			SamplingInterval:   DefaultSamplingInterval,
		},
	}
}

// Load reads a YAML file and overlays it onto the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data onto the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.EndpointURL == "" && c.FallbackURL == "" {
		return ErrNoEndpoint
	}
	if c.SlotCapacity <= 0 {
		return fmt.Errorf("slot_capacity must be positive, got %d", c.SlotCapacity)
	}
	if c.Subscription.PublishingInterval < 0 {
		return fmt.Errorf("publishing_interval must not be negative, got %v", c.Subscription.PublishingInterval)
	}
	return nil
}
