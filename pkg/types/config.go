// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by providers.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout. No timeout applies to a job as a whole.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibliometrics/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the paginated fetcher and its provider.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the bibliographic search service: inspire, openalex,
	// or semantic_scholar.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// PageSize is the number of records requested per page (default 250).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// RequestDelay is the minimum delay between consecutive page requests
	// (default 0, no delay).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay"`

	// RetriesOn429 is the number of retries on HTTP 429 responses
	// (default 0, no retries).
	RetriesOn429 int `json:"retries_on_429" yaml:"retries_on_429" mapstructure:"retries_on_429"`

	// APIKey is an optional provider API key (Semantic Scholar).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent as the mailto parameter for the OpenAlex polite pool.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

// StatsConfig holds settings for the author statistics aggregator.
type StatsConfig struct {
	// ThrottleAfter is the discovered-paper count above which the
	// aggregator sleeps before each per-paper fetch (default 20).
	ThrottleAfter int `json:"throttle_after" yaml:"throttle_after" mapstructure:"throttle_after"`

	// ThrottleDelay is the sleep applied per paper once ThrottleAfter is
	// exceeded (default 1s).
	ThrottleDelay time.Duration `json:"throttle_delay" yaml:"throttle_delay" mapstructure:"throttle_delay"`
}

// StoreConfig holds settings for the result store.
type StoreConfig struct {
	// Path is the SQLite database file (default "bibliometrics.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is stderr or stdout.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// Config groups all settings of the engine and its CLI.
type Config struct {
	Fetch FetchConfig `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Stats StatsConfig `json:"stats" yaml:"stats" mapstructure:"stats"`
	Store StoreConfig `json:"store" yaml:"store" mapstructure:"store"`
	Log   LogConfig   `json:"log" yaml:"log" mapstructure:"log"`
}

const (
	DefaultPageSize      = 250
	DefaultTimeout       = 30 * time.Second
	DefaultUserAgent     = "bibliometrics/0.1"
	DefaultProvider      = "inspire"
	DefaultThrottleAfter = 20
	DefaultThrottleDelay = time.Second
	DefaultStorePath     = "bibliometrics.db"
)

// DefaultFetchConfig returns the fetcher defaults.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Provider: DefaultProvider,
		PageSize: DefaultPageSize,
	}
}

// DefaultStatsConfig returns the aggregator defaults.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		ThrottleAfter: DefaultThrottleAfter,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// DefaultConfig returns a Config with every section defaulted.
func DefaultConfig() Config {
	return Config{
		Fetch: DefaultFetchConfig(),
		Stats: DefaultStatsConfig(),
		Store: StoreConfig{Path: DefaultStorePath},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}
