package jolpica

import (
	"errors"
	"strings"
	"time"

	"github.com/pitwall-io/pitwall/internal/config"
)

const (
	// DefaultBaseURL is the public Jolpica mirror of the Ergast API.
	DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

	defaultRequestTimeout = 10 * time.Second
	// defaultRequestInterval is the mandatory pause between requests. The
	// upstream service enforces a shared rate limit and answers violations
	// with an extended lockout, so this floor is deliberately not exposed
	// as a per-call knob.
	defaultRequestInterval = 500 * time.Millisecond
	defaultRateLimitPause  = 2 * time.Second
	defaultPageSize        = 30
)

// ErrBaseURLEmpty is returned when the API base URL is an empty string.
var ErrBaseURLEmpty = errors.New("results API base URL cannot be empty")

// Config holds results API client configuration.
type Config struct {
	BaseURL         string        // Endpoint root, no trailing slash
	RequestTimeout  time.Duration // Per-request timeout
	RequestInterval time.Duration // Minimum spacing between requests
	RateLimitPause  time.Duration // Extra pause after an HTTP 429 before the retry
	PageSize        int           // Page size for paginated endpoints
}

// LoadClientConfig loads results API configuration from environment variables
// with fallback to defaults.
func LoadClientConfig() *Config {
	return &Config{
		BaseURL:         config.GetEnvStr("PITWALL_API_BASE_URL", DefaultBaseURL),
		RequestTimeout:  config.GetEnvDuration("PITWALL_API_TIMEOUT", defaultRequestTimeout),
		RequestInterval: config.GetEnvDuration("PITWALL_API_REQUEST_INTERVAL", defaultRequestInterval),
		RateLimitPause:  config.GetEnvDuration("PITWALL_API_RATE_LIMIT_PAUSE", defaultRateLimitPause),
		PageSize:        config.GetEnvInt("PITWALL_API_PAGE_SIZE", defaultPageSize),
	}
}

// Validate checks if the client configuration is valid and fills zero values
// with defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrBaseURLEmpty
	}

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	if c.RequestInterval <= 0 {
		c.RequestInterval = defaultRequestInterval
	}

	if c.RateLimitPause <= 0 {
		c.RateLimitPause = defaultRateLimitPause
	}

	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}

	return nil
}
