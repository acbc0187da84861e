package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process-level configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetch     FetchConfig
	Chain     ChainConfig
	RateLimit RateLimitConfig
	Stealth   StealthConfig
	Auth      APIAuthConfig
	Cache     CacheConfig
	Export    ExportConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for one navigation alone.
	NavigationTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists resource types never loaded.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// FetchConfig controls the plain HTTP fetch client.
type FetchConfig struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration // default: 20s

	// UserAgent identifies the client to robots.txt and servers.
	UserAgent string // default: "tabfetch/1.0"

	// Proxy is an optional proxy URL for all requests.
	Proxy string
}

// ChainConfig controls the retry policy inside the extraction chain.
type ChainConfig struct {
	// MaxAttempts is the retry ceiling per strategy for retryable kinds.
	MaxAttempts int // default: 3

	// BackoffBase is the first retry delay; doubles per retry.
	BackoffBase time.Duration // default: 500ms

	// BackoffMax caps the exponential delay.
	BackoffMax time.Duration // default: 30s

	// RunTimeout bounds a whole chain execution.
	RunTimeout time.Duration // default: 120s
}

// RateLimitConfig is the default per-origin budget when a site config
// does not declare its own.
type RateLimitConfig struct {
	// RefillRate is sustained tokens (requests) per second per origin.
	RefillRate float64 // default: 1

	// Burst is the bucket capacity per origin.
	Burst int // default: 3
}

// StealthConfig controls browser fingerprint randomization.
type StealthConfig struct {
	// Enabled toggles fingerprint randomization for browser strategies.
	Enabled bool // default: true

	// JitterMin/JitterMax bound the randomized inter-action delay.
	JitterMin time.Duration // default: 300ms
	JitterMax time.Duration // default: 1500ms
}

// APIAuthConfig controls API-key authentication on the HTTP surface.
type APIAuthConfig struct {
	Enabled bool
	APIKeys []string
}

// CacheConfig controls the in-process result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 256

	// TTL is how long a cached result stays valid.
	TTL time.Duration // default: 15m
}

// ExportConfig controls the exporter boundary.
type ExportConfig struct {
	// Dir is where exported workbooks/CSVs are written.
	Dir string // default: "./exports"

	// Format is "xlsx" or "csv".
	Format string // default: "xlsx"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TABFETCH_HOST", "0.0.0.0"),
			Port: envIntOr("TABFETCH_PORT", 8080),
			Mode: envOr("TABFETCH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("TABFETCH_HEADLESS", true),
			MaxPages:          envIntOr("TABFETCH_MAX_PAGES", 4),
			NoSandbox:         envBoolOr("TABFETCH_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("TABFETCH_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("TABFETCH_NAV_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("TABFETCH_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Fetch: FetchConfig{
			Timeout:   envDurationOr("TABFETCH_HTTP_TIMEOUT", 20*time.Second),
			UserAgent: envOr("TABFETCH_USER_AGENT", "tabfetch/1.0"),
			Proxy:     os.Getenv("TABFETCH_PROXY"),
		},
		Chain: ChainConfig{
			MaxAttempts: envIntOr("TABFETCH_MAX_ATTEMPTS", 3),
			BackoffBase: envDurationOr("TABFETCH_BACKOFF_BASE", 500*time.Millisecond),
			BackoffMax:  envDurationOr("TABFETCH_BACKOFF_MAX", 30*time.Second),
			RunTimeout:  envDurationOr("TABFETCH_RUN_TIMEOUT", 120*time.Second),
		},
		RateLimit: RateLimitConfig{
			RefillRate: envFloatOr("TABFETCH_RATE_RPS", 1.0),
			Burst:      envIntOr("TABFETCH_RATE_BURST", 3),
		},
		Stealth: StealthConfig{
			Enabled:   envBoolOr("TABFETCH_STEALTH", true),
			JitterMin: envDurationOr("TABFETCH_JITTER_MIN", 300*time.Millisecond),
			JitterMax: envDurationOr("TABFETCH_JITTER_MAX", 1500*time.Millisecond),
		},
		Auth: APIAuthConfig{
			Enabled: envBoolOr("TABFETCH_AUTH_ENABLED", false),
			APIKeys: envSliceOr("TABFETCH_API_KEYS", nil),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TABFETCH_CACHE_ENTRIES", 256),
			TTL:        envDurationOr("TABFETCH_CACHE_TTL", 15*time.Minute),
		},
		Export: ExportConfig{
			Dir:    envOr("TABFETCH_EXPORT_DIR", "./exports"),
			Format: envOr("TABFETCH_EXPORT_FORMAT", "xlsx"),
		},
		Log: LogConfig{
			Level:  envOr("TABFETCH_LOG_LEVEL", "info"),
			Format: envOr("TABFETCH_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
