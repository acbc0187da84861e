package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/tabfetch/tabfetch/models"
)

// DataSource describes where a site's data lives and how to ask for it.
type DataSource struct {
	Type     string            `yaml:"type"` // "api", "page", "file"
	Endpoint string            `yaml:"endpoint,omitempty"`
	Method   string            `yaml:"method,omitempty"` // default GET
	Headers  map[string]string `yaml:"headers,omitempty"`
	// Selector narrows DOM extraction to one table/region (CSS).
	Selector string `yaml:"selector,omitempty"`
	// RowPath narrows XML extraction to the repeating row element (XPath).
	RowPath string `yaml:"row_path,omitempty"`
}

// AuthConfig selects exactly one credential injection mechanism.
// At most one of APIKey, Cookies, Session may be set.
type AuthConfig struct {
	APIKey  *APIKeyAuth  `yaml:"api_key,omitempty"`
	Cookies *CookieAuth  `yaml:"cookies,omitempty"`
	Session *SessionAuth `yaml:"session,omitempty"`
}

// APIKeyAuth injects a key into a request header. The key may be given
// inline or resolved from an environment variable at injection time.
type APIKeyAuth struct {
	Header string `yaml:"header,omitempty"` // default "Authorization"
	Format string `yaml:"format,omitempty"` // default "Bearer {key}"
	Key    string `yaml:"key,omitempty"`
	KeyEnv string `yaml:"key_env,omitempty"`
}

// CookieAuth attaches a jar parsed from a Netscape-format cookie file.
type CookieAuth struct {
	File string `yaml:"file"`
}

// SessionAuth attaches named session cookies and refreshes them when
// older than Timeout seconds.
type SessionAuth struct {
	Cookies map[string]string `yaml:"cookies"`
	Timeout int               `yaml:"timeout,omitempty"` // seconds, default 3600
}

// RateBudget is the per-origin token bucket configuration.
type RateBudget struct {
	// RefillRate is sustained requests per second.
	RefillRate float64 `yaml:"refill_rate"`
	// Burst is the bucket capacity.
	Burst int `yaml:"burst"`
}

// SiteConfig is the declared configuration for one target site. It is
// immutable once loaded; the pipeline runner owns it for one run.
type SiteConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	BaseURL string `yaml:"base_url"`
	PageURL string `yaml:"page_url,omitempty"`

	// Strategy is a single declared tag; Strategies an explicit ordered
	// list. When only Strategy is set, the full fallback order applies.
	Strategy   string   `yaml:"extraction_strategy,omitempty"`
	Strategies []string `yaml:"extraction_strategies,omitempty"`

	DataSource    DataSource          `yaml:"data_source"`
	FieldMappings map[string]string   `yaml:"field_mappings,omitempty"`
	FieldTypes    map[string]string   `yaml:"field_types,omitempty"`
	Auth          *AuthConfig         `yaml:"auth_config,omitempty"`
	Robots        models.RobotsPolicy `yaml:"robots_policy,omitempty"`
	RateLimit     *RateBudget         `yaml:"rate_limit,omitempty"`
}

// Chain resolves the ordered strategy list for this site. useFallbacks
// expands a single declared strategy into the full fallback order.
func (s *SiteConfig) Chain(useFallbacks bool) ([]models.Strategy, error) {
	if len(s.Strategies) > 0 {
		out := make([]models.Strategy, 0, len(s.Strategies))
		for _, tag := range s.Strategies {
			st, err := models.ParseStrategy(tag)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, nil
	}
	first, err := models.ParseStrategy(s.Strategy)
	if err != nil {
		return nil, err
	}
	if !useFallbacks {
		return []models.Strategy{first}, nil
	}
	return models.FallbackFrom(first), nil
}

// TargetURL is the URL a strategy should hit: the API endpoint when one
// is declared, otherwise the page URL.
func (s *SiteConfig) TargetURL(strategy models.Strategy) string {
	if strategy == models.StrategyAPIJSON || strategy == models.StrategyCSV || strategy == models.StrategyXML {
		if s.DataSource.Endpoint != "" {
			return s.DataSource.Endpoint
		}
	}
	if s.PageURL != "" {
		return s.PageURL
	}
	return s.BaseURL
}

// Validate checks structural invariants at load time.
func (s *SiteConfig) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("site config missing id")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("site %s: base_url is required", s.ID)
	}
	if s.Strategy == "" && len(s.Strategies) == 0 {
		return fmt.Errorf("site %s: extraction_strategy is required", s.ID)
	}
	if _, err := s.Chain(true); err != nil {
		return fmt.Errorf("site %s: %w", s.ID, err)
	}
	if s.Auth != nil {
		variants := 0
		if s.Auth.APIKey != nil {
			variants++
		}
		if s.Auth.Cookies != nil {
			variants++
		}
		if s.Auth.Session != nil {
			variants++
		}
		if variants > 1 {
			return fmt.Errorf("site %s: auth_config must declare exactly one variant", s.ID)
		}
	}
	if s.RateLimit != nil && (s.RateLimit.RefillRate <= 0 || s.RateLimit.Burst <= 0) {
		return fmt.Errorf("site %s: rate_limit requires positive refill_rate and burst", s.ID)
	}
	return nil
}

// Sites is the loaded site registry. Safe for concurrent reads.
type Sites struct {
	mu    sync.RWMutex
	byID  map[string]*SiteConfig
	order []string
}

// sitesFile is the YAML document shape of sites.yaml.
type sitesFile struct {
	Sites []*SiteConfig `yaml:"sites"`
}

// LoadSites reads and validates a sites.yaml registry.
func LoadSites(path string) (*Sites, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site registry: %w", err)
	}
	return ParseSites(raw)
}

// ParseSites parses a YAML site registry document.
func ParseSites(raw []byte) (*Sites, error) {
	var doc sitesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse site registry: %w", err)
	}
	reg := &Sites{byID: make(map[string]*SiteConfig, len(doc.Sites))}
	for _, site := range doc.Sites {
		if err := site.Validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.byID[site.ID]; dup {
			return nil, fmt.Errorf("duplicate site id %q", site.ID)
		}
		reg.byID[site.ID] = site
		reg.order = append(reg.order, site.ID)
	}
	return reg, nil
}

// Get returns a site config by id.
func (s *Sites) Get(id string) (*SiteConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.byID[id]
	return cfg, ok
}

// IDs lists configured site ids in declaration order.
func (s *Sites) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Add registers a site at runtime (used for ad-hoc URL runs).
func (s *Sites) Add(cfg *SiteConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[cfg.ID]; !dup {
		s.order = append(s.order, cfg.ID)
	}
	s.byID[cfg.ID] = cfg
	return nil
}
