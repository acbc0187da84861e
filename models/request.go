package models

import "fmt"

// FetchRequest is the /api/v1/fetch request body. Exactly one of SiteID
// or URL must be set.
type FetchRequest struct {
	SiteID string `json:"site_id,omitempty"`
	URL    string `json:"url,omitempty"`

	// OverrideRobots permits proceeding when the robots policy is
	// UNKNOWN. It never bypasses an explicit DISALLOWED.
	OverrideRobots bool `json:"override_robots,omitempty"`

	// UseFallbacks enables the full strategy chain; when false only the
	// declared strategy is attempted.
	UseFallbacks bool `json:"use_fallbacks,omitempty"`

	// Export writes the normalized dataset through the exporter.
	Export bool `json:"export,omitempty"`

	// Timeout bounds the whole chain, in seconds. 0 uses the default.
	Timeout int `json:"timeout,omitempty"`
}

// Validate checks the request invariants.
func (r *FetchRequest) Validate() error {
	if (r.SiteID == "") == (r.URL == "") {
		return fmt.Errorf("exactly one of site_id or url is required")
	}
	if r.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}
