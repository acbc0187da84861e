package models

import "time"

// Attempt is one recorded try of one strategy. Immutable once appended;
// the full ordered sequence is kept for diagnostics.
type Attempt struct {
	Strategy Strategy  `json:"strategy"`
	At       time.Time `json:"at"`
	// Kind is empty on success.
	Kind ErrorKind `json:"kind,omitempty"`
	// Detail is the failure message, or empty on success.
	Detail string `json:"detail,omitempty"`
	// Rows is the extracted row count on success.
	Rows int `json:"rows,omitempty"`
}

// Succeeded reports whether this attempt produced a table.
func (a Attempt) Succeeded() bool { return a.Kind == "" }

// ScrapeResult is the terminal value of one extraction chain run.
type ScrapeResult struct {
	SiteID   string    `json:"site_id"`
	URL      string    `json:"url"`
	Attempts []Attempt `json:"attempts"`
	// Chosen is the strategy that produced Table; empty when all failed.
	Chosen Strategy `json:"chosen_strategy,omitempty"`
	Table  *Table   `json:"-"`
}

// Succeeded reports whether any strategy produced a non-empty table.
func (r *ScrapeResult) Succeeded() bool {
	return r != nil && r.Chosen != "" && !r.Table.Empty()
}

// RobotsStatus is the crawl-permission decision for a site.
type RobotsStatus string

const (
	RobotsAllowed    RobotsStatus = "ALLOWED"
	RobotsDisallowed RobotsStatus = "DISALLOWED"
	RobotsUnknown    RobotsStatus = "UNKNOWN"
)

// RobotsPolicy is the persisted crawl-permission state for a site.
// Disallowed can never be bypassed; only Unknown may be overridden, and
// only when the caller explicitly asks for it.
type RobotsPolicy struct {
	Status           RobotsStatus `json:"status" yaml:"status"`
	LastChecked      time.Time    `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`
	OverrideApproved bool         `json:"override_approved,omitempty" yaml:"override_approved,omitempty"`
}
