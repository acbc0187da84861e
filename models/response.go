package models

// FetchResponse is the /api/v1/fetch response body.
type FetchResponse struct {
	Success bool          `json:"success"`
	Site    string        `json:"site,omitempty"`
	Chosen  Strategy      `json:"chosen_strategy,omitempty"`
	Columns []string      `json:"columns,omitempty"`
	Records []Record      `json:"records,omitempty"`
	Cached  bool          `json:"cached,omitempty"`
	Cells   []CellFailure `json:"cell_failures,omitempty"`

	Report   *ValidationReport `json:"report,omitempty"`
	Attempts []Attempt         `json:"attempts,omitempty"`

	// OutputPath is set when the exporter persisted the dataset.
	OutputPath string `json:"output_path,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the /api/v1/health response body.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	ActivePages int    `json:"active_pages"`
	MaxPages    int    `json:"max_pages"`
	Sites       int    `json:"sites"`
	Version     string `json:"version"`
}
