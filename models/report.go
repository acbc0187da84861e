package models

// FieldStats summarizes one normalized column.
type FieldStats struct {
	// Coverage is the share of rows with a parsed (non-nil) value, 0-100.
	Coverage float64 `json:"coverage"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Numeric  bool    `json:"numeric"`
}

// Anomaly flags one suspicious cell or row.
type Anomaly struct {
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
}

// ValidationReport is purely advisory: it annotates the dataset and
// never blocks the export handoff.
type ValidationReport struct {
	Rows      int                   `json:"rows"`
	Fields    map[string]FieldStats `json:"fields"`
	Anomalies []Anomaly             `json:"anomalies,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
	// QualityScore combines coverage, anomaly rate and consistency, 0-100.
	QualityScore float64 `json:"quality_score"`
}
