package models

// Table is a raw tabular extraction payload. Cells are kept as the
// original text until normalization; column order is preserved.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table carries no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all cell values of one column, skipping short rows.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// RenameColumns applies source-field → canonical-field mappings in place.
// Columns without a mapping keep their original name.
func (t *Table) RenameColumns(mappings map[string]string) {
	if len(mappings) == 0 {
		return
	}
	for i, c := range t.Columns {
		if canonical, ok := mappings[c]; ok {
			t.Columns[i] = canonical
		}
	}
}

// Record is one normalized row: canonical field name → value. Values are
// float64 for numeric fields, string for textual fields, or nil when the
// originating cell could not be parsed.
type Record map[string]any

// CellFailure records a cell that failed normalization. The row keeps a
// nil sentinel in its place; the failure is reported, never raised.
type CellFailure struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Text   string `json:"text"`
}
