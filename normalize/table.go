package normalize

import (
	"strings"

	"github.com/tabfetch/tabfetch/models"
)

// typeHints maps column-name fragments to field types, probed in order.
// Declared field_types in the site config always win over inference.
var typeHints = []struct {
	fragment  string
	fieldType string
}{
	{"percent", TypePercentage},
	{"change %", TypePercentage},
	{"chg%", TypePercentage},
	{"%", TypePercentage},
	{"yield", TypePercentage},
	{"volume", TypeNumber},
	{"shares", TypeNumber},
	{"count", TypeNumber},
	{"ticker", TypeTicker},
	{"symbol", TypeTicker},
	{"date", TypeDate},
	{"time", TypeDate},
	{"price", TypePrice},
	{"open", TypePrice},
	{"high", TypePrice},
	{"low", TypePrice},
	{"close", TypePrice},
	{"last", TypePrice},
	{"bid", TypePrice},
	{"ask", TypePrice},
	{"value", TypePrice},
	{"amount", TypePrice},
	{"cap", TypePrice},
}

// InferType picks a field type for a column, from the declared mapping
// when present, otherwise from the column name.
func InferType(column string, declared map[string]string) string {
	if t, ok := declared[column]; ok && t != "" {
		return t
	}
	lower := strings.ToLower(column)
	for _, hint := range typeHints {
		if strings.Contains(lower, hint.fragment) {
			return hint.fieldType
		}
	}
	return TypeString
}

// Table normalizes every cell of a raw table into typed records. Cells
// that fail to parse become nil in the record and are reported as
// failures; row and column structure is always preserved.
func Table(raw *models.Table, declared map[string]string) ([]models.Record, []models.CellFailure) {
	if raw == nil {
		return nil, nil
	}

	types := make([]string, len(raw.Columns))
	for i, col := range raw.Columns {
		types[i] = InferType(col, declared)
	}

	records := make([]models.Record, 0, len(raw.Rows))
	var failures []models.CellFailure

	for rowIdx, row := range raw.Rows {
		rec := make(models.Record, len(raw.Columns))
		for colIdx, col := range raw.Columns {
			var text string
			if colIdx < len(row) {
				text = row[colIdx]
			}
			value, ok := normalizeCell(text, types[colIdx])
			rec[col] = value
			if !ok && !IsNull(text) {
				failures = append(failures, models.CellFailure{
					Row: rowIdx, Column: col, Text: text,
				})
			}
		}
		records = append(records, rec)
	}
	return records, failures
}

// normalizeCell applies one field type to one cell. The ok result is
// false both for null sentinels and for parse failures; callers that
// care use IsNull to tell them apart.
func normalizeCell(text, fieldType string) (any, bool) {
	switch fieldType {
	case TypePrice:
		if v, ok := Price(text); ok {
			return v, true
		}
	case TypePercentage:
		if v, ok := Percentage(text); ok {
			return v, true
		}
	case TypeNumber:
		if v, ok := Number(text); ok {
			return v, true
		}
	case TypeTicker:
		if v, ok := Ticker(text); ok {
			return v, true
		}
	case TypeDate:
		if v, ok := Date(text); ok {
			return v, true
		}
	default:
		trimmed := strings.TrimSpace(text)
		if !IsNull(trimmed) {
			return trimmed, true
		}
	}
	return nil, false
}
