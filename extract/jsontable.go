package extract

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/tabfetch/tabfetch/models"
)

// dataKeys are the envelope keys APIs commonly wrap row arrays in,
// probed in order when the document root is an object.
var dataKeys = []string{"data", "results", "result", "rows", "items", "records", "values", "quotes", "prices"}

// tableFromJSON turns a decoded JSON document into a table. Accepted
// shapes: an array of objects, an array of arrays with a header row, or
// an object wrapping either under one of dataKeys (searched one level
// deep, then recursively through single-key envelopes).
func tableFromJSON(doc any, tag models.Strategy) (*models.Table, error) {
	rows, err := rowsFromJSON(doc, 0)
	if err != nil {
		return nil, &models.ParseError{Strategy: tag, Reason: err.Error()}
	}
	return tableFromRows(rows, tag)
}

func rowsFromJSON(doc any, depth int) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if depth >= 3 {
			return nil, errNoRowArray
		}
		for _, key := range dataKeys {
			if inner, ok := v[key]; ok {
				if rows, err := rowsFromJSON(inner, depth+1); err == nil {
					return rows, nil
				}
			}
		}
		// Single-key envelope, e.g. {"chart": {"result": [...]}}.
		if len(v) == 1 {
			for _, inner := range v {
				return rowsFromJSON(inner, depth+1)
			}
		}
		return nil, errNoRowArray
	default:
		return nil, errNoRowArray
	}
}

var errNoRowArray = jsonShapeError("no row array found in document")

type jsonShapeError string

func (e jsonShapeError) Error() string { return string(e) }

func tableFromRows(rows []any, tag models.Strategy) (*models.Table, error) {
	if len(rows) == 0 {
		return nil, &models.ParseError{Strategy: tag, Reason: "row array is empty"}
	}

	switch rows[0].(type) {
	case map[string]any:
		return tableFromObjects(rows, tag)
	case []any:
		return tableFromArrays(rows, tag)
	default:
		return nil, &models.ParseError{Strategy: tag, Reason: "row array holds scalars, not rows"}
	}
}

// tableFromObjects builds columns from the union of row keys, sorted
// for deterministic output (JSON objects carry no key order).
func tableFromObjects(rows []any, tag models.Strategy) (*models.Table, error) {
	keySet := make(map[string]struct{})
	for _, raw := range rows {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, &models.ParseError{Strategy: tag, Reason: "row array mixes objects with other types"}
		}
		for k := range obj {
			keySet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	table := &models.Table{Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, raw := range rows {
		obj := raw.(map[string]any)
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellString(obj[col])
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// tableFromArrays treats the first inner array as the header row.
func tableFromArrays(rows []any, tag models.Strategy) (*models.Table, error) {
	header, ok := rows[0].([]any)
	if !ok || len(header) == 0 {
		return nil, &models.ParseError{Strategy: tag, Reason: "array-of-arrays document has no header row"}
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = cellString(h)
	}

	table := &models.Table{Columns: columns, Rows: make([][]string, 0, len(rows)-1)}
	for _, raw := range rows[1:] {
		arr, ok := raw.([]any)
		if !ok {
			return nil, &models.ParseError{Strategy: tag, Reason: "row array mixes arrays with other types"}
		}
		row := make([]string, len(columns))
		for i := range columns {
			if i < len(arr) {
				row[i] = cellString(arr[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// cellString renders a decoded JSON value as cell text. Numbers keep
// their shortest exact representation; nested structures round-trip
// through the encoder.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
