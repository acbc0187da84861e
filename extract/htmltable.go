package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/tabfetch/tabfetch/models"
)

// tableFromHTML extracts the best table from a parsed document. A CSS
// selector narrows the search to one region; with no selector every
// <table> competes and the one with the most data rows wins.
func tableFromHTML(doc *goquery.Document, selector string, tag models.Strategy) (*models.Table, error) {
	scope := doc.Selection
	if selector != "" {
		matcher, err := cascadia.Compile(selector)
		if err != nil {
			return nil, &models.ParseError{Strategy: tag, Reason: "invalid CSS selector " + selector, Err: err}
		}
		scope = doc.FindMatcher(matcher)
		if scope.Length() == 0 {
			return nil, &models.ParseError{Strategy: tag, Reason: "selector matched nothing: " + selector}
		}
	}

	tables := scope.Find("table")
	if selector != "" && scope.Is("table") {
		tables = scope
	}
	if tables.Length() == 0 {
		return nil, &models.ParseError{Strategy: tag, Reason: "no table element found"}
	}

	var best *models.Table
	tables.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		t := parseTableElement(sel)
		if t != nil && (best == nil || len(t.Rows) > len(best.Rows)) {
			best = t
		}
		return true
	})
	if best == nil {
		return nil, &models.ParseError{Strategy: tag, Reason: "tables present but none held data rows"}
	}
	return best, nil
}

// parseTableElement flattens one <table>. Headers come from <th> cells
// when present, otherwise the first row is promoted to the header.
func parseTableElement(table *goquery.Selection) *models.Table {
	var columns []string
	table.Find("thead tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		columns = append(columns, cleanCell(cell.Text()))
	})

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Rows inside thead were already consumed as the header.
		if tr.ParentsFiltered("thead").Length() > 0 {
			return
		}
		var row []string
		isHeader := true
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if cell.Is("td") {
				isHeader = false
			}
			row = append(row, cleanCell(cell.Text()))
		})
		if len(row) == 0 {
			return
		}
		if isHeader && columns == nil {
			columns = row
			return
		}
		rows = append(rows, row)
	})

	if columns == nil && len(rows) > 0 {
		columns, rows = rows[0], rows[1:]
	}
	if len(columns) == 0 || len(rows) == 0 {
		return nil
	}

	// Ragged rows are padded or truncated to the header width so every
	// record has a value slot for every column.
	for i, row := range rows {
		switch {
		case len(row) < len(columns):
			padded := make([]string, len(columns))
			copy(padded, row)
			rows[i] = padded
		case len(row) > len(columns):
			rows[i] = row[:len(columns)]
		}
	}
	return &models.Table{Columns: columns, Rows: rows}
}

func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
