package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/tabfetch/tabfetch/models"
)

// XMLStrategy fetches an XML feed and flattens its repeating row
// element into a table. The row element is addressed by a configured
// XPath; without one the most-repeated element name is used.
type XMLStrategy struct {
	fetcher Fetcher
}

func (s *XMLStrategy) Tag() models.Strategy { return models.StrategyXML }

func (s *XMLStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	resp, err := s.fetcher.Do(ctx, job.Request)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "unparseable XML", Err: err}
	}

	var rows []*xmlquery.Node
	if path := job.Site.DataSource.RowPath; path != "" {
		rows, err = xmlquery.QueryAll(doc, path)
		if err != nil {
			return nil, &models.ParseError{Strategy: s.Tag(), Reason: "invalid row path " + path, Err: err}
		}
	} else {
		rows = inferRows(doc)
	}
	if len(rows) == 0 {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "no row elements found"}
	}

	// Columns are the union of field names across rows, in first-seen
	// order (XML preserves element order, unlike JSON objects).
	var columns []string
	index := make(map[string]int)
	addColumn := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(columns)
		columns = append(columns, name)
		return len(columns) - 1
	}

	cells := make([]map[int]string, 0, len(rows))
	for _, row := range rows {
		rowCells := make(map[int]string)
		for child := row.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			rowCells[addColumn(child.Data)] = strings.TrimSpace(child.InnerText())
		}
		if len(rowCells) == 0 {
			for _, attr := range row.Attr {
				rowCells[addColumn(attr.Name.Local)] = attr.Value
			}
		}
		cells = append(cells, rowCells)
	}
	if len(columns) == 0 {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "row elements carry no fields"}
	}

	table := &models.Table{Columns: columns, Rows: make([][]string, 0, len(cells))}
	for _, rowCells := range cells {
		row := make([]string, len(columns))
		for i, v := range rowCells {
			row[i] = v
		}
		table.Rows = append(table.Rows, row)
	}
	return finishTable(table, job, s.Tag())
}

// inferRows finds the element name that repeats the most among
// same-parent siblings and returns those elements as rows.
func inferRows(doc *xmlquery.Node) []*xmlquery.Node {
	var best []*xmlquery.Node
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		groups := make(map[string][]*xmlquery.Node)
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			groups[child.Data] = append(groups[child.Data], child)
			walk(child)
		}
		for _, group := range groups {
			if len(group) >= 2 && len(group) > len(best) {
				best = group
			}
		}
	}
	walk(doc)
	return best
}
