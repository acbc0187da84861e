package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"

	"github.com/tabfetch/tabfetch/models"
)

// CSVStrategy fetches a delimited-text endpoint. The delimiter is
// sniffed from the first line (comma, semicolon, tab or pipe) since
// financial data exports are inconsistent about it.
type CSVStrategy struct {
	fetcher Fetcher
}

func (s *CSVStrategy) Tag() models.Strategy { return models.StrategyCSV }

func (s *CSVStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	resp, err := s.fetcher.Do(ctx, job.Request)
	if err != nil {
		return nil, err
	}
	if ct := resp.ContentType; strings.Contains(ct, "text/html") {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "endpoint returned HTML, not delimited text"}
	}

	body := bytes.TrimPrefix(resp.Body, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = sniffDelimiter(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "malformed delimited text", Err: err}
	}
	if len(records) < 2 {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "document has a header but no data rows"}
	}

	columns := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}

	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}

	return finishTable(&models.Table{Columns: columns, Rows: rows}, job, s.Tag())
}

// sniffDelimiter picks the candidate that appears most often in the
// first line, defaulting to comma.
func sniffDelimiter(body []byte) rune {
	line := body
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		line = body[:idx]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, cand := range []byte{';', '\t', '|'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best, bestCount = rune(cand), n
		}
	}
	return best
}
