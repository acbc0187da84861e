package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tabfetch/tabfetch/models"
)

// APIJSONStrategy fetches a declared JSON endpoint and flattens the row
// array into a table. Fastest and most reliable strategy, so it leads
// the default fallback order.
type APIJSONStrategy struct {
	fetcher Fetcher
}

func (s *APIJSONStrategy) Tag() models.Strategy { return models.StrategyAPIJSON }

func (s *APIJSONStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	req := job.Request
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	if _, ok := req.Headers["Accept"]; !ok {
		req.Headers["Accept"] = "application/json"
	}

	resp, err := s.fetcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	body := resp.Body
	if ct := resp.ContentType; ct != "" && !strings.Contains(ct, "json") && !strings.Contains(ct, "text/plain") {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "endpoint returned non-JSON content type " + ct}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "invalid JSON document", Err: err}
	}

	table, err := tableFromJSON(doc, s.Tag())
	if err != nil {
		return nil, err
	}
	return finishTable(table, job, s.Tag())
}
