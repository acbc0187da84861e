package extract

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/tabfetch/tabfetch/models"
)

// DOMTableStrategy fetches server-rendered HTML over plain HTTP and
// extracts the table from the static markup. No browser involved, so
// it covers JS-free pages at HTTP cost.
type DOMTableStrategy struct {
	fetcher Fetcher
}

func (s *DOMTableStrategy) Tag() models.Strategy { return models.StrategyDOMTable }

func (s *DOMTableStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	resp, err := s.fetcher.Do(ctx, job.Request)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "unparseable HTML", Err: err}
	}

	table, err := tableFromHTML(doc, job.Site.DataSource.Selector, s.Tag())
	if err != nil {
		return nil, err
	}
	return finishTable(table, job, s.Tag())
}
