package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tabfetch/tabfetch/browser"
	"github.com/tabfetch/tabfetch/models"
)

// DOMBrowserStrategy renders the page in a real browser session before
// extracting, so client-rendered tables and lazy-loaded rows appear in
// the DOM. Last resort for HTML pages: slowest, but sees what a user
// sees.
type DOMBrowserStrategy struct {
	renderer Renderer
}

func (s *DOMBrowserStrategy) Tag() models.Strategy { return models.StrategyDOMBrowser }

func (s *DOMBrowserStrategy) Attempt(ctx context.Context, job *Job) (*models.Table, error) {
	if s.renderer == nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "no browser available"}
	}

	res, err := s.renderer.Render(ctx, &browser.RenderRequest{
		URL:         job.Request.URL,
		Headers:     job.Request.Headers,
		Cookies:     job.Request.Cookies,
		Fingerprint: job.Fingerprint,
		ScrollPages: 2,
		Delay:       job.Delay,
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, &models.ParseError{Strategy: s.Tag(), Reason: "unparseable rendered HTML", Err: err}
	}

	table, err := tableFromHTML(doc, job.Site.DataSource.Selector, s.Tag())
	if err != nil {
		return nil, err
	}
	return finishTable(table, job, s.Tag())
}
