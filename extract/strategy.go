// Package extract implements the closed set of extraction strategies.
// Each strategy attempts to turn one fetch into a table; the chain
// iterates them in configured order.
package extract

import (
	"context"
	"time"

	"github.com/tabfetch/tabfetch/browser"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/stealth"
)

// Job carries everything one strategy attempt needs. Request headers
// and cookies are populated by the auth manager before Attempt runs.
type Job struct {
	Site    *config.SiteConfig
	Request *fetch.Request

	// Fingerprint and Delay are set for browser-based strategies only.
	Fingerprint *stealth.Fingerprint
	Delay       func() time.Duration
}

// Strategy is one member of the fallback chain. Attempts are read-only
// fetches; a non-nil table is always non-empty.
type Strategy interface {
	Tag() models.Strategy
	Attempt(ctx context.Context, job *Job) (*models.Table, error)
}

// Fetcher is the HTTP transport collaborator. Satisfied by *fetch.Client.
type Fetcher interface {
	Do(ctx context.Context, req *fetch.Request) (*fetch.Response, error)
}

// Renderer is the browser-automation collaborator. Satisfied by
// *browser.Browser.
type Renderer interface {
	Render(ctx context.Context, req *browser.RenderRequest) (*browser.RenderResult, error)
}

// NewSet builds all strategies over the shared collaborators, keyed by
// tag. renderer may be nil when no browser is available; the DomBrowser
// strategy then fails with a parse failure and the chain moves on.
func NewSet(fetcher Fetcher, renderer Renderer) map[models.Strategy]Strategy {
	return map[models.Strategy]Strategy{
		models.StrategyAPIJSON:    &APIJSONStrategy{fetcher: fetcher},
		models.StrategyJSObject:   &JSObjectStrategy{fetcher: fetcher},
		models.StrategyDOMTable:   &DOMTableStrategy{fetcher: fetcher},
		models.StrategyDOMBrowser: &DOMBrowserStrategy{renderer: renderer},
		models.StrategyCSV:        &CSVStrategy{fetcher: fetcher},
		models.StrategyXML:        &XMLStrategy{fetcher: fetcher},
	}
}

// finishTable applies field mappings and rejects empty extractions.
func finishTable(table *models.Table, job *Job, tag models.Strategy) (*models.Table, error) {
	if table.Empty() {
		return nil, &models.ParseError{Strategy: tag, Reason: "extracted table has no rows"}
	}
	table.RenameColumns(job.Site.FieldMappings)
	return table, nil
}
