// Package pipeline runs the full extraction flow for one target: the
// crawl-permission gate, the strategy chain, normalization, validation
// and the optional export handoff.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tabfetch/tabfetch/chain"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/export"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/normalize"
	"github.com/tabfetch/tabfetch/policy"
	"github.com/tabfetch/tabfetch/validate"
)

// Runner executes the end-to-end pipeline. Safe for concurrent use.
type Runner struct {
	sites    *config.Sites
	gate     *policy.Gate
	chain    *chain.Chain
	exporter *export.Exporter
	cfg      *config.Config
}

// NewRunner wires a Runner over its collaborators. exporter may be nil
// when exporting is disabled.
func NewRunner(sites *config.Sites, gate *policy.Gate, ch *chain.Chain, exporter *export.Exporter, cfg *config.Config) *Runner {
	return &Runner{sites: sites, gate: gate, chain: ch, exporter: exporter, cfg: cfg}
}

// Run executes one fetch request. Typed errors identify the failure
// stage: *models.PolicyError from the gate, *models.AuthError from
// credential injection, *models.UnreachableError when every strategy
// failed. The response carries the attempt history in every case where
// the chain ran.
func (r *Runner) Run(ctx context.Context, req *models.FetchRequest) (*models.FetchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	site, err := r.resolveSite(req)
	if err != nil {
		return nil, err
	}

	timeout := r.cfg.Chain.RunTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	order, err := site.Chain(req.UseFallbacks)
	if err != nil {
		return nil, err
	}
	target := site.TargetURL(order[0])

	robots := site.Robots
	if robots.Status == "" {
		robots = r.gate.Check(ctx, target)
	}
	override := req.OverrideRobots || site.Robots.OverrideApproved
	if err := policy.Decide(target, robots, override); err != nil {
		slog.Warn("crawl permission denied", "site", site.ID, "target", target, "status", robots.Status)
		return nil, err
	}

	result, err := r.chain.Run(ctx, site, req.UseFallbacks)
	if err != nil {
		resp := &models.FetchResponse{Site: site.ID}
		if result != nil {
			resp.Attempts = result.Attempts
		}
		return resp, err
	}

	records, failures := normalize.Table(result.Table, site.FieldTypes)
	report := validate.Run(records, result.Table, site.FieldTypes)

	resp := &models.FetchResponse{
		Success:  true,
		Site:     site.ID,
		Chosen:   result.Chosen,
		Columns:  result.Table.Columns,
		Records:  records,
		Cells:    failures,
		Report:   report,
		Attempts: result.Attempts,
	}

	if req.Export && r.exporter != nil {
		path, exportErr := r.exporter.Write(&export.Dataset{
			SiteID:  site.ID,
			Columns: result.Table.Columns,
			Records: records,
			Report:  report,
		}, r.cfg.Export.Format)
		if exportErr != nil {
			slog.Error("export failed", "site", site.ID, "error", exportErr)
			resp.Report.Warnings = append(resp.Report.Warnings, "export failed: "+exportErr.Error())
		} else {
			resp.OutputPath = path
		}
	}

	slog.Info("pipeline run complete",
		"site", site.ID, "strategy", result.Chosen,
		"rows", len(records), "quality", report.QualityScore)
	return resp, nil
}

// BatchResult pairs one site id with its outcome.
type BatchResult struct {
	SiteID   string
	Response *models.FetchResponse
	Err      error
}

// RunBatch executes the pipeline for several sites with bounded
// concurrency. Individual failures are captured per site, never
// cancelling the rest of the batch.
func (r *Runner) RunBatch(ctx context.Context, siteIDs []string, concurrency int, useFallbacks bool) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]BatchResult, len(siteIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range siteIDs {
		g.Go(func() error {
			resp, err := r.Run(gctx, &models.FetchRequest{SiteID: id, UseFallbacks: useFallbacks})
			mu.Lock()
			results[i] = BatchResult{SiteID: id, Response: resp, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// resolveSite finds the declared config for a site id, or builds an
// ad-hoc config for a bare URL run.
func (r *Runner) resolveSite(req *models.FetchRequest) (*config.SiteConfig, error) {
	if req.SiteID != "" {
		site, ok := r.sites.Get(req.SiteID)
		if !ok {
			return nil, fmt.Errorf("unknown site %q", req.SiteID)
		}
		return site, nil
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", req.URL)
	}
	return &config.SiteConfig{
		ID:       "adhoc:" + strings.TrimPrefix(u.Host, "www."),
		BaseURL:  u.Scheme + "://" + u.Host,
		PageURL:  req.URL,
		Strategy: string(models.StrategyDOMTable),
	}, nil
}
