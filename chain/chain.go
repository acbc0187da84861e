// Package chain runs the ordered strategy fallback for one site: pace
// the origin, inject credentials, attempt, classify the failure, then
// retry, fall back or abort. The full attempt history is recorded on
// the result whatever the outcome.
package chain

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabfetch/tabfetch/auth"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/extract"
	"github.com/tabfetch/tabfetch/faults"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/ratelimit"
	"github.com/tabfetch/tabfetch/stealth"
)

// Chain executes extraction strategies in order until one yields a
// table. Safe for concurrent use; per-run state lives on the stack.
type Chain struct {
	strategies map[models.Strategy]extract.Strategy
	limiter    *ratelimit.Registry
	auth       *auth.Manager
	stealth    *stealth.Controller

	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration

	// sleep is replaceable in tests so retry paths run instantly.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a Chain over its collaborators.
func New(strategies map[models.Strategy]extract.Strategy, limiter *ratelimit.Registry, authMgr *auth.Manager, stealthCtl *stealth.Controller, cfg config.ChainConfig) *Chain {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Chain{
		strategies:  strategies,
		limiter:     limiter,
		auth:        authMgr,
		stealth:     stealthCtl,
		maxAttempts: maxAttempts,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		sleep:       sleepCtx,
	}
}

// Run executes the site's strategy list. On success the result carries
// the chosen strategy and its table. When every strategy is exhausted
// the error is a *models.UnreachableError holding the full history; an
// auth failure aborts immediately instead of falling back.
func (c *Chain) Run(ctx context.Context, site *config.SiteConfig, useFallbacks bool) (*models.ScrapeResult, error) {
	order, err := site.Chain(useFallbacks)
	if err != nil {
		return nil, err
	}

	result := &models.ScrapeResult{SiteID: site.ID}

	for _, tag := range order {
		strategy, ok := c.strategies[tag]
		if !ok {
			result.Attempts = append(result.Attempts, models.Attempt{
				Strategy: tag, At: time.Now(),
				Kind: models.KindUnknown, Detail: "strategy not available",
			})
			continue
		}

		table, runErr := c.runStrategy(ctx, site, strategy, result)
		if runErr == nil && table != nil {
			result.Chosen = tag
			result.Table = table
			result.URL = site.TargetURL(tag)
			slog.Info("extraction succeeded",
				"site", site.ID, "strategy", tag,
				"rows", len(table.Rows), "attempts", len(result.Attempts))
			return result, nil
		}
		if runErr != nil {
			if faults.ActionFor(faults.Classify(runErr)) == models.Abort {
				return result, runErr
			}
			if ctx.Err() != nil {
				// A cut-short run is still terminal unreachability; the
				// history shows how far the chain got.
				return result, &models.UnreachableError{
					SiteID: site.ID, Attempts: result.Attempts, Err: ctx.Err(),
				}
			}
		}
	}

	if result.URL == "" && len(order) > 0 {
		result.URL = site.TargetURL(order[0])
	}
	slog.Warn("all strategies exhausted", "site", site.ID, "attempts", len(result.Attempts))
	return result, &models.UnreachableError{SiteID: site.ID, Attempts: result.Attempts}
}

// runStrategy drives the retry loop for one strategy. A nil, nil
// return means the strategy failed and the chain should fall back.
func (c *Chain) runStrategy(ctx context.Context, site *config.SiteConfig, strategy extract.Strategy, result *models.ScrapeResult) (*models.Table, error) {
	tag := strategy.Tag()
	targetURL := site.TargetURL(tag)

	// Honored rate-limit waits do not spend the retry budget, but each
	// strategy honors at most one before falling back.
	tries := 0
	honoredWait := false

	for tries < c.maxAttempts {
		req := c.buildRequest(site, targetURL)
		origin := req.Origin()
		if site.RateLimit != nil {
			c.limiter.Configure(origin, ratelimit.Budget{
				RefillRate: site.RateLimit.RefillRate,
				Burst:      site.RateLimit.Burst,
			})
		}

		// Pace first: a stale-session refresh inside Inject may call out
		// to the origin and must not bypass the bucket.
		if err := c.limiter.Acquire(ctx, origin); err != nil {
			return nil, err
		}
		if err := c.auth.Inject(req, site.ID, site.Auth); err != nil {
			c.record(result, tag, faults.Classify(err), err.Error(), 0)
			return nil, err
		}

		job := &extract.Job{Site: site, Request: req}
		if tag.IsBrowserBased() {
			job.Fingerprint = c.stealth.Generate()
			job.Delay = c.stealth.Delay
		}

		table, err := strategy.Attempt(ctx, job)
		if err == nil {
			c.recordSuccess(result, tag, table)
			return table, nil
		}

		kind := faults.Classify(err)
		c.record(result, tag, kind, err.Error(), 0)
		slog.Debug("strategy attempt failed",
			"site", site.ID, "strategy", tag, "kind", kind, "error", err)

		switch faults.ActionFor(kind) {
		case models.Abort:
			return nil, err

		case models.RetrySameStrategy:
			if kind == models.KindRateLimited {
				wait := faults.RetryAfter(err)
				if wait <= 0 {
					wait = faults.Backoff(c.backoffBase, c.backoffMax, tries+1)
				}
				c.limiter.SetBackoff(origin, time.Now().Add(wait))
				if honoredWait {
					return nil, nil
				}
				honoredWait = true
				continue
			}
			tries++
			if tries >= c.maxAttempts {
				return nil, nil
			}
			if err := c.sleep(ctx, faults.Backoff(c.backoffBase, c.backoffMax, tries)); err != nil {
				return nil, err
			}

		default:
			return nil, nil
		}
	}
	return nil, nil
}

func (c *Chain) buildRequest(site *config.SiteConfig, targetURL string) *fetch.Request {
	headers := make(map[string]string, len(site.DataSource.Headers))
	for k, v := range site.DataSource.Headers {
		headers[k] = v
	}
	return &fetch.Request{
		URL:     targetURL,
		Method:  site.DataSource.Method,
		Headers: headers,
	}
}

func (c *Chain) record(result *models.ScrapeResult, tag models.Strategy, kind models.ErrorKind, detail string, rows int) {
	result.Attempts = append(result.Attempts, models.Attempt{
		Strategy: tag, At: time.Now(), Kind: kind, Detail: detail, Rows: rows,
	})
}

func (c *Chain) recordSuccess(result *models.ScrapeResult, tag models.Strategy, table *models.Table) {
	result.Attempts = append(result.Attempts, models.Attempt{
		Strategy: tag, At: time.Now(), Rows: len(table.Rows),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
