// Command tabfetch runs the extraction pipeline once from the command
// line: one site or URL in, normalized records (and optionally a saved
// workbook) out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/tabfetch/tabfetch/auth"
	"github.com/tabfetch/tabfetch/browser"
	"github.com/tabfetch/tabfetch/chain"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/export"
	"github.com/tabfetch/tabfetch/extract"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/pipeline"
	"github.com/tabfetch/tabfetch/policy"
	"github.com/tabfetch/tabfetch/ratelimit"
	"github.com/tabfetch/tabfetch/stealth"
)

func main() {
	var (
		sitesPath      = flag.String("sites", "sites.yaml", "path to the site registry")
		siteID         = flag.String("site", "", "configured site id to fetch")
		rawURL         = flag.String("url", "", "ad-hoc URL to fetch instead of a configured site")
		allSites       = flag.Bool("all", false, "fetch every configured site")
		concurrency    = flag.Int("concurrency", 2, "parallel site fetches with -all")
		useFallbacks   = flag.Bool("fallbacks", true, "try fallback strategies after the declared one fails")
		overrideRobots = flag.Bool("override-robots", false, "proceed when the robots status is unknown (never bypasses an explicit disallow)")
		doExport       = flag.Bool("export", false, "write the normalized dataset to the export directory")
		timeoutSec     = flag.Int("timeout", 0, "whole-run timeout in seconds (0 uses the configured default)")
		quiet          = flag.Bool("quiet", false, "suppress log output, print only the result JSON")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if *quiet {
		cfg.Log.Level = "error"
	}
	initLogger(cfg.Log)

	if *siteID == "" && *rawURL == "" && !*allSites {
		fmt.Fprintln(os.Stderr, "one of -site, -url or -all is required")
		flag.Usage()
		os.Exit(2)
	}

	runner, sites, cleanup, err := buildRunner(cfg, *sitesPath)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()

	if *allSites {
		os.Exit(runAll(ctx, runner, sites.IDs(), *concurrency, *useFallbacks))
	}

	resp, err := runner.Run(ctx, &models.FetchRequest{
		SiteID:         *siteID,
		URL:            *rawURL,
		OverrideRobots: *overrideRobots,
		UseFallbacks:   *useFallbacks,
		Export:         *doExport,
		Timeout:        *timeoutSec,
	})
	if err != nil {
		slog.Error("fetch failed", "error", err)
		if resp != nil && len(resp.Attempts) > 0 {
			printJSON(resp.Attempts)
		}
		os.Exit(1)
	}

	printJSON(resp)
}

func runAll(ctx context.Context, runner *pipeline.Runner, siteIDs []string, concurrency int, useFallbacks bool) int {
	results := runner.RunBatch(ctx, siteIDs, concurrency, useFallbacks)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Error("site failed", "site", res.SiteID, "error", res.Err)
			continue
		}
		slog.Info("site fetched",
			"site", res.SiteID,
			"strategy", res.Response.Chosen,
			"rows", len(res.Response.Records),
			"quality", res.Response.Report.QualityScore,
		)
	}
	fmt.Fprintf(os.Stderr, "%d/%d sites fetched\n", len(results)-failed, len(results))
	if failed > 0 {
		return 1
	}
	return 0
}

// buildRunner wires the full pipeline stack. The returned cleanup
// releases the browser and rate-limiter resources.
func buildRunner(cfg *config.Config, sitesPath string) (*pipeline.Runner, *config.Sites, func(), error) {
	sites, err := config.LoadSites(sitesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var renderer extract.Renderer
	var closeBrowser func()
	br, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Warn("browser unavailable, dom_browser strategy disabled", "error", err)
	} else {
		renderer = br
		closeBrowser = br.Close
	}

	client := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.Proxy)
	limiter := ratelimit.NewRegistry(ratelimit.Budget{
		RefillRate: cfg.RateLimit.RefillRate,
		Burst:      cfg.RateLimit.Burst,
	})
	authMgr := auth.NewManager(nil)
	stealthCtl := stealth.NewController(cfg.Stealth.Enabled, cfg.Stealth.JitterMin, cfg.Stealth.JitterMax)
	ch := chain.New(extract.NewSet(client, renderer), limiter, authMgr, stealthCtl, cfg.Chain)
	gate := policy.NewGate(client, cfg.Fetch.UserAgent)

	exporter, err := export.New(cfg.Export.Dir)
	if err != nil {
		if closeBrowser != nil {
			closeBrowser()
		}
		limiter.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if closeBrowser != nil {
			closeBrowser()
		}
		limiter.Close()
	}
	return pipeline.NewRunner(sites, gate, ch, exporter, cfg), sites, cleanup, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode output", "error", err)
	}
}

func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// The CLI defaults to text logs on stderr so stdout stays pure JSON.
	format := "text"
	if os.Getenv("TABFETCH_LOG_FORMAT") != "" {
		format = cfg.Format
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
