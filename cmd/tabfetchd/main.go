package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tabfetch/tabfetch/api"
	"github.com/tabfetch/tabfetch/api/handler"
	"github.com/tabfetch/tabfetch/auth"
	"github.com/tabfetch/tabfetch/browser"
	"github.com/tabfetch/tabfetch/cache"
	"github.com/tabfetch/tabfetch/chain"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/export"
	"github.com/tabfetch/tabfetch/extract"
	"github.com/tabfetch/tabfetch/fetch"
	"github.com/tabfetch/tabfetch/pipeline"
	"github.com/tabfetch/tabfetch/policy"
	"github.com/tabfetch/tabfetch/ratelimit"
	"github.com/tabfetch/tabfetch/stealth"
)

func main() {
	sitesPath := flag.String("sites", "sites.yaml", "path to the site registry")
	flag.Parse()

	// ── 1. Load configuration ───────────────────────────────────────
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("tabfetchd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Load site registry ───────────────────────────────────────
	sites, err := config.LoadSites(*sitesPath)
	if err != nil {
		slog.Error("failed to load site registry", "path", *sitesPath, "error", err)
		os.Exit(1)
	}
	slog.Info("site registry loaded", "path", *sitesPath, "sites", len(sites.IDs()))

	// ── 4. Initialise the browser (optional) ────────────────────────
	// A missing Chrome only disables the browser strategy; every other
	// strategy still works, so startup proceeds with a warning.
	var renderer extract.Renderer
	var pages *browser.Browser
	br, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Warn("browser unavailable, dom_browser strategy disabled", "error", err)
	} else {
		renderer = br
		pages = br
		defer br.Close()
	}

	// ── 5. Wire the extraction stack ────────────────────────────────
	client := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.Proxy)
	limiter := ratelimit.NewRegistry(ratelimit.Budget{
		RefillRate: cfg.RateLimit.RefillRate,
		Burst:      cfg.RateLimit.Burst,
	})
	defer limiter.Close()

	authMgr := auth.NewManager(nil)
	stealthCtl := stealth.NewController(cfg.Stealth.Enabled, cfg.Stealth.JitterMin, cfg.Stealth.JitterMax)
	strategies := extract.NewSet(client, renderer)
	ch := chain.New(strategies, limiter, authMgr, stealthCtl, cfg.Chain)
	gate := policy.NewGate(client, cfg.Fetch.UserAgent)

	exporter, err := export.New(cfg.Export.Dir)
	if err != nil {
		slog.Error("failed to initialise exporter", "dir", cfg.Export.Dir, "error", err)
		os.Exit(1)
	}

	runner := pipeline.NewRunner(sites, gate, ch, exporter, cfg)

	// ── 6. Initialise cache ─────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Close()

	// ── 7. Setup router and start HTTP server ───────────────────────
	startTime := time.Now()
	var stats handler.PageStats
	if pages != nil {
		stats = pages
	}
	router := api.NewRouter(runner, sites, stats, cfg, cc, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Browser cleanup runs via defer — drains the page pool and kills Chrome.
	slog.Info("tabfetchd stopped")
}

// initLogger configures slog based on the LogConfig.
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

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
