package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabfetch/tabfetch/api/handler"
	"github.com/tabfetch/tabfetch/api/middleware"
	"github.com/tabfetch/tabfetch/cache"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(runner *pipeline.Runner, sites *config.Sites, pages handler.PageStats, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pages, sites, cfg.Browser.MaxPages, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Fetch
	protected.POST("/fetch", handler.Fetch(runner, cc))

	// Batch
	protected.POST("/batch/fetch", handler.PostBatch(runner))

	// Site registry
	protected.GET("/sites", handler.ListSites(sites))
	protected.GET("/sites/:id", handler.GetSite(sites))

	return r
}
