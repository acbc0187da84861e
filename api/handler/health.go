package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/models"
)

// PageStats reports browser page-pool utilisation. Satisfied by
// *browser.Browser; nil means the browser is disabled.
type PageStats interface {
	ActivePages() int
}

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of pages are
// active.
func Health(pages PageStats, sites *config.Sites, maxPages int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := 0
		if pages != nil {
			active = pages.ActivePages()
		}

		status := "healthy"
		if maxPages > 0 && active > int(float64(maxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:      status,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			ActivePages: active,
			MaxPages:    maxPages,
			Sites:       len(sites.IDs()),
			Version:     "0.1.0",
		})
	}
}
