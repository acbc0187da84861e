package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/models"
)

// siteSummary is the public view of one configured site. Credentials
// never leave the process.
type siteSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	BaseURL    string   `json:"base_url"`
	Strategy   string   `json:"extraction_strategy,omitempty"`
	Strategies []string `json:"extraction_strategies,omitempty"`
	HasAuth    bool     `json:"has_auth"`
}

// ListSites returns a handler for GET /api/v1/sites.
func ListSites(sites *config.Sites) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := sites.IDs()
		out := make([]siteSummary, 0, len(ids))
		for _, id := range ids {
			if site, ok := sites.Get(id); ok {
				out = append(out, summarize(site))
			}
		}
		c.JSON(http.StatusOK, gin.H{"sites": out})
	}
}

// GetSite returns a handler for GET /api/v1/sites/:id.
func GetSite(sites *config.Sites) gin.HandlerFunc {
	return func(c *gin.Context) {
		site, ok := sites.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "unknown site " + c.Param("id"),
				},
			})
			return
		}
		c.JSON(http.StatusOK, summarize(site))
	}
}

func summarize(site *config.SiteConfig) siteSummary {
	return siteSummary{
		ID:         site.ID,
		Name:       site.Name,
		BaseURL:    site.BaseURL,
		Strategy:   site.Strategy,
		Strategies: site.Strategies,
		HasAuth:    site.Auth != nil,
	}
}
