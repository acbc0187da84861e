package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/pipeline"
)

// batchRequest is the POST /api/v1/batch/fetch request body.
type batchRequest struct {
	SiteIDs      []string `json:"site_ids"`
	Concurrency  int      `json:"concurrency,omitempty"`
	UseFallbacks bool     `json:"use_fallbacks,omitempty"`
}

// batchItem is one per-site outcome in the batch response.
type batchItem struct {
	SiteID   string                `json:"site_id"`
	Success  bool                  `json:"success"`
	Error    string                `json:"error,omitempty"`
	Response *models.FetchResponse `json:"response,omitempty"`
}

// PostBatch returns a handler for POST /api/v1/batch/fetch. The batch
// runs synchronously with bounded concurrency; one failing site never
// fails the batch.
func PostBatch(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.SiteIDs) == 0 {
			msg := "site_ids is required"
			if err != nil {
				msg = err.Error()
			}
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: msg,
				},
			})
			return
		}
		if req.Concurrency <= 0 {
			req.Concurrency = 2
		}

		results := runner.RunBatch(c.Request.Context(), req.SiteIDs, req.Concurrency, req.UseFallbacks)

		items := make([]batchItem, len(results))
		succeeded := 0
		for i, res := range results {
			items[i] = batchItem{SiteID: res.SiteID, Response: res.Response}
			if res.Err != nil {
				items[i].Error = res.Err.Error()
			} else {
				items[i].Success = true
				succeeded++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"total":     len(items),
			"succeeded": succeeded,
			"results":   items,
		})
	}
}
