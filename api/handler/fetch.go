package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabfetch/tabfetch/cache"
	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/pipeline"
)

// Fetch returns a handler for POST /api/v1/fetch.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup (site or URL + options key).
//  3. Runner.Run: gate → chain → normalize → validate → export.
//  4. Map typed pipeline errors to HTTP statuses, cache successes.
func Fetch(runner *pipeline.Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		target := req.SiteID
		if target == "" {
			target = req.URL
		}
		cacheKey := cache.Key(target, req.UseFallbacks, req.Export)
		if cc != nil {
			if cached, hit := cc.Get(cacheKey); hit {
				cached.Cached = true
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		resp, err := runner.Run(c.Request.Context(), &req)
		if err != nil {
			respondError(c, resp, err)
			return
		}

		if cc != nil {
			cc.Set(cacheKey, resp)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a typed pipeline error to the right HTTP status and
// structured error body, preserving the attempt history when the chain
// got far enough to record one.
func respondError(c *gin.Context, resp *models.FetchResponse, err error) {
	if resp == nil {
		resp = &models.FetchResponse{}
	}
	resp.Success = false
	resp.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}

	status := http.StatusInternalServerError

	var policyErr *models.PolicyError
	var authErr *models.AuthError
	var unreachableErr *models.UnreachableError
	switch {
	case errors.As(err, &policyErr):
		status = http.StatusForbidden
		resp.Error.Code = models.ErrCodePolicy
	case errors.As(err, &authErr):
		status = http.StatusBadGateway
		resp.Error.Code = models.ErrCodeAuth
	case errors.As(err, &unreachableErr):
		status = http.StatusBadGateway
		resp.Error.Code = models.ErrCodeUnreachable
		resp.Attempts = unreachableErr.Attempts
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, resp)
}
