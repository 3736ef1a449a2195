package handlers

import (
	"context"
	"net/http"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gin-gonic/gin"
)

const defaultLowStock = 5

// StatsReader computes the admin dashboard KPIs.
type StatsReader interface {
	DashboardStats(ctx context.Context, lowStock int) (*models.DashboardStats, error)
}

// GetDashboardStats returns KPI data for the admin dashboard
// GET /v1/admin/dashboard-stats?lowStock=
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	lowStock := queryInt(c, "lowStock", defaultLowStock)
	if lowStock < 0 {
		lowStock = defaultLowStock
	}

	stats, err := h.Stats.DashboardStats(c.Request.Context(), lowStock)
	if err != nil {
		h.respondError(c, apperr.Wrap(err, "failed to load dashboard stats"))
		return
	}
	c.JSON(http.StatusOK, stats)
}
