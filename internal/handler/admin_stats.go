package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/repository"
)

// AdminStatsHandler serves the dashboard analytics endpoint.
type AdminStatsHandler struct {
	Stats *repository.StatsRepo
}

func NewAdminStatsHandler(s *repository.StatsRepo) *AdminStatsHandler {
	return &AdminStatsHandler{Stats: s}
}

// Dashboard handles GET /v1/admin/stats.  The repository fans the count
// queries out concurrently and the whole batch shares one deadline.
func (h *AdminStatsHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Stats.Dashboard(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats query failed"})
	}
	return c.JSON(http.StatusOK, stats)
}
