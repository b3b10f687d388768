package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/server/finops"
	"github.com/hrygo/jobmatch/server/internal/observability"
	backfill "github.com/hrygo/jobmatch/server/runner/embedding"
)

// MetricsResponse combines request metrics and cost totals.
type MetricsResponse struct {
	Requests    *observability.MetricsSnapshot `json:"requests"`
	SuccessRate float64                        `json:"successRate"`
	Costs       *finops.CostReport             `json:"costs,omitempty"`
}

// BackfillJobs handles POST /api/v1/admin/backfill/jobs?limit=.
func (s *APIV1Service) BackfillJobs(c echo.Context) error {
	limit, err := parseBackfillLimit(c)
	if err != nil {
		return writeError(c, err)
	}
	run, err := s.Backfiller.BackfillJobs(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// BackfillUsers handles POST /api/v1/admin/backfill/users?limit=&policy=.
func (s *APIV1Service) BackfillUsers(c echo.Context) error {
	limit, err := parseBackfillLimit(c)
	if err != nil {
		return writeError(c, err)
	}
	var policy backfill.UserPolicy
	if raw := c.QueryParam("policy"); raw != "" {
		if policy, err = backfill.ParseUserPolicy(raw); err != nil {
			return writeError(c, err)
		}
	}
	run, err := s.Backfiller.BackfillUsers(c.Request().Context(), limit, policy)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// DeleteJob handles DELETE /api/v1/admin/jobs/:id.
func (s *APIV1Service) DeleteJob(c echo.Context) error {
	if err := s.JobRemover.DeleteJob(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMetrics handles GET /api/v1/admin/metrics.
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	response := &MetricsResponse{
		Requests:    snapshot,
		SuccessRate: snapshot.SuccessRate(),
	}
	if s.CostMonitor != nil {
		response.Costs = s.CostMonitor.Report()
	}
	return c.JSON(http.StatusOK, response)
}

// parseBackfillLimit reads an optional limit; absent means every candidate.
func parseBackfillLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.Validation("limit must be a positive integer")
	}
	return limit, nil
}
