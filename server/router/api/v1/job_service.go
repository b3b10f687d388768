package v1

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	jmmiddleware "github.com/hrygo/jobmatch/server/middleware"
	"github.com/hrygo/jobmatch/server/service/similarity"
	"github.com/hrygo/jobmatch/store"
)

// Job is the wire shape of a job.
type Job struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Remote       bool     `json:"remote"`
	Hybrid       bool     `json:"hybrid"`
	Category     string   `json:"category,omitempty"`
	SalaryMin    *int     `json:"salary_min,omitempty"`
	SalaryMax    *int     `json:"salary_max,omitempty"`
	Requirements []string `json:"requirements"`
	CreatedAt    int64    `json:"created_at"`
	// SimilarityScore is the similarity as a 0-100 percentage, absent for keyword results.
	SimilarityScore *int `json:"similarity_score,omitempty"`
}

// JobsResponse lists jobs.
type JobsResponse struct {
	Jobs []*Job `json:"jobs"`
}

func convertJob(job *store.Job) *Job {
	requirements := job.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	return &Job{
		ID:           job.ID,
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Description:  job.Description,
		Remote:       job.Remote,
		Hybrid:       job.Hybrid,
		Category:     job.Category,
		SalaryMin:    job.SalaryMin,
		SalaryMax:    job.SalaryMax,
		Requirements: requirements,
		CreatedAt:    job.CreatedTs,
	}
}

func convertScoredJobs(scored []*similarity.ScoredJob, withScore bool) *JobsResponse {
	jobs := make([]*Job, len(scored))
	for i, sj := range scored {
		jobs[i] = convertJob(sj.Job)
		if withScore {
			score := int(math.Round(float64(sj.Score) * 100))
			jobs[i].SimilarityScore = &score
		}
	}
	return &JobsResponse{Jobs: jobs}
}

// SearchJobs handles GET /api/v1/jobs/search?q=&remote=&category=&limit=.
func (s *APIV1Service) SearchJobs(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return writeError(c, apperrors.Validation("query parameter q is required"))
	}
	limit, err := parseLimit(c, similarity.DefaultLimit, similarity.MaxLimit)
	if err != nil {
		return writeError(c, err)
	}
	filter, err := parseJobFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	scored, err := s.Jobs.SearchJobs(c.Request().Context(), query, filter, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertScoredJobs(scored, hasScores(scored)))
}

// GetSimilarJobs handles GET /api/v1/jobs/:id/similar?limit=.
func (s *APIV1Service) GetSimilarJobs(c echo.Context) error {
	limit, err := parseLimit(c, similarity.DefaultLimit, similarity.MaxLimit)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	results, err := s.Jobs.FindSimilarToJob(ctx, c.Param("id"), limit)
	if err != nil {
		return writeError(c, err)
	}
	scored, err := s.Jobs.Hydrate(ctx, results)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertScoredJobs(scored, true))
}

// GetFeed handles GET /api/v1/jobs/feed?remote=&category=&limit=.
func (s *APIV1Service) GetFeed(c echo.Context) error {
	userID, _ := jmmiddleware.UserIDFrom(c)
	limit, err := parseLimit(c, similarity.DefaultLimit, similarity.MaxLimit)
	if err != nil {
		return writeError(c, err)
	}
	filter, err := parseJobFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	scored, err := s.Jobs.Feed(c.Request().Context(), userID, filter, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertScoredJobs(scored, hasScores(scored)))
}

func hasScores(scored []*similarity.ScoredJob) bool {
	for _, sj := range scored {
		if sj.Score != 0 {
			return true
		}
	}
	return false
}

func parseLimit(c echo.Context, fallback, maxLimit int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.Validation("limit must be a positive integer")
	}
	return min(limit, maxLimit), nil
}

func parseJobFilter(c echo.Context) (similarity.JobFilter, error) {
	var filter similarity.JobFilter
	if raw := c.QueryParam("remote"); raw != "" {
		remote, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.Validation("remote must be true or false")
		}
		filter.Remote = &remote
	}
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		filter.Category = &category
	}
	return filter, nil
}
