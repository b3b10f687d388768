// Package v1 serves the JSON API over the matching pipeline.
package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/server/finops"
	"github.com/hrygo/jobmatch/server/internal/observability"
	jmmiddleware "github.com/hrygo/jobmatch/server/middleware"
	backfill "github.com/hrygo/jobmatch/server/runner/embedding"
	"github.com/hrygo/jobmatch/server/service/match"
	"github.com/hrygo/jobmatch/server/service/similarity"
)

// JobSearcher answers job search and similarity queries.
type JobSearcher interface {
	SearchJobs(ctx context.Context, query string, filter similarity.JobFilter, limit int) ([]*similarity.ScoredJob, error)
	FindSimilarToJob(ctx context.Context, jobID string, limit int) ([]vector.SimilarityResult, error)
	Feed(ctx context.Context, userID string, filter similarity.JobFilter, limit int) ([]*similarity.ScoredJob, error)
	Hydrate(ctx context.Context, results []vector.SimilarityResult) ([]*similarity.ScoredJob, error)
}

// Matcher produces and invalidates match verdicts.
type Matcher interface {
	GetOrComputeMatch(ctx context.Context, userID, jobID string) (*match.Result, error)
	Invalidate(ctx context.Context, userID, jobID string) error
}

// Recommender ranks jobs for a user.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) ([]*match.RankedJob, error)
}

// Backfiller runs embedding backfills.
type Backfiller interface {
	BackfillJobs(ctx context.Context, limit int) (*backfill.BackfillRun, error)
	BackfillUsers(ctx context.Context, limit int, policy backfill.UserPolicy) (*backfill.BackfillRun, error)
}

// JobRemover deletes jobs together with their index entries.
type JobRemover interface {
	DeleteJob(ctx context.Context, jobID string) error
}

// APIV1Service holds the collaborators of every v1 route.
type APIV1Service struct {
	Secret string

	Jobs        JobSearcher
	Matcher     Matcher
	Recommender Recommender
	Backfiller  Backfiller
	JobRemover  JobRemover

	CostMonitor *finops.CostMonitor
	Metrics     *observability.Metrics
	RateLimiter *jmmiddleware.RateLimiter
	Logger      *slog.Logger
}

// Register mounts the v1 routes on e.
func (s *APIV1Service) Register(e *echo.Echo) {
	if s.Metrics == nil {
		s.Metrics = observability.NewMetrics()
	}
	if s.RateLimiter == nil {
		s.RateLimiter = jmmiddleware.NewRateLimiter(0, 0)
	}

	e.Use(middleware.Recover())
	e.Use(jmmiddleware.RequestLogger(s.Logger, s.Metrics))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1", middleware.CORS(), jmmiddleware.Authenticate(s.Secret), s.RateLimiter.Middleware())
	api.GET("/jobs/search", s.SearchJobs)
	api.GET("/jobs/feed", s.GetFeed)
	api.GET("/jobs/:id/similar", s.GetSimilarJobs)
	api.POST("/jobs/:id/analyze", s.AnalyzeJob)
	api.DELETE("/jobs/:id/analysis", s.DeleteAnalysis)
	api.GET("/recommendations", s.GetRecommendations)

	admin := api.Group("/admin", jmmiddleware.RequireAdmin())
	admin.POST("/backfill/jobs", s.BackfillJobs)
	admin.POST("/backfill/users", s.BackfillUsers)
	admin.GET("/metrics", s.GetMetrics)
	admin.DELETE("/jobs/:id", s.DeleteJob)
}
