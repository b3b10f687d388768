package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/server/finops"
	jmmiddleware "github.com/hrygo/jobmatch/server/middleware"
	backfill "github.com/hrygo/jobmatch/server/runner/embedding"
	"github.com/hrygo/jobmatch/server/service/match"
	"github.com/hrygo/jobmatch/server/service/similarity"
	"github.com/hrygo/jobmatch/store"
)

const testSecret = "test-secret"

type fakeJobs struct {
	search   []*similarity.ScoredJob
	similar  []vector.SimilarityResult
	feed     []*similarity.ScoredJob
	err      error
	lastFeed string
	filter   similarity.JobFilter
	limit    int
}

func (f *fakeJobs) SearchJobs(_ context.Context, _ string, filter similarity.JobFilter, limit int) ([]*similarity.ScoredJob, error) {
	f.filter, f.limit = filter, limit
	return f.search, f.err
}

func (f *fakeJobs) FindSimilarToJob(_ context.Context, _ string, limit int) ([]vector.SimilarityResult, error) {
	f.limit = limit
	return f.similar, f.err
}

func (f *fakeJobs) Feed(_ context.Context, userID string, filter similarity.JobFilter, limit int) ([]*similarity.ScoredJob, error) {
	f.lastFeed, f.filter, f.limit = userID, filter, limit
	return f.feed, f.err
}

func (f *fakeJobs) Hydrate(_ context.Context, results []vector.SimilarityResult) ([]*similarity.ScoredJob, error) {
	out := make([]*similarity.ScoredJob, len(results))
	for i, r := range results {
		out[i] = &similarity.ScoredJob{Job: &store.Job{ID: r.ID, Title: "Job " + r.ID}, Score: r.Score}
	}
	return out, nil
}

type fakeMatcher struct {
	err         error
	invalidated []string
}

func (f *fakeMatcher) GetOrComputeMatch(_ context.Context, _, jobID string) (*match.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &match.Result{JobID: jobID, Analysis: &match.MatchAnalysis{Score: 72, Recommendation: match.RecommendationGood}}, nil
}

func (f *fakeMatcher) Invalidate(_ context.Context, userID, jobID string) error {
	f.invalidated = append(f.invalidated, userID+":"+jobID)
	return f.err
}

type fakeRecommender struct{}

func (fakeRecommender) Recommend(_ context.Context, _ string, _ int) ([]*match.RankedJob, error) {
	return []*match.RankedJob{{
		Job:        &store.Job{ID: "j1", Title: "Go Engineer"},
		Similarity: 0.876,
		Analysis:   &match.MatchAnalysis{Score: 85},
	}}, nil
}

type fakeBackfiller struct {
	policy backfill.UserPolicy
	limit  int
}

func (f *fakeBackfiller) BackfillJobs(_ context.Context, limit int) (*backfill.BackfillRun, error) {
	f.limit = limit
	return &backfill.BackfillRun{Processed: 3, CostIsEstimate: true}, nil
}

func (f *fakeBackfiller) BackfillUsers(_ context.Context, limit int, policy backfill.UserPolicy) (*backfill.BackfillRun, error) {
	f.limit, f.policy = limit, policy
	return &backfill.BackfillRun{Processed: 1, Skipped: 2, CostIsEstimate: true}, nil
}

type fakeRemover struct {
	deleted []string
}

func (f *fakeRemover) DeleteJob(_ context.Context, jobID string) error {
	f.deleted = append(f.deleted, jobID)
	return nil
}

type apiFixture struct {
	e          *echo.Echo
	jobs       *fakeJobs
	matcher    *fakeMatcher
	backfiller *fakeBackfiller
	remover    *fakeRemover
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		e:          echo.New(),
		jobs:       &fakeJobs{},
		matcher:    &fakeMatcher{},
		backfiller: &fakeBackfiller{},
		remover:    &fakeRemover{},
	}
	service := &APIV1Service{
		Secret:      testSecret,
		Jobs:        f.jobs,
		Matcher:     f.matcher,
		Recommender: fakeRecommender{},
		Backfiller:  f.backfiller,
		JobRemover:  f.remover,
		CostMonitor: finops.NewCostMonitor(finops.DefaultPricing()),
		RateLimiter: jmmiddleware.NewRateLimiter(1000, 1000),
	}
	service.Register(f.e)
	return f
}

func (f *apiFixture) do(t *testing.T, method, target, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if role != "" {
		token, err := jmmiddleware.IssueToken(testSecret, "u1", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthzNeedsNoToken(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/search?q=go", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/backfill/jobs", jmmiddleware.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/backfill/jobs", jmmiddleware.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSearchJobs(t *testing.T) {
	f := newAPIFixture(t)
	f.jobs.search = []*similarity.ScoredJob{{Job: &store.Job{ID: "j1", Title: "Go Engineer"}, Score: 0.914}}

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/search?q=golang&remote=true&category=engineering&limit=500", jmmiddleware.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[JobsResponse](t, rec)
	require.Len(t, body.Jobs, 1)
	require.NotNil(t, body.Jobs[0].SimilarityScore)
	assert.Equal(t, 91, *body.Jobs[0].SimilarityScore)
	assert.Equal(t, []string{}, body.Jobs[0].Requirements)

	require.NotNil(t, f.jobs.filter.Remote)
	assert.True(t, *f.jobs.filter.Remote)
	require.NotNil(t, f.jobs.filter.Category)
	assert.Equal(t, "engineering", *f.jobs.filter.Category)
	assert.Equal(t, similarity.MaxLimit, f.jobs.limit)
}

func TestSearchJobsValidation(t *testing.T) {
	f := newAPIFixture(t)
	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/v1/jobs/search"},
		{"blank query", "/api/v1/jobs/search?q=%20%20"},
		{"bad limit", "/api/v1/jobs/search?q=go&limit=zero"},
		{"negative limit", "/api/v1/jobs/search?q=go&limit=-1"},
		{"bad remote", "/api/v1/jobs/search?q=go&remote=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, jmmiddleware.RoleUser)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(apperrors.ErrCodeValidation), decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestKeywordResultsOmitScore(t *testing.T) {
	f := newAPIFixture(t)
	f.jobs.feed = []*similarity.ScoredJob{{Job: &store.Job{ID: "j1"}}}

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/feed", jmmiddleware.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[JobsResponse](t, rec)
	require.Len(t, body.Jobs, 1)
	assert.Nil(t, body.Jobs[0].SimilarityScore)
	assert.Equal(t, "u1", f.jobs.lastFeed)
	assert.Equal(t, similarity.DefaultLimit, f.jobs.limit)
}

func TestGetSimilarJobs(t *testing.T) {
	f := newAPIFixture(t)
	f.jobs.similar = []vector.SimilarityResult{{ID: "j2", Score: 0.5}}

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/j1/similar?limit=3", jmmiddleware.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[JobsResponse](t, rec)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "j2", body.Jobs[0].ID)
	assert.Equal(t, 50, *body.Jobs[0].SimilarityScore)
	assert.Equal(t, 3, f.jobs.limit)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not embedded", apperrors.NotFound("job j1 has no embedding"), http.StatusNotFound},
		{"bad verdict", apperrors.Parse("no JSON", nil), http.StatusServiceUnavailable},
		{"provider down", apperrors.Upstream("embedding failed", assert.AnError), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.matcher.err = tt.err

			rec := f.do(t, http.MethodPost, "/api/v1/jobs/j1/analyze", jmmiddleware.RoleUser)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
		})
	}
}

func TestAnalyzeAndInvalidate(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/j1/analyze", jmmiddleware.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[match.Result](t, rec)
	assert.Equal(t, "j1", result.JobID)
	assert.Equal(t, 72, result.Analysis.Score)

	rec = f.do(t, http.MethodDelete, "/api/v1/jobs/j1/analysis", jmmiddleware.RoleUser)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u1:j1"}, f.matcher.invalidated)
}

func TestGetRecommendations(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recommendations", jmmiddleware.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]RecommendationResponse](t, rec)
	require.Len(t, body["recommendations"], 1)
	assert.Equal(t, 88, body["recommendations"][0].SimilarityScore)
	assert.Equal(t, 85, body["recommendations"][0].Analysis.Score)
}

func TestBackfillUsersPolicy(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/backfill/users?policy=missing&limit=5", jmmiddleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backfill.UserPolicyMissing, f.backfiller.policy)
	assert.Equal(t, 5, f.backfiller.limit)
	run := decode[backfill.BackfillRun](t, rec)
	assert.Equal(t, 2, run.Skipped)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/backfill/users", jmmiddleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backfill.UserPolicy(""), f.backfiller.policy)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/backfill/users?policy=some", jmmiddleware.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMetrics(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodGet, "/healthz", "")

	rec := f.do(t, http.MethodGet, "/api/v1/admin/metrics", jmmiddleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[MetricsResponse](t, rec)
	require.NotNil(t, body.Requests)
	assert.GreaterOrEqual(t, body.Requests.RequestTotal, int64(1))
	assert.NotNil(t, body.Costs)
}

func TestDeleteJob(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/admin/jobs/j9", jmmiddleware.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.remover.deleted)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/jobs/j9", jmmiddleware.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"j9"}, f.remover.deleted)
}
