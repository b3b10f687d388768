// Package similarity answers "what is similar to X" over the vector index.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai"
	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/store"
)

const (
	// DefaultLimit is used when a caller passes no limit.
	DefaultLimit = 10
	// MaxLimit caps any single similarity request.
	MaxLimit = 100

	keywordFallbackWords = 2
)

// Store is the part of the relational store similarity lookups read.
type Store interface {
	GetJob(ctx context.Context, id string) (*store.Job, error)
	ListJobs(ctx context.Context, find *store.FindJob) ([]*store.Job, error)
}

// VectorQuerier queries the vector index by entity kind.
type VectorQuerier interface {
	Query(ctx context.Context, kind vector.EntityKind, values []float32, topK int, filter map[string]any) ([]vector.SimilarityResult, error)
}

// UserEmbeddings resolves a user's profile vector.
type UserEmbeddings interface {
	UserEmbedding(ctx context.Context, userID string) ([]float32, error)
}

// JobFilter restricts job results by exact metadata matches.
type JobFilter struct {
	Remote   *bool
	Category *string
}

func (f JobFilter) metadata() map[string]any {
	m := map[string]any{}
	if f.Remote != nil {
		m["remote"] = *f.Remote
	}
	if f.Category != nil && *f.Category != "" {
		m["category"] = *f.Category
	}
	return m
}

// ScoredJob is a hydrated job with its similarity score.
type ScoredJob struct {
	Job   *store.Job
	Score float32
}

// Service answers similarity queries.
type Service struct {
	store    Store
	embedder ai.EmbeddingService
	vectors  VectorQuerier
	users    UserEmbeddings
}

// NewService creates a similarity service. users may be nil when
// personalized lookups are not needed.
func NewService(st Store, embedder ai.EmbeddingService, vectors VectorQuerier, users UserEmbeddings) *Service {
	return &Service{
		store:    st,
		embedder: embedder,
		vectors:  vectors,
		users:    users,
	}
}

// FindSimilarToJob returns up to limit jobs nearest to jobID, never jobID itself.
// A job whose embedding is missing or from another model is NotFound.
func (s *Service) FindSimilarToJob(ctx context.Context, jobID string, limit int) ([]vector.SimilarityResult, error) {
	if limit < 1 {
		return nil, apperrors.Validation("limit must be at least 1")
	}
	limit = min(limit, MaxLimit)

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("job %s not found", jobID))
	}
	if !job.HasEmbeddingFrom(s.embedder.Model()) {
		return nil, apperrors.NotFound(fmt.Sprintf("job %s has no embedding yet", jobID)).
			WithContext("jobID", jobID)
	}

	// The job is its own nearest neighbor; one extra slot absorbs it.
	results, err := s.vectors.Query(ctx, vector.KindJob, job.Embedding, limit+1, nil)
	if err != nil {
		return nil, err
	}

	similar := make([]vector.SimilarityResult, 0, limit)
	for _, r := range results {
		if r.ID == jobID {
			continue
		}
		similar = append(similar, r)
		if len(similar) == limit {
			break
		}
	}
	return similar, nil
}

// FindSimilarToQueryText embeds text fresh and returns the nearest jobs.
func (s *Service) FindSimilarToQueryText(ctx context.Context, text string, limit int, filter JobFilter) ([]vector.SimilarityResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("query text is required")
	}
	if limit < 1 {
		return nil, apperrors.Validation("limit must be at least 1")
	}

	values, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.vectors.Query(ctx, vector.KindJob, values, min(limit, MaxLimit), filter.metadata())
}

// FindJobsForUser returns the jobs nearest to the user's profile vector.
func (s *Service) FindJobsForUser(ctx context.Context, userID string, limit int, filter JobFilter) ([]vector.SimilarityResult, error) {
	if s.users == nil {
		return nil, apperrors.Configuration("user embeddings are not configured")
	}
	if limit < 1 {
		return nil, apperrors.Validation("limit must be at least 1")
	}

	values, err := s.users.UserEmbedding(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.vectors.Query(ctx, vector.KindJob, values, min(limit, MaxLimit), filter.metadata())
}

// SearchJobs runs a semantic search and falls back to a keyword search on
// the first words of query when the semantic path fails or finds nothing.
func (s *Service) SearchJobs(ctx context.Context, query string, filter JobFilter, limit int) ([]*ScoredJob, error) {
	if limit < 1 {
		limit = DefaultLimit
	}

	results, err := s.FindSimilarToQueryText(ctx, query, limit, filter)
	if err == nil && len(results) > 0 {
		jobs, err := s.Hydrate(ctx, results)
		if err != nil {
			return nil, err
		}
		if len(jobs) > 0 {
			return jobs, nil
		}
	}
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeValidation) {
			return nil, err
		}
		slog.Warn("semantic search failed, falling back to keyword search", "query", query, "error", err)
	}

	return s.keywordSearch(ctx, query, filter, limit)
}

// Feed returns jobs for the user's profile, newest jobs when the user has no usable vector.
func (s *Service) Feed(ctx context.Context, userID string, filter JobFilter, limit int) ([]*ScoredJob, error) {
	if limit < 1 {
		limit = DefaultLimit
	}

	results, err := s.FindJobsForUser(ctx, userID, limit, filter)
	if err == nil && len(results) > 0 {
		return s.Hydrate(ctx, results)
	}
	if err != nil {
		slog.Warn("personalized feed unavailable, listing recent jobs", "userID", userID, "error", err)
	}

	jobs, err := s.store.ListJobs(ctx, &store.FindJob{Remote: filter.Remote, Category: filter.Category, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	return unscored(jobs), nil
}

// Hydrate loads the jobs behind results, keeping the result order.
// Results whose job no longer exists are dropped.
func (s *Service) Hydrate(ctx context.Context, results []vector.SimilarityResult) ([]*ScoredJob, error) {
	if len(results) == 0 {
		return []*ScoredJob{}, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	jobs, err := s.store.ListJobs(ctx, &store.FindJob{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("hydrate %d jobs: %w", len(ids), err)
	}

	byID := make(map[string]*store.Job, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
	}

	scored := make([]*ScoredJob, 0, len(results))
	for _, r := range results {
		if job, ok := byID[r.ID]; ok {
			scored = append(scored, &ScoredJob{Job: job, Score: r.Score})
		}
	}
	return scored, nil
}

func (s *Service) keywordSearch(ctx context.Context, query string, filter JobFilter, limit int) ([]*ScoredJob, error) {
	jobs, err := s.store.ListJobs(ctx, &store.FindJob{
		Search:   KeywordQuery(query),
		Remote:   filter.Remote,
		Category: filter.Category,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return unscored(jobs), nil
}

// KeywordQuery keeps the leading words of a query, which usually name the role.
func KeywordQuery(query string) string {
	words := strings.Fields(query)
	return strings.Join(words[:min(len(words), keywordFallbackWords)], " ")
}

func unscored(jobs []*store.Job) []*ScoredJob {
	scored := make([]*ScoredJob, len(jobs))
	for i, job := range jobs {
		scored[i] = &ScoredJob{Job: job}
	}
	return scored
}
