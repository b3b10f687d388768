package match

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/server/finops"
	"github.com/hrygo/jobmatch/server/service/similarity"
	"github.com/hrygo/jobmatch/store"
)

const (
	DefaultRecommendLimit = 10
	MaxRecommendLimit     = 50

	// candidateFactor widens the vector pre-filter ahead of re-ranking.
	candidateFactor = 3
	// recentWindow bounds the jobs considered when the user has no vector.
	recentWindow = 14 * 24 * time.Hour
	// rerankConcurrency caps parallel verdict computations.
	rerankConcurrency = 4
)

// Candidates is the vector pre-filter stage.
type Candidates interface {
	FindJobsForUser(ctx context.Context, userID string, limit int, filter similarity.JobFilter) ([]vector.SimilarityResult, error)
	Hydrate(ctx context.Context, results []vector.SimilarityResult) ([]*similarity.ScoredJob, error)
}

// JobLister lists recent jobs when the pre-filter has nothing to offer.
type JobLister interface {
	ListJobs(ctx context.Context, find *store.FindJob) ([]*store.Job, error)
}

// RankedJob is a re-ranked job.
type RankedJob struct {
	Job *store.Job `json:"job"`
	// Similarity is the pre-filter score, zero for recent-job candidates.
	Similarity float32        `json:"similarity"`
	Analysis   *MatchAnalysis `json:"analysis"`
	Cached     bool           `json:"cached"`
}

// Recommender ranks jobs for a user in two stages: a cheap vector pre-filter
// and a verdict for each surviving candidate.
type Recommender struct {
	matcher    *Service
	candidates Candidates
	jobs       JobLister
	now        func() time.Time
}

// NewRecommender creates a recommender scoring through matcher.
func NewRecommender(matcher *Service, candidates Candidates, jobs JobLister) *Recommender {
	return &Recommender{
		matcher:    matcher,
		candidates: candidates,
		jobs:       jobs,
		now:        time.Now,
	}
}

// Recommend returns the user's best jobs by verdict score, highest first.
// Jobs whose verdict fails are skipped.
func (r *Recommender) Recommend(ctx context.Context, userID string, limit int) ([]*RankedJob, error) {
	if limit < 1 {
		limit = DefaultRecommendLimit
	}
	limit = min(limit, MaxRecommendLimit)
	start := time.Now()

	profile, err := r.matcher.LoadCandidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	pool, err := r.candidatePool(ctx, userID, limit*candidateFactor)
	if err != nil {
		return nil, err
	}

	ranked := make([]*RankedJob, len(pool))
	llmCalls := make([]bool, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rerankConcurrency)
	for i, candidate := range pool {
		g.Go(func() error {
			result, called, err := r.matcher.getOrCompute(gctx, userID, candidate.Job.ID, profile)
			llmCalls[i] = called
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("skipping job without verdict", "userID", userID, "jobID", candidate.Job.ID, "error", err)
				return nil
			}
			ranked[i] = &RankedJob{
				Job:        candidate.Job,
				Similarity: candidate.Score,
				Analysis:   result.Analysis,
				Cached:     result.Cached,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recommendations := make([]*RankedJob, 0, len(ranked))
	calls, avoided := 0, 0
	for i, rec := range ranked {
		if llmCalls[i] {
			calls++
		}
		if rec == nil {
			continue
		}
		if rec.Cached {
			avoided++
		}
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Analysis.Score > recommendations[j].Analysis.Score
	})
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	r.matcher.recordCost(ctx, finops.OperationRecommend, calls, avoided, time.Since(start))
	slog.Info("recommendations ranked",
		"userID", userID,
		"candidates", len(pool),
		"returned", len(recommendations),
		"llmCalls", calls,
		"llmCallsAvoided", avoided,
	)
	return recommendations, nil
}

// candidatePool prefers the user's nearest jobs and falls back to recent
// jobs the user has not applied to.
func (r *Recommender) candidatePool(ctx context.Context, userID string, size int) ([]*similarity.ScoredJob, error) {
	if r.candidates != nil {
		results, err := r.candidates.FindJobsForUser(ctx, userID, size, similarity.JobFilter{})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("vector pre-filter unavailable, using recent jobs", "userID", userID, "error", err)
		case len(results) > 0:
			pool, err := r.candidates.Hydrate(ctx, results)
			if err != nil {
				return nil, err
			}
			if len(pool) > 0 {
				return pool, nil
			}
		}
	}

	since := r.now().Add(-recentWindow).Unix()
	jobs, err := r.jobs.ListJobs(ctx, &store.FindJob{
		CreatedAfter:     &since,
		ExcludeAppliedBy: &userID,
		Limit:            size,
	})
	if err != nil {
		return nil, err
	}
	pool := make([]*similarity.ScoredJob, len(jobs))
	for i, job := range jobs {
		pool[i] = &similarity.ScoredJob{Job: job}
	}
	return pool, nil
}
