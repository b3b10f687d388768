// Package embedding backfills missing and stale embeddings in bulk.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/server/finops"
	indexing "github.com/hrygo/jobmatch/server/service/embedding"
	"github.com/hrygo/jobmatch/store"
)

const (
	DefaultBatchSize = 50
	DefaultDelay     = 100 * time.Millisecond
)

// UserPolicy selects which users a user backfill re-embeds.
type UserPolicy string

const (
	// UserPolicyAll re-embeds every selected user.
	UserPolicyAll UserPolicy = "all"
	// UserPolicyMissing only embeds users without a vector from the current model.
	UserPolicyMissing UserPolicy = "missing"
)

// ParseUserPolicy validates a policy name. Empty means UserPolicyAll.
func ParseUserPolicy(s string) (UserPolicy, error) {
	switch UserPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", UserPolicyAll:
		return UserPolicyAll, nil
	case UserPolicyMissing:
		return UserPolicyMissing, nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unknown user backfill policy %q", s))
	}
}

// Store is the part of the relational store backfills select from.
type Store interface {
	FindJobsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Job, error)
	ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error)
}

// Indexer embeds entities and stores their vectors.
type Indexer interface {
	Model() string
	IndexJobs(ctx context.Context, jobs []*store.Job) error
	LoadUserProfile(ctx context.Context, userID string) (*indexing.UserProfile, error)
	IndexUserProfile(ctx context.Context, profile *indexing.UserProfile) ([]float32, error)
}

// Config tunes batching and throttling.
type Config struct {
	// BatchSize must not exceed the embedding provider's batch ceiling.
	BatchSize int
	// Delay spaces consecutive provider calls.
	Delay time.Duration
	// Interval enables the periodic job backfill in Run when positive.
	Interval   time.Duration
	UserPolicy UserPolicy
}

// ConfigFromProfile reads the backfill settings.
func ConfigFromProfile(p *profile.Profile) Config {
	policy, err := ParseUserPolicy(p.UserBackfillPolicy)
	if err != nil {
		policy = UserPolicyAll
	}
	return Config{
		BatchSize:  p.BackfillBatchSize,
		Delay:      p.BackfillDelay,
		Interval:   p.BackfillInterval,
		UserPolicy: policy,
	}
}

// BackfillRun summarizes one backfill invocation.
type BackfillRun struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
	// EstimatedCost is derived from assumed token counts, not from billing.
	EstimatedCost  float64       `json:"estimatedCost"`
	CostIsEstimate bool          `json:"costIsEstimate"`
	Duration       time.Duration `json:"duration"`
}

// Runner drives the indexer over every entity that needs a vector.
type Runner struct {
	store   Store
	indexer Indexer
	monitor *finops.CostMonitor
	cfg     Config
}

// NewRunner creates a backfill runner. monitor may be nil.
func NewRunner(st Store, indexer Indexer, monitor *finops.CostMonitor, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.UserPolicy == "" {
		cfg.UserPolicy = UserPolicyAll
	}
	return &Runner{
		store:   st,
		indexer: indexer,
		monitor: monitor,
		cfg:     cfg,
	}
}

// UserPolicy returns the policy used when callers do not pick one.
func (r *Runner) UserPolicy() UserPolicy {
	return r.cfg.UserPolicy
}

// Run backfills jobs once on startup and then every Interval until ctx ends.
// It returns immediately when no interval is configured.
func (r *Runner) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		return
	}

	r.runOnce(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding backfill runner stopped")
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if _, err := r.BackfillJobs(ctx, 0); err != nil && ctx.Err() == nil {
		slog.Error("periodic job backfill failed", "error", err)
	}
}

// BackfillJobs embeds up to limit jobs lacking a vector from the current
// model, all of them when limit is not positive. A failing batch is counted
// under Errors and the run moves on to the next one. On cancellation the
// batches already committed stay committed and the partial run is returned
// with the context error.
func (r *Runner) BackfillJobs(ctx context.Context, limit int) (*BackfillRun, error) {
	start := time.Now()
	run := &BackfillRun{CostIsEstimate: true}

	jobs, err := r.store.FindJobsWithoutEmbedding(ctx, r.indexer.Model(), limit)
	if err != nil {
		return nil, fmt.Errorf("select jobs without embedding: %w", err)
	}
	if len(jobs) == 0 {
		return r.finish(ctx, finops.OperationBackfillJobs, run, start), nil
	}

	slog.Info("backfilling job embeddings", "count", len(jobs), "batchSize", r.cfg.BatchSize)
	throttle := r.newThrottle()

	for i := 0; i < len(jobs); i += r.cfg.BatchSize {
		if err := throttle.Wait(ctx); err != nil {
			slog.Info("job backfill cancelled", "processed", run.Processed, "total", len(jobs))
			return r.finish(ctx, finops.OperationBackfillJobs, run, start), ctx.Err()
		}

		end := min(i+r.cfg.BatchSize, len(jobs))
		batch := jobs[i:end]

		if err := r.indexer.IndexJobs(ctx, batch); err != nil {
			run.Errors += len(batch)
			if ctx.Err() != nil {
				return r.finish(ctx, finops.OperationBackfillJobs, run, start), ctx.Err()
			}
			slog.Error("failed to backfill job batch", "size", len(batch), "firstJobID", batch[0].ID, "error", err)
			continue
		}
		run.Processed += len(batch)
		slog.Info("job batch processed", "count", len(batch), "progress", fmt.Sprintf("%d/%d", end, len(jobs)))
	}

	return r.finish(ctx, finops.OperationBackfillJobs, run, start), nil
}

// BackfillUsers embeds up to limit users one at a time, all of them when
// limit is not positive. Users without enough profile data to describe them
// are skipped without a provider call.
func (r *Runner) BackfillUsers(ctx context.Context, limit int, policy UserPolicy) (*BackfillRun, error) {
	start := time.Now()
	run := &BackfillRun{CostIsEstimate: true}
	if policy == "" {
		policy = r.cfg.UserPolicy
	}

	find := &store.FindUser{Limit: limit}
	if policy == UserPolicyMissing {
		model := r.indexer.Model()
		find.StaleEmbeddingFor = &model
	}
	users, err := r.store.ListUsers(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	slog.Info("backfilling user embeddings", "count", len(users), "policy", policy)
	throttle := r.newThrottle()

	for _, user := range users {
		if !HasEnoughProfileData(user) {
			run.Skipped++
			slog.Debug("skipping user without profile data", "userID", user.ID)
			continue
		}

		if err := throttle.Wait(ctx); err != nil {
			slog.Info("user backfill cancelled", "processed", run.Processed, "total", len(users))
			return r.finish(ctx, finops.OperationBackfillUsers, run, start), ctx.Err()
		}

		if err := r.backfillUser(ctx, user); err != nil {
			run.Errors++
			if ctx.Err() != nil {
				return r.finish(ctx, finops.OperationBackfillUsers, run, start), ctx.Err()
			}
			slog.Error("failed to backfill user", "userID", user.ID, "error", err)
			continue
		}
		run.Processed++
	}

	return r.finish(ctx, finops.OperationBackfillUsers, run, start), nil
}

func (r *Runner) backfillUser(ctx context.Context, user *store.User) error {
	p, err := r.indexer.LoadUserProfile(ctx, user.ID)
	if err != nil {
		return err
	}
	_, err = r.indexer.IndexUserProfile(ctx, p)
	return err
}

// newThrottle lets the first call through and spaces the rest by Delay.
func (r *Runner) newThrottle() *rate.Limiter {
	if r.cfg.Delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(r.cfg.Delay), 1)
}

func (r *Runner) finish(ctx context.Context, operation string, run *BackfillRun, start time.Time) *BackfillRun {
	run.Duration = time.Since(start)

	pricing := finops.DefaultPricing()
	if r.monitor != nil {
		pricing = r.monitor.Pricing()
	}
	run.EstimatedCost = pricing.EstimateEmbeddingCost(run.Processed)

	if r.monitor != nil {
		record := r.monitor.NewCostRecord(operation, run.Processed, 0, 0, run.Duration)
		if err := r.monitor.Record(context.WithoutCancel(ctx), record); err != nil {
			slog.Warn("failed to record backfill cost", "operation", operation, "error", err)
		}
	}

	slog.Info("backfill finished",
		"operation", operation,
		"processed", run.Processed,
		"skipped", run.Skipped,
		"errors", run.Errors,
		"estimatedCost", run.EstimatedCost,
		"duration", run.Duration,
	)
	return run
}

// HasEnoughProfileData reports whether a user has basic info or skills worth embedding.
func HasEnoughProfileData(user *store.User) bool {
	hasBasicInfo := strings.TrimSpace(user.Bio) != "" ||
		strings.TrimSpace(user.Location) != "" ||
		strings.TrimSpace(user.FullName) != ""
	return hasBasicInfo || hasSkills(user)
}

func hasSkills(user *store.User) bool {
	raw := strings.TrimSpace(user.SkillsRaw)
	if raw == "" {
		return len(user.Skills) > 0
	}
	return raw != "null" && raw != "[]"
}
