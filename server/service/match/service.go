// Package match scores how well a candidate fits a job and caches the verdicts.
package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai"
	"github.com/hrygo/jobmatch/plugin/ai/cache"
	"github.com/hrygo/jobmatch/server/finops"
	"github.com/hrygo/jobmatch/store"
)

const (
	DefaultAnalysisVersion = 2
	DefaultCacheTTL        = 7 * 24 * time.Hour

	// recentProjects bounds how many projects reach the prompt.
	recentProjects = 5
)

// Store is the part of the relational store the scorer reads.
type Store interface {
	GetJob(ctx context.Context, id string) (*store.Job, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	ListWorkExperiences(ctx context.Context, userID string) ([]*store.WorkExperience, error)
	ListEducations(ctx context.Context, userID string) ([]*store.Education, error)
	ListCertifications(ctx context.Context, userID string) ([]*store.Certification, error)
	ListLanguages(ctx context.Context, userID string) ([]*store.Language, error)
	ListProjects(ctx context.Context, userID string, limit int) ([]*store.Project, error)
}

// Config tunes the verdict cache.
type Config struct {
	// Version is bumped whenever the prompt or verdict shape changes,
	// which orphans every earlier cache entry.
	Version int
	TTL     time.Duration
}

// Result is a verdict plus whether it came from the cache.
type Result struct {
	JobID    string         `json:"jobId"`
	Analysis *MatchAnalysis `json:"analysis"`
	Cached   bool           `json:"cached"`
}

// Service produces and caches match verdicts.
type Service struct {
	store   Store
	llm     ai.LLMService
	cache   cache.CacheService
	monitor *finops.CostMonitor

	version int
	ttl     time.Duration
}

// NewService creates a match service. A nil llm scores with FallbackScore,
// a nil kv disables caching and a nil monitor disables cost records.
func NewService(st Store, llm ai.LLMService, kv cache.CacheService, monitor *finops.CostMonitor, cfg Config) *Service {
	if cfg.Version <= 0 {
		cfg.Version = DefaultAnalysisVersion
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	return &Service{
		store:   st,
		llm:     llm,
		cache:   kv,
		monitor: monitor,
		version: cfg.Version,
		ttl:     cfg.TTL,
	}
}

// CacheKey is the versioned cache key of a (user, job) verdict.
func (s *Service) CacheKey(userID, jobID string) string {
	return fmt.Sprintf("job-analysis-v%d:%s:%s", s.version, userID, jobID)
}

// GetOrComputeMatch returns the cached verdict for (userID, jobID) or computes,
// caches and returns a fresh one.
func (s *Service) GetOrComputeMatch(ctx context.Context, userID, jobID string) (*Result, error) {
	start := time.Now()
	result, llmCalled, err := s.getOrCompute(ctx, userID, jobID, nil)
	if err != nil {
		return nil, err
	}

	calls, avoided := 0, 0
	if llmCalled {
		calls = 1
	} else if result.Cached {
		avoided = 1
	}
	s.recordCost(ctx, finops.OperationMatchAnalysis, calls, avoided, time.Since(start))
	return result, nil
}

// getOrCompute reports whether the LLM was called for the result.
// candidate is loaded on a cache miss when nil.
func (s *Service) getOrCompute(ctx context.Context, userID, jobID string, candidate *CandidateProfile) (*Result, bool, error) {
	key := s.CacheKey(userID, jobID)
	if analysis, ok := s.cached(ctx, key); ok {
		return &Result{JobID: jobID, Analysis: analysis, Cached: true}, false, nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job == nil {
		return nil, false, apperrors.NotFound(fmt.Sprintf("job %s not found", jobID))
	}
	if candidate == nil {
		if candidate, err = s.LoadCandidate(ctx, userID); err != nil {
			return nil, false, err
		}
	}

	if s.llm == nil {
		// Fallback verdicts are cheap and not cached, so configuring an LLM takes effect at once.
		return &Result{JobID: jobID, Analysis: FallbackScore(candidate, job)}, false, nil
	}

	analysis, err := s.analyze(ctx, candidate, job)
	if err != nil {
		return nil, true, err
	}
	s.storeVerdict(ctx, key, analysis)
	return &Result{JobID: jobID, Analysis: analysis}, true, nil
}

func (s *Service) analyze(ctx context.Context, candidate *CandidateProfile, job *store.Job) (*MatchAnalysis, error) {
	messages := []ai.Message{
		ai.SystemPrompt(systemPrompt),
		ai.UserMessage(BuildPrompt(candidate, job)),
	}
	reply, err := s.llm.ChatJSON(ctx, messages)
	if err != nil {
		return nil, err
	}

	analysis, err := ParseVerdict(reply)
	if err != nil {
		slog.Warn("failed to parse match verdict",
			"userID", candidate.User.ID,
			"jobID", job.ID,
			"replyLength", len(reply),
			"error", err,
		)
		return nil, err
	}
	return analysis, nil
}

func (s *Service) cached(ctx context.Context, key string) (*MatchAnalysis, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var analysis MatchAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		slog.Warn("dropping undecodable cached verdict", "key", key, "error", err)
		return nil, false
	}
	return &analysis, true
}

func (s *Service) storeVerdict(ctx context.Context, key string, analysis *MatchAnalysis) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		slog.Error("failed to encode verdict", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Warn("failed to cache verdict", "key", key, "error", err)
	}
}

// Invalidate drops the cached verdict of (userID, jobID).
func (s *Service) Invalidate(ctx context.Context, userID, jobID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, s.CacheKey(userID, jobID)); err != nil {
		return apperrors.Upstream("invalidate cached verdict", err)
	}
	return nil
}

// LoadCandidate gathers the user's profile rows for scoring.
func (s *Service) LoadCandidate(ctx context.Context, userID string) (*CandidateProfile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("user %s not found", userID))
	}

	candidate := &CandidateProfile{User: user}
	if candidate.WorkExperience, err = s.store.ListWorkExperiences(ctx, userID); err != nil {
		return nil, fmt.Errorf("list work experience: %w", err)
	}
	if candidate.Education, err = s.store.ListEducations(ctx, userID); err != nil {
		return nil, fmt.Errorf("list education: %w", err)
	}
	if candidate.Certifications, err = s.store.ListCertifications(ctx, userID); err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	if candidate.Languages, err = s.store.ListLanguages(ctx, userID); err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	if candidate.Projects, err = s.store.ListProjects(ctx, userID, recentProjects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return candidate, nil
}

func (s *Service) recordCost(ctx context.Context, operation string, calls, avoided int, elapsed time.Duration) {
	if s.monitor == nil {
		return
	}
	if err := s.monitor.Record(ctx, s.monitor.NewCostRecord(operation, 0, calls, avoided, elapsed)); err != nil {
		slog.Warn("failed to record cost", "operation", operation, "error", err)
	}
}
