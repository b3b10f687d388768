// Package server assembles the matching pipeline from a profile and serves it over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/plugin/ai"
	"github.com/hrygo/jobmatch/plugin/ai/cache"
	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/server/finops"
	"github.com/hrygo/jobmatch/server/internal/observability"
	"github.com/hrygo/jobmatch/server/middleware"
	apiv1 "github.com/hrygo/jobmatch/server/router/api/v1"
	backfill "github.com/hrygo/jobmatch/server/runner/embedding"
	"github.com/hrygo/jobmatch/server/service/embedding"
	"github.com/hrygo/jobmatch/server/service/match"
	"github.com/hrygo/jobmatch/server/service/similarity"
	"github.com/hrygo/jobmatch/store"
	"github.com/hrygo/jobmatch/store/db"
)

const shutdownTimeout = 10 * time.Second

// Server owns every long-lived component of a running instance.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	Indexer     *embedding.Indexer
	Similarity  *similarity.Service
	Matcher     *match.Service
	Recommender *match.Recommender
	Runner      *backfill.Runner
	CostMonitor *finops.CostMonitor

	echoServer *echo.Echo
	index      vector.Index
	cache      cache.Store
	logger     *slog.Logger
}

// NewServer opens the store and builds the pipeline described by p.
// Without an LLM, verdicts come from the deterministic fallback scorer.
func NewServer(ctx context.Context, p *profile.Profile, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !p.IsAIEnabled() {
		return nil, errors.New("AI is not enabled: set JOBMATCH_AI_ENABLED and an embedding provider key")
	}
	aiConfig := ai.NewConfigFromProfile(p)

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}

	s := &Server{
		Profile: p,
		Store:   st,
		logger:  logger,
	}
	if err := s.build(ctx, aiConfig); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context, aiConfig *ai.Config) error {
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return errors.Wrap(err, "failed to create embedding service")
	}

	var llm ai.LLMService
	if aiConfig.LLM.Provider != "" {
		llm, err = ai.NewLLMService(ctx, &aiConfig.LLM)
		if err != nil {
			s.logger.Warn("LLM unavailable, match verdicts use the fallback scorer", "provider", aiConfig.LLM.Provider, "error", err)
			llm = nil
		}
	}

	s.index, err = vector.NewIndexFromProfile(ctx, s.Profile, s.Store.GetDriver().GetDB())
	if err != nil {
		return errors.Wrap(err, "failed to create vector index")
	}
	vectors := vector.NewClient(s.index)

	s.cache, err = cache.NewStoreFromProfile(ctx, s.Profile)
	if err != nil {
		return errors.Wrap(err, "failed to create cache")
	}

	s.CostMonitor = finops.NewCostMonitor(finops.PricingFromProfile(s.Profile))
	s.Indexer = embedding.NewIndexer(s.Store, embedder, vectors, s.cache, s.Profile.UserEmbeddingCacheTTL)
	s.Similarity = similarity.NewService(s.Store, embedder, vectors, s.Indexer)
	s.Matcher = match.NewService(s.Store, llm, s.cache, s.CostMonitor, match.Config{
		Version: s.Profile.MatchAnalysisVersion,
		TTL:     s.Profile.MatchCacheTTL,
	})
	s.Recommender = match.NewRecommender(s.Matcher, s.Similarity, s.Store)
	s.Runner = backfill.NewRunner(s.Store, s.Indexer, s.CostMonitor, backfill.ConfigFromProfile(s.Profile))
	return nil
}

// Start serves the API and runs the periodic backfill until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.echoServer = echo.New()
	s.echoServer.HideBanner = true
	s.echoServer.HidePort = true

	api := &apiv1.APIV1Service{
		Secret:      s.Profile.Secret,
		Jobs:        s.Similarity,
		Matcher:     s.Matcher,
		Recommender: s.Recommender,
		Backfiller:  s.Runner,
		JobRemover:  s.Indexer,
		CostMonitor: s.CostMonitor,
		Metrics:     observability.NewMetrics(),
		RateLimiter: middleware.NewRateLimiter(0, 0),
		Logger:      s.logger,
	}
	api.Register(s.echoServer)

	go s.Runner.Run(ctx)

	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprintf("%d", s.Profile.Port))
	s.logger.Info("jobmatch server starting", "address", address, "mode", s.Profile.Mode, "vector", s.Profile.VectorBackend, "cache", s.Profile.CacheBackend)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "failed to start server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return nil
}

// Shutdown stops the HTTP server and releases the store and cache.
func (s *Server) Shutdown(ctx context.Context) {
	if s.echoServer != nil {
		if err := s.echoServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", "error", err)
		}
	}
	if err := s.Close(); err != nil {
		s.logger.Error("failed to close resources", "error", err)
	}
	s.logger.Info("jobmatch server stopped")
}

// Close releases the vector index, the cache and the database connection.
func (s *Server) Close() error {
	var errs []error
	if closer, ok := s.index.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close vector index"))
		}
	}
	s.index = nil
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close cache"))
		}
		s.cache = nil
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close store"))
		}
		s.Store = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
