package v1

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	jmmiddleware "github.com/hrygo/jobmatch/server/middleware"
	"github.com/hrygo/jobmatch/server/service/match"
)

// RecommendationResponse is one ranked job.
type RecommendationResponse struct {
	Job             *Job                 `json:"job"`
	SimilarityScore int                  `json:"similarity_score"`
	Analysis        *match.MatchAnalysis `json:"analysis"`
	Cached          bool                 `json:"cached"`
}

// AnalyzeJob handles POST /api/v1/jobs/:id/analyze.
func (s *APIV1Service) AnalyzeJob(c echo.Context) error {
	userID, _ := jmmiddleware.UserIDFrom(c)
	result, err := s.Matcher.GetOrComputeMatch(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteAnalysis handles DELETE /api/v1/jobs/:id/analysis.
func (s *APIV1Service) DeleteAnalysis(c echo.Context) error {
	userID, _ := jmmiddleware.UserIDFrom(c)
	if err := s.Matcher.Invalidate(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRecommendations handles GET /api/v1/recommendations?limit=.
func (s *APIV1Service) GetRecommendations(c echo.Context) error {
	userID, _ := jmmiddleware.UserIDFrom(c)
	limit, err := parseLimit(c, match.DefaultRecommendLimit, match.MaxRecommendLimit)
	if err != nil {
		return writeError(c, err)
	}

	recs, err := s.Recommender.Recommend(c.Request().Context(), userID, limit)
	if err != nil {
		return writeError(c, err)
	}

	response := make([]*RecommendationResponse, len(recs))
	for i, rec := range recs {
		response[i] = &RecommendationResponse{
			Job:             convertJob(rec.Job),
			SimilarityScore: int(math.Round(float64(rec.Similarity) * 100)),
			Analysis:        rec.Analysis,
			Cached:          rec.Cached,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"recommendations": response})
}
