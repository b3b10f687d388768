package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
)

func TestRecommendationForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Recommendation
	}{
		{0, RecommendationWeak},
		{39, RecommendationWeak},
		{40, RecommendationFair},
		{59, RecommendationFair},
		{60, RecommendationGood},
		{79, RecommendationGood},
		{80, RecommendationStrong},
		{100, RecommendationStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecommendationForScore(tt.score), "score %d", tt.score)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "json fence",
			text: "Here is the analysis:\n```json\n{\"score\": 70}\n```\nGood luck!",
			want: `{"score": 70}`,
			ok:   true,
		},
		{
			name: "bare fence",
			text: "```\n{\"score\": 65}\n```",
			want: `{"score": 65}`,
			ok:   true,
		},
		{
			name: "brace scan",
			text: `Sure. {"score": 72, "strengths": ["Go"]} Let me know.`,
			want: `{"score": 72, "strengths": ["Go"]}`,
			ok:   true,
		},
		{
			name: "json fence wins over earlier braces",
			text: "Ignore {this}\n```json\n{\"score\": 55}\n```",
			want: `{"score": 55}`,
			ok:   true,
		},
		{
			name: "json fence wins over bare fence",
			text: "```\nnot it\n```\n```json\n{\"score\": 40}\n```",
			want: `{"score": 40}`,
			ok:   true,
		},
		{
			name: "no json",
			text: "I cannot analyze this candidate.",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVerdict(t *testing.T) {
	t.Run("full verdict", func(t *testing.T) {
		text := "```json\n" + `{
  "score": 85,
  "strengths": ["5+ years Go"],
  "concerns": ["No Kubernetes"],
  "recommendation": "strong",
  "skillsMatch": {"matched": ["Go", "SQL"], "missing": ["Kubernetes"]},
  "experienceYears": 6,
  "educationMatch": false,
  "locationMatch": true
}` + "\n```"
		analysis, err := ParseVerdict(text)
		require.NoError(t, err)
		assert.Equal(t, &MatchAnalysis{
			Score:           85,
			Recommendation:  RecommendationStrong,
			Strengths:       []string{"5+ years Go"},
			Concerns:        []string{"No Kubernetes"},
			SkillsMatch:     SkillsMatch{Matched: []string{"Go", "SQL"}, Missing: []string{"Kubernetes"}},
			ExperienceYears: 6,
			EducationMatch:  false,
			LocationMatch:   true,
		}, analysis)
	})

	t.Run("missing fields default", func(t *testing.T) {
		analysis, err := ParseVerdict("{}")
		require.NoError(t, err)
		assert.Equal(t, 0, analysis.Score)
		assert.Equal(t, RecommendationWeak, analysis.Recommendation)
		assert.Equal(t, []string{}, analysis.Strengths)
		assert.Equal(t, []string{}, analysis.Concerns)
		assert.Equal(t, []string{}, analysis.SkillsMatch.Matched)
		assert.Equal(t, []string{}, analysis.SkillsMatch.Missing)
		assert.Equal(t, 0, analysis.ExperienceYears)
		assert.True(t, analysis.EducationMatch)
		assert.True(t, analysis.LocationMatch)
	})

	t.Run("score is clamped and band re-derived", func(t *testing.T) {
		tests := []struct {
			text  string
			score int
			band  Recommendation
		}{
			{`{"score": 150, "recommendation": "weak"}`, 100, RecommendationStrong},
			{`{"score": -20, "recommendation": "strong"}`, 0, RecommendationWeak},
			{`{"score": 30, "recommendation": "strong"}`, 30, RecommendationWeak},
			{`{"score": 79.6}`, 80, RecommendationStrong},
		}
		for _, tt := range tests {
			analysis, err := ParseVerdict(tt.text)
			require.NoError(t, err, tt.text)
			assert.Equal(t, tt.score, analysis.Score, tt.text)
			assert.Equal(t, tt.band, analysis.Recommendation, tt.text)
		}
	})

	t.Run("no json is a parse error", func(t *testing.T) {
		_, err := ParseVerdict("The candidate looks great!")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeParse))
	})

	t.Run("malformed json is a parse error", func(t *testing.T) {
		_, err := ParseVerdict(`{"score": 80, "strengths": [}`)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeParse))
	})

	t.Run("wrong field type is a parse error", func(t *testing.T) {
		_, err := ParseVerdict(`{"score": "high"}`)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeParse))
	})
}
