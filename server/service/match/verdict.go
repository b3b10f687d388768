package match

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
)

// Recommendation bands a match score.
type Recommendation string

const (
	RecommendationStrong Recommendation = "strong"
	RecommendationGood   Recommendation = "good"
	RecommendationFair   Recommendation = "fair"
	RecommendationWeak   Recommendation = "weak"
)

// RecommendationForScore maps a 0-100 score to its band. Every scorer bands through here.
func RecommendationForScore(score int) Recommendation {
	switch {
	case score >= 80:
		return RecommendationStrong
	case score >= 60:
		return RecommendationGood
	case score >= 40:
		return RecommendationFair
	default:
		return RecommendationWeak
	}
}

// SkillsMatch splits the job's skills into the ones the candidate has and lacks.
type SkillsMatch struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// MatchAnalysis is the compatibility verdict between one user and one job.
type MatchAnalysis struct {
	Score           int            `json:"score"`
	Recommendation  Recommendation `json:"recommendation"`
	Strengths       []string       `json:"strengths"`
	Concerns        []string       `json:"concerns"`
	SkillsMatch     SkillsMatch    `json:"skillsMatch"`
	ExperienceYears int            `json:"experienceYears"`
	EducationMatch  bool           `json:"educationMatch"`
	LocationMatch   bool           `json:"locationMatch"`
}

// normalize clamps the score, re-derives the band and replaces nil lists.
func (a *MatchAnalysis) normalize() {
	a.Score = clampScore(a.Score)
	a.Recommendation = RecommendationForScore(a.Score)
	a.Strengths = nonNil(a.Strengths)
	a.Concerns = nonNil(a.Concerns)
	a.SkillsMatch.Matched = nonNil(a.SkillsMatch.Matched)
	a.SkillsMatch.Missing = nonNil(a.SkillsMatch.Missing)
	if a.ExperienceYears < 0 {
		a.ExperienceYears = 0
	}
}

func clampScore(score int) int {
	return max(0, min(100, score))
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

var (
	jsonFencePattern  = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	bareFencePattern  = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n\\s*```")
	bracePairsPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON finds the JSON object in a model reply. It tries a ```json
// fence, then a bare ``` fence, then the outermost {...} span.
func ExtractJSON(text string) (string, bool) {
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := bareFencePattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := bracePairsPattern.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

// rawVerdict keeps every field optional so absent values can be defaulted.
type rawVerdict struct {
	Score       *float64 `json:"score"`
	Strengths   []string `json:"strengths"`
	Concerns    []string `json:"concerns"`
	SkillsMatch *struct {
		Matched []string `json:"matched"`
		Missing []string `json:"missing"`
	} `json:"skillsMatch"`
	ExperienceYears *float64 `json:"experienceYears"`
	EducationMatch  *bool    `json:"educationMatch"`
	LocationMatch   *bool    `json:"locationMatch"`
}

// ParseVerdict extracts and decodes a verdict from a model reply.
// Missing fields default to zero, empty lists and true match flags;
// a reply with no decodable JSON object is a Parse error.
func ParseVerdict(text string) (*MatchAnalysis, error) {
	payload, ok := ExtractJSON(text)
	if !ok {
		return nil, apperrors.Parse("no JSON object found in model response", nil)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &raw); err != nil {
		return nil, apperrors.Parse("model response is not valid verdict JSON", err)
	}

	analysis := &MatchAnalysis{
		Strengths:      raw.Strengths,
		Concerns:       raw.Concerns,
		EducationMatch: raw.EducationMatch == nil || *raw.EducationMatch,
		LocationMatch:  raw.LocationMatch == nil || *raw.LocationMatch,
	}
	if raw.Score != nil && !math.IsNaN(*raw.Score) {
		analysis.Score = int(math.Round(max(-1, min(101, *raw.Score))))
	}
	if raw.ExperienceYears != nil && !math.IsNaN(*raw.ExperienceYears) {
		analysis.ExperienceYears = int(math.Round(min(*raw.ExperienceYears, 80)))
	}
	if raw.SkillsMatch != nil {
		analysis.SkillsMatch = SkillsMatch{Matched: raw.SkillsMatch.Matched, Missing: raw.SkillsMatch.Missing}
	}
	analysis.normalize()
	return analysis, nil
}
