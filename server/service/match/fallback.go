package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/hrygo/jobmatch/store"
)

const (
	skillsWeight   = 90
	locationWeight = 10
)

// FallbackScore scores a candidate by skill overlap with the job requirements
// and location fit. It is deterministic and used when no LLM is configured.
func FallbackScore(candidate *CandidateProfile, job *store.Job) *MatchAnalysis {
	user := candidate.User
	matched, missing := overlap(user.Skills, job.Requirements)
	locationMatch := job.Remote || locationsMatch(user.Location, job.Location)

	skillsRatio := 0.5
	if total := len(matched) + len(missing); total > 0 {
		skillsRatio = float64(len(matched)) / float64(total)
	}
	score := skillsRatio * skillsWeight
	if locationMatch {
		score += locationWeight
	}

	analysis := &MatchAnalysis{
		Score:          int(math.Round(score)),
		SkillsMatch:    SkillsMatch{Matched: matched, Missing: missing},
		EducationMatch: true,
		LocationMatch:  locationMatch,
	}

	if len(matched) > 0 {
		analysis.Strengths = append(analysis.Strengths, fmt.Sprintf("Direct experience with %s", strings.Join(matched[:min(len(matched), 3)], ", ")))
	}
	if job.Remote {
		analysis.Strengths = append(analysis.Strengths, "Remote position")
	} else if locationMatch {
		analysis.Strengths = append(analysis.Strengths, "Located where the job is")
	}
	if len(missing) > 0 {
		analysis.Concerns = append(analysis.Concerns, fmt.Sprintf("Missing %s", strings.Join(missing[:min(len(missing), 3)], ", ")))
	}
	if !locationMatch {
		analysis.Concerns = append(analysis.Concerns, "Job location differs from your location")
	}
	if len(matched)+len(missing) == 0 {
		analysis.Concerns = append(analysis.Concerns, "Job lists no explicit requirements")
	}

	analysis.normalize()
	return analysis
}

// overlap splits requirements into those some skill covers and the rest.
// A skill covers a requirement when either contains the other, ignoring case.
func overlap(skills, requirements []string) (matched, missing []string) {
	for _, req := range requirements {
		r := strings.ToLower(strings.TrimSpace(req))
		if r == "" {
			continue
		}
		found := false
		for _, skill := range skills {
			s := strings.ToLower(strings.TrimSpace(skill))
			if s != "" && (strings.Contains(r, s) || strings.Contains(s, r)) {
				found = true
				break
			}
		}
		if found {
			matched = append(matched, req)
		} else {
			missing = append(missing, req)
		}
	}
	return matched, missing
}

func locationsMatch(userLocation, jobLocation string) bool {
	u := strings.ToLower(strings.TrimSpace(userLocation))
	j := strings.ToLower(strings.TrimSpace(jobLocation))
	if j == "" {
		return true
	}
	if u == "" {
		return false
	}
	return strings.Contains(u, j) || strings.Contains(j, u)
}
