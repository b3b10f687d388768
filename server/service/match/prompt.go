package match

import (
	"fmt"
	"strings"

	"github.com/hrygo/jobmatch/store"
)

const notSpecified = "Not specified"

// CandidateProfile is everything the scorer knows about a user.
type CandidateProfile struct {
	User           *store.User
	WorkExperience []*store.WorkExperience
	Education      []*store.Education
	Certifications []*store.Certification
	Languages      []*store.Language
	Projects       []*store.Project
}

const systemPrompt = "You are an expert job matching analyst. Analyze this candidate's compatibility with the job posting."

const analysisInstructions = `ANALYSIS INSTRUCTIONS:

Provide a detailed compatibility analysis considering:

1. **Technical Skills Match** (30% weight)
   - How many required skills does candidate have?
   - Any advanced/bonus skills?
   - Missing critical skills?

2. **Experience Level** (25% weight)
   - Years of relevant experience
   - Seniority level match
   - Industry experience

3. **Education & Certifications** (15% weight)
   - Degree requirements met?
   - Relevant certifications?
   - Continuous learning demonstrated?

4. **Location & Remote** (10% weight)
   - Location compatibility
   - Remote preference alignment

5. **Career Trajectory** (10% weight)
   - Job aligns with career path?
   - Growth opportunity?

6. **Cultural Fit Indicators** (10% weight)
   - Project work shows similar values?
   - Company size/stage match?

Return ONLY valid JSON:
{
  "score": 85,
  "strengths": [
    "5+ years React experience matches senior requirement",
    "AWS Certified Solutions Architect shows cloud expertise"
  ],
  "concerns": [
    "Limited Python experience (listed as preferred skill)"
  ],
  "recommendation": "strong",
  "skillsMatch": {
    "matched": ["React", "TypeScript", "AWS"],
    "missing": ["Python", "Kubernetes"]
  },
  "experienceYears": 6,
  "educationMatch": true,
  "locationMatch": true
}

Recommendation levels: "strong" (80-100%), "good" (60-79%), "fair" (40-59%), "weak" (0-39%)`

// BuildPrompt renders the candidate and job into the analysis prompt.
func BuildPrompt(candidate *CandidateProfile, job *store.Job) string {
	var b strings.Builder
	user := candidate.User

	b.WriteString("CANDIDATE PROFILE:\n\nBasic Info:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(user.FullName, notSpecified))
	fmt.Fprintf(&b, "- Location: %s\n", orDefault(user.Location, notSpecified))
	fmt.Fprintf(&b, "- Headline: %s\n", orDefault(user.Headline, notSpecified))
	fmt.Fprintf(&b, "- Summary: %s\n", orDefault(user.Bio, "No summary provided"))

	fmt.Fprintf(&b, "\nWork Experience (%d positions):\n", len(candidate.WorkExperience))
	for i, w := range candidate.WorkExperience {
		fmt.Fprintf(&b, "%d. %s at %s (%s to %s)\n", i+1, w.Title, w.Company, orDefault(w.StartDate, "Unknown"), endDate(w.EndDate, w.IsCurrent))
		fmt.Fprintf(&b, "   Location: %s\n", orDefault(w.Location, notSpecified))
		fmt.Fprintf(&b, "   Description: %s\n", orDefault(w.Description, "No description"))
	}

	fmt.Fprintf(&b, "\nEducation (%d degrees):\n", len(candidate.Education))
	for i, e := range candidate.Education {
		fmt.Fprintf(&b, "%d. %s in %s\n", i+1, orDefault(e.Degree, "Degree"), orDefault(e.FieldOfStudy, "Field"))
		fmt.Fprintf(&b, "   School: %s\n", e.School)
		fmt.Fprintf(&b, "   Dates: %s - %s\n", orDefault(e.StartDate, "Unknown"), endDate(e.EndDate, false))
	}

	fmt.Fprintf(&b, "\nCertifications (%d):\n", len(candidate.Certifications))
	if len(candidate.Certifications) == 0 {
		b.WriteString("None\n")
	}
	for _, c := range candidate.Certifications {
		fmt.Fprintf(&b, "- %s by %s\n", c.Name, orDefault(c.IssuingOrganization, "Unknown issuer"))
	}

	fmt.Fprintf(&b, "\nLanguages (%d):\n", len(candidate.Languages))
	if len(candidate.Languages) == 0 {
		b.WriteString("None\n")
	}
	for _, l := range candidate.Languages {
		fmt.Fprintf(&b, "- %s (%s)\n", l.Language, orDefault(l.Proficiency, "Professional"))
	}

	fmt.Fprintf(&b, "\nProjects (%d):\n", len(candidate.Projects))
	for i, p := range candidate.Projects {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "   Description: %s\n", orDefault(p.Description, "No description"))
		fmt.Fprintf(&b, "   Technologies: %s\n", joinOrDefault(p.Technologies, notSpecified))
	}

	fmt.Fprintf(&b, "\nSkills: %s\n", joinOrDefault(user.Skills, "None listed"))

	b.WriteString("\nJOB POSTING:\n\n")
	fmt.Fprintf(&b, "- Title: %s\n", job.Title)
	fmt.Fprintf(&b, "- Company: %s\n", job.Company)
	fmt.Fprintf(&b, "- Location: %s\n", orDefault(job.Location, notSpecified))
	fmt.Fprintf(&b, "- Remote: %s\n", yesNo(job.Remote))
	fmt.Fprintf(&b, "- Salary Range: %s - %s\n", salary(job.SalaryMin), salary(job.SalaryMax))
	fmt.Fprintf(&b, "- Requirements: %s\n", joinOrDefault(job.Requirements, notSpecified))
	fmt.Fprintf(&b, "- Description: %s\n\n", orDefault(job.Description, "No description"))

	b.WriteString(analysisInstructions)
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOrDefault(list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}

func endDate(date string, current bool) string {
	if current || date == "" {
		return "Present"
	}
	return date
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func salary(amount *int) string {
	if amount == nil || *amount <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("$%d", *amount)
}
