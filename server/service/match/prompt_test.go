package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/jobmatch/store"
)

func TestBuildPrompt(t *testing.T) {
	minSalary, maxSalary := 120000, 150000
	candidate := &CandidateProfile{
		User: &store.User{
			FullName: "Ada Lovelace",
			Location: "London",
			Bio:      "Backend engineer",
			Skills:   []string{"Go", "PostgreSQL"},
		},
		WorkExperience: []*store.WorkExperience{
			{Title: "Senior Engineer", Company: "Acme", StartDate: "2020-01", IsCurrent: true},
			{Title: "Engineer", Company: "Initech", StartDate: "2017-03", EndDate: "2019-12"},
		},
		Education:      []*store.Education{{School: "UCL", Degree: "BSc", FieldOfStudy: "Mathematics", StartDate: "2013", EndDate: "2016"}},
		Certifications: []*store.Certification{{Name: "CKA", IssuingOrganization: "CNCF"}},
		Languages:      []*store.Language{{Language: "English"}, {Language: "French", Proficiency: "Native"}},
		Projects:       []*store.Project{{Name: "vecdb", Technologies: []string{"Go", "gRPC"}}},
	}
	job := &store.Job{
		Title:        "Staff Engineer",
		Company:      "Globex",
		Remote:       true,
		SalaryMin:    &minSalary,
		SalaryMax:    &maxSalary,
		Requirements: []string{"Go", "Kubernetes"},
	}

	prompt := BuildPrompt(candidate, job)

	for _, want := range []string{
		"- Name: Ada Lovelace",
		"- Headline: Not specified",
		"Work Experience (2 positions):",
		"1. Senior Engineer at Acme (2020-01 to Present)",
		"2. Engineer at Initech (2017-03 to 2019-12)",
		"1. BSc in Mathematics",
		"- CKA by CNCF",
		"- English (Professional)",
		"- French (Native)",
		"   Technologies: Go, gRPC",
		"Skills: Go, PostgreSQL",
		"- Title: Staff Engineer",
		"- Location: Not specified",
		"- Remote: Yes",
		"- Salary Range: $120000 - $150000",
		"- Requirements: Go, Kubernetes",
		"- Description: No description",
		"**Technical Skills Match** (30% weight)",
		"**Experience Level** (25% weight)",
		"**Education & Certifications** (15% weight)",
		"Return ONLY valid JSON:",
	} {
		assert.Contains(t, prompt, want)
	}
	assert.Less(t, strings.Index(prompt, "CANDIDATE PROFILE:"), strings.Index(prompt, "JOB POSTING:"))
	assert.Less(t, strings.Index(prompt, "JOB POSTING:"), strings.Index(prompt, "ANALYSIS INSTRUCTIONS:"))
}

func TestBuildPrompt_EmptyProfile(t *testing.T) {
	prompt := BuildPrompt(&CandidateProfile{User: &store.User{}}, &store.Job{Title: "Engineer", Company: "Acme"})

	assert.Contains(t, prompt, "- Summary: No summary provided")
	assert.Contains(t, prompt, "Certifications (0):\nNone")
	assert.Contains(t, prompt, "Languages (0):\nNone")
	assert.Contains(t, prompt, "Skills: None listed")
	assert.Contains(t, prompt, "- Salary Range: Not specified - Not specified")
	assert.Contains(t, prompt, "- Remote: No")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	candidate := &CandidateProfile{User: &store.User{FullName: "Grace", Skills: []string{"COBOL"}}}
	job := &store.Job{Title: "Engineer", Company: "Navy", Requirements: []string{"COBOL"}}
	assert.Equal(t, BuildPrompt(candidate, job), BuildPrompt(candidate, job))
}
