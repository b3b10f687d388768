// Package embedding turns jobs and user profiles into embedding text and
// keeps their vectors in step with the relational store and the vector index.
package embedding

import (
	"fmt"
	"strings"

	"github.com/hrygo/jobmatch/plugin/ai"
	"github.com/hrygo/jobmatch/store"
)

const (
	// JobDescriptionMaxChars bounds the description inside job embedding text.
	JobDescriptionMaxChars = 2000

	maxWorkEntries      = 3
	maxEducationEntries = 2
)

// UserProfile is a user plus the joined rows that shape their embedding.
type UserProfile struct {
	User           *store.User
	WorkExperience []*store.WorkExperience
	Education      []*store.Education
	Preferences    *store.JobPreferences
}

// WorkModeLabel derives the work mode. Remote wins over hybrid.
func WorkModeLabel(remote, hybrid bool) string {
	switch {
	case remote:
		return "Remote"
	case hybrid:
		return "Hybrid"
	default:
		return "On-site"
	}
}

// BuildJobEmbeddingText renders the fixed job template.
func BuildJobEmbeddingText(job *store.Job) string {
	category := strings.TrimSpace(job.Category)
	if category == "" {
		category = "General"
	}

	text := fmt.Sprintf("Title: %s\nCompany: %s\nLocation: %s\nType: %s\nCategory: %s\nDescription: %s",
		job.Title,
		job.Company,
		job.Location,
		WorkModeLabel(job.Remote, job.Hybrid),
		category,
		ai.TruncateText(job.Description, JobDescriptionMaxChars),
	)
	return strings.TrimSpace(text)
}

// BuildUserEmbeddingText renders bio, skills and location, followed by
// recent work, education and preferences when the profile carries them.
func BuildUserEmbeddingText(p *UserProfile) string {
	user := p.User
	if user == nil {
		user = &store.User{}
	}

	var b strings.Builder
	b.WriteString("Bio: " + orDefault(user.Bio, "No bio provided"))
	b.WriteString("\nSkills: " + orDefault(strings.Join(user.Skills, ", "), "No skills listed"))
	b.WriteString("\nLocation: " + orDefault(user.Location, "Not specified"))

	if len(p.WorkExperience) > 0 {
		lines := make([]string, 0, maxWorkEntries)
		for _, w := range p.WorkExperience[:min(len(p.WorkExperience), maxWorkEntries)] {
			line := w.Title + " at " + w.Company
			if w.Description != "" {
				line += ": " + w.Description
			}
			lines = append(lines, line)
		}
		b.WriteString("\n\nWork Experience:\n" + strings.Join(lines, "\n"))
	}

	if len(p.Education) > 0 {
		lines := make([]string, 0, maxEducationEntries)
		for _, e := range p.Education[:min(len(p.Education), maxEducationEntries)] {
			parts := make([]string, 0, 3)
			if e.Degree != "" {
				parts = append(parts, e.Degree)
			}
			if e.FieldOfStudy != "" {
				parts = append(parts, "in "+e.FieldOfStudy)
			}
			parts = append(parts, "from "+e.School)
			lines = append(lines, strings.Join(parts, " "))
		}
		b.WriteString("\n\nEducation:\n" + strings.Join(lines, "\n"))
	}

	if prefs := p.Preferences; prefs != nil {
		var lines []string
		if len(prefs.DesiredRoles) > 0 {
			lines = append(lines, "Desired Roles: "+strings.Join(prefs.DesiredRoles, ", "))
		}
		if len(prefs.PreferredLocations) > 0 {
			lines = append(lines, "Preferred Locations: "+strings.Join(prefs.PreferredLocations, ", "))
		}
		if len(prefs.TargetSkills) > 0 {
			lines = append(lines, "Target Skills: "+strings.Join(prefs.TargetSkills, ", "))
		}
		if len(lines) > 0 {
			b.WriteString("\n\nJob Preferences:\n" + strings.Join(lines, "\n"))
		}
	}

	return b.String()
}

// JobMetadata is the index metadata stored alongside a job vector.
func JobMetadata(job *store.Job, model string) map[string]any {
	return map[string]any{
		"job_id":     job.ID,
		"title":      job.Title,
		"company":    job.Company,
		"location":   job.Location,
		"remote":     job.Remote,
		"hybrid":     job.Hybrid,
		"category":   job.Category,
		"created_at": job.CreatedTs,
		"model":      model,
	}
}

// UserMetadata is the index metadata stored alongside a user vector.
func UserMetadata(user *store.User, model string) map[string]any {
	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	return map[string]any{
		"user_id":  user.ID,
		"location": user.Location,
		"skills":   skills,
		"model":    model,
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
