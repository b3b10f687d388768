package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/jobmatch/store"
)

func TestUserStore_SkillsDecodedAtBoundary(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	tests := []struct {
		name      string
		skillsRaw string
		want      []string
	}{
		{name: "json list", skillsRaw: `["Go", " SQL ", ""]`, want: []string{"Go", "SQL"}},
		{name: "empty list", skillsRaw: "[]", want: nil},
		{name: "null", skillsRaw: "null", want: nil},
		{name: "malformed", skillsRaw: "Go, SQL", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := ts.CreateUser(ctx, &store.User{FullName: tt.name, SkillsRaw: tt.skillsRaw})
			require.NoError(t, err)

			user, err := ts.GetUser(ctx, created.ID)
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, tt.want, user.Skills)
			assert.Equal(t, tt.skillsRaw, user.SkillsRaw)
		})
	}
}

func TestUserStore_Embedding(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	a, err := ts.CreateUser(ctx, &store.User{FullName: "A", Skills: []string{"Go"}})
	require.NoError(t, err)
	assert.Equal(t, `["Go"]`, a.SkillsRaw)
	b, err := ts.CreateUser(ctx, &store.User{FullName: "B"})
	require.NoError(t, err)

	require.NoError(t, ts.UpdateUserEmbedding(ctx, &store.UpdateEmbedding{ID: a.ID, Embedding: []float32{1, 0, 0, 0}, Model: "m"}))

	all, err := ts.ListUsers(ctx, &store.FindUser{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	stale, err := ts.ListUsers(ctx, &store.FindUser{StaleEmbeddingFor: ptr("m")})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, b.ID, stale[0].ID)

	user, err := ts.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 0, 0, 0}, user.Embedding, 1e-6)
	assert.Equal(t, "m", user.EmbeddingModel)
}

func TestUserStore_ProfileRows(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	user, err := ts.CreateUser(ctx, &store.User{FullName: "Sam"})
	require.NoError(t, err)

	for _, w := range []*store.WorkExperience{
		{UserID: user.ID, Title: "Junior Dev", Company: "First", StartDate: "2015-01"},
		{UserID: user.ID, Title: "Staff Engineer", Company: "Third", StartDate: "2022-03", IsCurrent: true},
		{UserID: user.ID, Title: "Engineer", Company: "Second", StartDate: "2018-06"},
	} {
		_, err := ts.CreateWorkExperience(ctx, w)
		require.NoError(t, err)
	}
	work, err := ts.ListWorkExperiences(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, work, 3)
	assert.Equal(t, "Staff Engineer", work[0].Title)
	assert.True(t, work[0].IsCurrent)
	assert.Equal(t, "Junior Dev", work[2].Title)

	for _, e := range []*store.Education{
		{UserID: user.ID, School: "State U", Degree: "BSc", FieldOfStudy: "CS", EndDate: "2014-06"},
		{UserID: user.ID, School: "Tech U", Degree: "MSc", FieldOfStudy: "CS", EndDate: "2016-06"},
	} {
		_, err := ts.CreateEducation(ctx, e)
		require.NoError(t, err)
	}
	education, err := ts.ListEducations(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, education, 2)
	assert.Equal(t, "MSc", education[0].Degree)

	for i, end := range []string{"2019-01", "2024-01", "2021-01", "2023-01", "2020-01", "2022-01"} {
		_, err := ts.CreateProject(ctx, &store.Project{UserID: user.ID, Name: "p" + end, EndDate: end, Technologies: []string{"Go"}})
		require.NoError(t, err, i)
	}
	projects, err := ts.ListProjects(ctx, user.ID, 5)
	require.NoError(t, err)
	require.Len(t, projects, 5)
	assert.Equal(t, "p2024-01", projects[0].Name)
	assert.Equal(t, "p2020-01", projects[4].Name)
	assert.Equal(t, []string{"Go"}, projects[0].Technologies)

	_, err = ts.CreateCertification(ctx, &store.Certification{UserID: user.ID, Name: "CKA", IssuingOrganization: "CNCF"})
	require.NoError(t, err)
	certs, err := ts.ListCertifications(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "CNCF", certs[0].IssuingOrganization)

	_, err = ts.CreateLanguage(ctx, &store.Language{UserID: user.ID, Language: "German", Proficiency: "Native"})
	require.NoError(t, err)
	languages, err := ts.ListLanguages(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, languages, 1)

	prefs, err := ts.GetJobPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, prefs)

	_, err = ts.UpsertJobPreferences(ctx, &store.JobPreferences{UserID: user.ID, DesiredRoles: []string{"Backend"}, WorkMode: "remote"})
	require.NoError(t, err)
	_, err = ts.UpsertJobPreferences(ctx, &store.JobPreferences{UserID: user.ID, DesiredRoles: []string{"Platform"}, PreferredLocations: []string{"Berlin"}, WorkMode: "hybrid"})
	require.NoError(t, err)

	prefs, err = ts.GetJobPreferences(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, []string{"Platform"}, prefs.DesiredRoles)
	assert.Equal(t, []string{"Berlin"}, prefs.PreferredLocations)
	assert.Nil(t, prefs.TargetSkills)
	assert.Equal(t, "hybrid", prefs.WorkMode)
}
