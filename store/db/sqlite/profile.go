package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/store"
)

func (d *DB) CreateWorkExperience(ctx context.Context, create *store.WorkExperience) (*store.WorkExperience, error) {
	stmt := `
		INSERT INTO work_experience (id, user_id, title, company, location, description, start_date, end_date, is_current)
		VALUES (` + placeholders(9) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.Title, create.Company, create.Location, create.Description,
		create.StartDate, create.EndDate, create.IsCurrent,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create work experience")
	}
	return create, nil
}

func (d *DB) ListWorkExperiences(ctx context.Context, userID string) ([]*store.WorkExperience, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, title, company, location, description, start_date, end_date, is_current
		FROM work_experience
		WHERE user_id = ?
		ORDER BY start_date DESC, id ASC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list work experience")
	}
	defer rows.Close()

	list := []*store.WorkExperience{}
	for rows.Next() {
		var w store.WorkExperience
		if err := rows.Scan(&w.ID, &w.UserID, &w.Title, &w.Company, &w.Location, &w.Description, &w.StartDate, &w.EndDate, &w.IsCurrent); err != nil {
			return nil, errors.Wrap(err, "failed to scan work experience")
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}

func (d *DB) CreateEducation(ctx context.Context, create *store.Education) (*store.Education, error) {
	stmt := `
		INSERT INTO education (id, user_id, school, degree, field_of_study, start_date, end_date, gpa)
		VALUES (` + placeholders(8) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.School, create.Degree, create.FieldOfStudy, create.StartDate, create.EndDate, create.GPA,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create education")
	}
	return create, nil
}

func (d *DB) ListEducations(ctx context.Context, userID string) ([]*store.Education, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, school, degree, field_of_study, start_date, end_date, gpa
		FROM education
		WHERE user_id = ?
		ORDER BY end_date DESC, id ASC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list education")
	}
	defer rows.Close()

	list := []*store.Education{}
	for rows.Next() {
		var e store.Education
		if err := rows.Scan(&e.ID, &e.UserID, &e.School, &e.Degree, &e.FieldOfStudy, &e.StartDate, &e.EndDate, &e.GPA); err != nil {
			return nil, errors.Wrap(err, "failed to scan education")
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (d *DB) CreateCertification(ctx context.Context, create *store.Certification) (*store.Certification, error) {
	stmt := `
		INSERT INTO certifications (id, user_id, name, issuing_organization, issue_date)
		VALUES (` + placeholders(5) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.UserID, create.Name, create.IssuingOrganization, create.IssueDate); err != nil {
		return nil, errors.Wrap(err, "failed to create certification")
	}
	return create, nil
}

func (d *DB) ListCertifications(ctx context.Context, userID string) ([]*store.Certification, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, name, issuing_organization, issue_date
		FROM certifications
		WHERE user_id = ?
		ORDER BY issue_date DESC, id ASC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list certifications")
	}
	defer rows.Close()

	list := []*store.Certification{}
	for rows.Next() {
		var c store.Certification
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IssuingOrganization, &c.IssueDate); err != nil {
			return nil, errors.Wrap(err, "failed to scan certification")
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (d *DB) CreateLanguage(ctx context.Context, create *store.Language) (*store.Language, error) {
	stmt := `INSERT INTO languages (id, user_id, language, proficiency) VALUES (` + placeholders(4) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.UserID, create.Language, create.Proficiency); err != nil {
		return nil, errors.Wrap(err, "failed to create language")
	}
	return create, nil
}

func (d *DB) ListLanguages(ctx context.Context, userID string) ([]*store.Language, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, language, proficiency
		FROM languages
		WHERE user_id = ?
		ORDER BY language ASC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list languages")
	}
	defer rows.Close()

	list := []*store.Language{}
	for rows.Next() {
		var l store.Language
		if err := rows.Scan(&l.ID, &l.UserID, &l.Language, &l.Proficiency); err != nil {
			return nil, errors.Wrap(err, "failed to scan language")
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	stmt := `
		INSERT INTO projects (id, user_id, name, description, technologies, url, start_date, end_date)
		VALUES (` + placeholders(8) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.Name, create.Description, store.EncodeStringList(create.Technologies),
		create.URL, create.StartDate, create.EndDate,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	return create, nil
}

func (d *DB) ListProjects(ctx context.Context, userID string, limit int) ([]*store.Project, error) {
	query, args := `
		SELECT id, user_id, name, description, technologies, url, start_date, end_date
		FROM projects
		WHERE user_id = ?
		ORDER BY end_date DESC, id ASC`, []any{userID}
	if limit > 0 {
		query, args = query+" LIMIT ?", append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	defer rows.Close()

	list := []*store.Project{}
	for rows.Next() {
		var p store.Project
		var technologies string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &technologies, &p.URL, &p.StartDate, &p.EndDate); err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		p.Technologies = store.DecodeStringList(technologies)
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (d *DB) UpsertJobPreferences(ctx context.Context, upsert *store.JobPreferences) (*store.JobPreferences, error) {
	stmt := `
		INSERT INTO job_preferences (user_id, desired_roles, preferred_locations, target_skills, industries, work_mode, willing_to_relocate)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			desired_roles = EXCLUDED.desired_roles,
			preferred_locations = EXCLUDED.preferred_locations,
			target_skills = EXCLUDED.target_skills,
			industries = EXCLUDED.industries,
			work_mode = EXCLUDED.work_mode,
			willing_to_relocate = EXCLUDED.willing_to_relocate`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID,
		store.EncodeStringList(upsert.DesiredRoles),
		store.EncodeStringList(upsert.PreferredLocations),
		store.EncodeStringList(upsert.TargetSkills),
		store.EncodeStringList(upsert.Industries),
		upsert.WorkMode,
		upsert.WillingToRelocate,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert job preferences")
	}
	return upsert, nil
}

func (d *DB) GetJobPreferences(ctx context.Context, userID string) (*store.JobPreferences, error) {
	var p store.JobPreferences
	var roles, locations, skills, industries string
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, desired_roles, preferred_locations, target_skills, industries, work_mode, willing_to_relocate
		FROM job_preferences
		WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &roles, &locations, &skills, &industries, &p.WorkMode, &p.WillingToRelocate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get job preferences")
	}
	p.DesiredRoles = store.DecodeStringList(roles)
	p.PreferredLocations = store.DecodeStringList(locations)
	p.TargetSkills = store.DecodeStringList(skills)
	p.Industries = store.DecodeStringList(industries)
	return &p, nil
}
