package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/store"
)

func (d *DB) CreateJob(ctx context.Context, create *store.Job) (*store.Job, error) {
	fields := []string{"id", "title", "company", "location", "description", "remote", "hybrid", "category", "salary_min", "salary_max", "requirements", "created_ts"}
	args := []any{create.ID, create.Title, create.Company, create.Location, create.Description, create.Remote, create.Hybrid, create.Category, nullInt(create.SalaryMin), nullInt(create.SalaryMax), store.EncodeStringList(create.Requirements), create.CreatedTs}

	stmt := "INSERT INTO jobs (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to create job")
	}
	return create, nil
}

func (d *DB) ListJobs(ctx context.Context, find *store.FindJob) ([]*store.Job, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDs) > 0 {
		where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.IDs))
	}
	if find.Search != "" {
		p := placeholder(len(args) + 1)
		where, args = append(where, "(title ILIKE "+p+" OR company ILIKE "+p+" OR description ILIKE "+p+")"), append(args, "%"+find.Search+"%")
	}
	if v := find.CreatedAfter; v != nil {
		where, args = append(where, "created_ts > "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Remote; v != nil {
		where, args = append(where, "remote = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Category; v != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ExcludeAppliedBy; v != nil {
		where, args = append(where, "NOT EXISTS (SELECT 1 FROM applications a WHERE a.job_id = jobs.id AND a.user_id = "+placeholder(len(args)+1)+")"), append(args, *v)
	}
	if v := find.StaleEmbeddingFor; v != nil {
		where, args = append(where, "(embedding IS NULL OR embedding_model <> "+placeholder(len(args)+1)+")"), append(args, *v)
	}

	query := `
		SELECT id, title, company, location, description, remote, hybrid, category,
			salary_min, salary_max, requirements, created_ts,
			embedding, embedding_model, embedding_updated_ts
		FROM jobs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id ASC`
	if find.Limit > 0 {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	list := []*store.Job{}
	for rows.Next() {
		var job store.Job
		var salaryMin, salaryMax sql.NullInt64
		var requirements string
		var embedding *pgvector.Vector
		if err := rows.Scan(
			&job.ID, &job.Title, &job.Company, &job.Location, &job.Description,
			&job.Remote, &job.Hybrid, &job.Category,
			&salaryMin, &salaryMax, &requirements, &job.CreatedTs,
			&embedding, &job.EmbeddingModel, &job.EmbeddingUpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		job.SalaryMin = intPtr(salaryMin)
		job.SalaryMax = intPtr(salaryMax)
		job.Requirements = store.DecodeStringList(requirements)
		if embedding != nil {
			job.Embedding = embedding.Slice()
		}
		list = append(list, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate jobs")
	}
	return list, nil
}

func (d *DB) UpdateJobEmbedding(ctx context.Context, update *store.UpdateEmbedding) error {
	stmt := `UPDATE jobs SET embedding = $1, embedding_model = $2, embedding_updated_ts = $3 WHERE id = $4`
	result, err := d.db.ExecContext(ctx, stmt, pgvector.NewVector(update.Embedding), update.Model, update.UpdatedTs, update.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to update embedding of job %s", update.ID)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Errorf("job %s not found", update.ID)
	}
	return nil
}

func (d *DB) DeleteJob(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return errors.Wrapf(err, "failed to delete job %s", id)
	}
	return nil
}

func (d *DB) CreateApplication(ctx context.Context, create *store.Application) (*store.Application, error) {
	stmt := `
		INSERT INTO applications (id, user_id, job_id, status, created_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (user_id, job_id) DO UPDATE SET status = EXCLUDED.status`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.UserID, create.JobID, create.Status, create.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create application")
	}
	return create, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
