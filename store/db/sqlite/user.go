package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `
		INSERT INTO users (id, email, full_name, headline, bio, location, skills, created_ts)
		VALUES (` + placeholders(8) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Email, create.FullName, create.Headline, create.Bio, create.Location, create.SkillsRaw, create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	create.Skills = store.DecodeStringList(create.SkillsRaw)
	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.StaleEmbeddingFor; v != nil {
		where, args = append(where, "(embedding IS NULL OR embedding = '' OR embedding_model <> ?)"), append(args, *v)
	}

	query := `
		SELECT id, email, full_name, headline, bio, location, skills, created_ts,
			embedding, embedding_model, embedding_updated_ts
		FROM users
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	if find.Limit > 0 {
		query, args = query+" LIMIT ?", append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		var embedding sql.NullString
		if err := rows.Scan(
			&user.ID, &user.Email, &user.FullName, &user.Headline, &user.Bio, &user.Location,
			&user.SkillsRaw, &user.CreatedTs,
			&embedding, &user.EmbeddingModel, &user.EmbeddingUpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		user.Skills = store.DecodeStringList(user.SkillsRaw)
		user.Embedding = store.DecodeVector(embedding.String)
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate users")
	}
	return list, nil
}

func (d *DB) UpdateUserEmbedding(ctx context.Context, update *store.UpdateEmbedding) error {
	stmt := `UPDATE users SET embedding = ?, embedding_model = ?, embedding_updated_ts = ? WHERE id = ?`
	result, err := d.db.ExecContext(ctx, stmt, store.EncodeVector(update.Embedding), update.Model, update.UpdatedTs, update.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to update embedding of user %s", update.ID)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Errorf("user %s not found", update.ID)
	}
	return nil
}
