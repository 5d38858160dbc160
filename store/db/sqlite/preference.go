package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreatePreference(ctx context.Context, create *store.Preference) (*store.Preference, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO preference (id, project_id, user_id, text, active, created_ts)
		VALUES (` + placeholders(6) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ProjectID, create.UserID, create.Text, create.Active, create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create preference")
	}
	return create, nil
}

func (d *DB) ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.Preference, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = ?"), append(args, *find.ProjectID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Active != nil {
		where, args = append(where, "active = ?"), append(args, *find.Active)
	}

	query := `SELECT id, project_id, user_id, text, active, created_ts
		FROM preference WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list preferences")
	}
	defer rows.Close()

	list := []*store.Preference{}
	for rows.Next() {
		var preference store.Preference
		if err := rows.Scan(
			&preference.ID, &preference.ProjectID, &preference.UserID,
			&preference.Text, &preference.Active, &preference.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan preference")
		}
		list = append(list, &preference)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
