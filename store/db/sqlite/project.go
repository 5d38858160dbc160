package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	create.UpdatedTs = create.CreatedTs

	stmt := `INSERT INTO project (id, name, role, brief, created_ts, updated_ts)
		VALUES (` + placeholders(6) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Name, create.Role, create.Brief, create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	return create, nil
}

func (d *DB) GetProject(ctx context.Context, find *store.FindProject) (*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}

	query := `SELECT id, name, role, brief, created_ts, updated_ts
		FROM project WHERE ` + strings.Join(where, " AND ") + ` LIMIT 1`

	var project store.Project
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&project.ID, &project.Name, &project.Role, &project.Brief, &project.CreatedTs, &project.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}
	return &project, nil
}

func (d *DB) UpdateProject(ctx context.Context, update *store.UpdateProject) (*store.Project, error) {
	set, args := []string{}, []any{}
	if update.Name != nil {
		set, args = append(set, "name = ?"), append(args, *update.Name)
	}
	if update.Brief != nil {
		set, args = append(set, "brief = ?"), append(args, *update.Brief)
	}
	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, update.ID)

	stmt := `UPDATE project SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update project")
	}
	return d.GetProject(ctx, &store.FindProject{ID: &update.ID})
}
