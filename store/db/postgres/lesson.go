package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreateLesson(ctx context.Context, create *store.Lesson) (*store.Lesson, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO lesson (id, project_id, user_id, text, created_ts)
		VALUES (` + placeholders(5) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ProjectID, create.UserID, create.Text, create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create lesson")
	}
	return create, nil
}

func (d *DB) ListLessons(ctx context.Context, find *store.FindLesson) ([]*store.Lesson, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, project_id, user_id, text, created_ts
		FROM lesson WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lessons")
	}
	defer rows.Close()

	list := []*store.Lesson{}
	for rows.Next() {
		var lesson store.Lesson
		if err := rows.Scan(
			&lesson.ID, &lesson.ProjectID, &lesson.UserID, &lesson.Text, &lesson.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan lesson")
		}
		list = append(list, &lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
