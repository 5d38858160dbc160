package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO audit_log (id, project_id, thread_id, user_id, action, mode, tool_name, source, payload, created_ts)
		VALUES (` + placeholders(10) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ProjectID, create.ThreadID, create.UserID, create.Action,
		create.Mode, create.ToolName, create.Source, create.Payload, create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create audit log")
	}
	return create, nil
}

func (d *DB) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
	}
	if find.ThreadID != nil {
		where, args = append(where, "thread_id = "+placeholder(len(args)+1)), append(args, *find.ThreadID)
	}

	query := `SELECT id, project_id, thread_id, user_id, action, mode, tool_name, source, payload, created_ts
		FROM audit_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit logs")
	}
	defer rows.Close()

	list := []*store.AuditLog{}
	for rows.Next() {
		var entry store.AuditLog
		if err := rows.Scan(
			&entry.ID, &entry.ProjectID, &entry.ThreadID, &entry.UserID, &entry.Action,
			&entry.Mode, &entry.ToolName, &entry.Source, &entry.Payload, &entry.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit log")
		}
		list = append(list, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
