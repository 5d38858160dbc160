package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreateToolCall(ctx context.Context, create *store.ToolCall) (*store.ToolCall, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	create.UpdatedTs = create.CreatedTs
	if create.Status == "" {
		create.Status = store.ToolCallStatusPending
	}

	stmt := `INSERT INTO tool_call (id, project_id, thread_id, tool_name, arguments, requires_approval, risk, status, result, tools_snapshot, created_ts, updated_ts)
		VALUES (` + placeholders(12) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ProjectID, create.ThreadID, create.ToolName, create.Arguments,
		create.RequiresApproval, create.Risk, create.Status, create.Result, create.ToolsSnapshot,
		create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create tool call")
	}
	return create, nil
}

func (d *DB) GetToolCall(ctx context.Context, find *store.FindToolCall) (*store.ToolCall, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.ThreadID != nil {
		where, args = append(where, "thread_id = ?"), append(args, *find.ThreadID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT id, project_id, thread_id, tool_name, arguments, requires_approval, risk, status, result, tools_snapshot, created_ts, updated_ts
		FROM tool_call WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC LIMIT 1`

	var toolCall store.ToolCall
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&toolCall.ID, &toolCall.ProjectID, &toolCall.ThreadID, &toolCall.ToolName, &toolCall.Arguments,
		&toolCall.RequiresApproval, &toolCall.Risk, &toolCall.Status, &toolCall.Result, &toolCall.ToolsSnapshot,
		&toolCall.CreatedTs, &toolCall.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tool call")
	}
	return &toolCall, nil
}

func (d *DB) UpdateToolCall(ctx context.Context, update *store.UpdateToolCall) (*store.ToolCall, error) {
	set, args := []string{}, []any{}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	if update.Result != nil {
		set, args = append(set, "result = ?"), append(args, *update.Result)
	}
	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, update.ID)

	stmt := `UPDATE tool_call SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update tool call")
	}
	return d.GetToolCall(ctx, &store.FindToolCall{ID: &update.ID})
}
