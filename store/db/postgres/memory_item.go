package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pepavlin/agent-manager-sub000/store"
)

func (d *DB) CreateMemoryItem(ctx context.Context, create *store.MemoryItem) (*store.MemoryItem, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	create.UpdatedTs = create.CreatedTs

	contentBytes, err := json.Marshal(create.Content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal memory item content")
	}
	tagsBytes, err := json.Marshal(create.Tags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal memory item tags")
	}

	stmt := `INSERT INTO memory_item (id, project_id, user_id, type, title, content, status, source, confidence, tags, supersedes_id, vector_point_id, expires_ts, created_ts, updated_ts)
		VALUES (` + placeholders(15) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ProjectID, create.UserID, create.Type, create.Title,
		string(contentBytes), create.Status, create.Source, create.Confidence, string(tagsBytes),
		create.SupersedesID, create.VectorPointID, create.ExpiresTs, create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create memory item")
	}
	return create, nil
}

func (d *DB) ListMemoryItems(ctx context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if len(find.IDs) > 0 {
		where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.IDs))
	}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if len(find.Types) > 0 {
		list := make([]string, len(find.Types))
		for i, t := range find.Types {
			list[i] = string(t)
		}
		where, args = append(where, "type = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(list))
	}
	if len(find.Statuses) > 0 {
		list := make([]string, len(find.Statuses))
		for i, s := range find.Statuses {
			list[i] = string(s)
		}
		where, args = append(where, "status = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(list))
	}
	if len(find.ExcludeStatuses) > 0 {
		list := make([]string, len(find.ExcludeStatuses))
		for i, s := range find.ExcludeStatuses {
			list[i] = string(s)
		}
		where = append(where, "(status IS NULL OR status <> ALL("+placeholder(len(args)+1)+"))")
		args = append(args, pq.Array(list))
	}

	now := time.Now().Unix()
	if find.ExpiredOnly {
		where, args = append(where, "expires_ts IS NOT NULL AND expires_ts <= "+placeholder(len(args)+1)), append(args, now)
	} else if !find.IncludeExpired {
		where, args = append(where, "(expires_ts IS NULL OR expires_ts > "+placeholder(len(args)+1)+")"), append(args, now)
	}

	query := `SELECT id, project_id, user_id, type, title, content, status, source, confidence, tags, supersedes_id, vector_point_id, expires_ts, created_ts, updated_ts
		FROM memory_item WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`

	limit := find.Limit
	if limit > 0 {
		if limit > 1000 {
			limit = 1000
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if find.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory items")
	}
	defer rows.Close()

	list := []*store.MemoryItem{}
	for rows.Next() {
		item, err := scanMemoryItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanMemoryItem(rows *sql.Rows) (*store.MemoryItem, error) {
	var item store.MemoryItem
	var contentStr, tagsStr string
	if err := rows.Scan(
		&item.ID, &item.ProjectID, &item.UserID, &item.Type, &item.Title,
		&contentStr, &item.Status, &item.Source, &item.Confidence, &tagsStr,
		&item.SupersedesID, &item.VectorPointID, &item.ExpiresTs, &item.CreatedTs, &item.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan memory item")
	}
	if err := json.Unmarshal([]byte(contentStr), &item.Content); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal memory item content")
	}
	if err := json.Unmarshal([]byte(tagsStr), &item.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal memory item tags")
	}
	return &item, nil
}

func (d *DB) UpdateMemoryItem(ctx context.Context, update *store.UpdateMemoryItem) (*store.MemoryItem, error) {
	set, args := []string{}, []any{}
	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Content != nil {
		contentBytes, err := json.Marshal(update.Content)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal memory item content")
		}
		set, args = append(set, "content = "+placeholder(len(args)+1)), append(args, string(contentBytes))
	}
	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.Confidence != nil {
		set, args = append(set, "confidence = "+placeholder(len(args)+1)), append(args, *update.Confidence)
	}
	if update.Tags != nil {
		tagsBytes, err := json.Marshal(update.Tags)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal memory item tags")
		}
		set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, string(tagsBytes))
	}
	if update.ExpiresTs != nil {
		set, args = append(set, "expires_ts = "+placeholder(len(args)+1)), append(args, *update.ExpiresTs)
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, time.Now().Unix())
	args = append(args, update.ID)

	stmt := `UPDATE memory_item SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update memory item")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil
	}

	items, err := d.ListMemoryItems(ctx, &store.FindMemoryItem{ID: &update.ID, IncludeExpired: true})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (d *DB) DeleteMemoryItems(ctx context.Context, delete *store.DeleteMemoryItem) (int, error) {
	where, args := []string{}, []any{}
	if delete.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if len(delete.IDs) > 0 {
		where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(delete.IDs))
	}
	if len(where) == 0 {
		return 0, errors.New("refusing to delete memory items without a condition")
	}

	stmt := `DELETE FROM memory_item WHERE ` + strings.Join(where, " AND ")
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete memory items")
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
