package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
)

// PGIndex stores points in the vector_point table using the pgvector
// extension. Collections are rows sharing a collection name, so creating
// a collection is implicit on first upsert.
type PGIndex struct {
	db *sql.DB
}

var _ Index = (*PGIndex)(nil)

// NewPGIndex creates a pgvector-backed index over an existing connection.
func NewPGIndex(db *sql.DB) *PGIndex {
	return &PGIndex{db: db}
}

func (x *PGIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO vector_point (collection, id, embedding, payload, created_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id)
		DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload
	`
	now := time.Now().Unix()
	for _, point := range points {
		payload, err := json.Marshal(point.Payload)
		if err != nil {
			return errors.Wrap(err, "failed to marshal payload")
		}
		if _, err := tx.ExecContext(ctx, stmt,
			collection,
			point.ID,
			pgvector.NewVector(point.Vector),
			payload,
			now,
		); err != nil {
			return errors.Wrapf(err, "failed to upsert point %s", point.ID)
		}
	}

	return tx.Commit()
}

func (x *PGIndex) Search(ctx context.Context, collection string, vector []float32, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	where, args := filterClauses(collection, filter)

	args = append(args, pgvector.NewVector(vector))
	distanceExpr := fmt.Sprintf("embedding <=> $%d", len(args))
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, %s AS distance, payload
		FROM vector_point
		WHERE %s
		ORDER BY distance ASC
		LIMIT $%d
	`, distanceExpr, strings.Join(where, " AND "), len(args))

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search vector points")
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var hit Hit
		var distance float64
		var payload []byte
		if err := rows.Scan(&hit.ID, &distance, &payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector point")
		}
		// Cosine distance is in [0,2]; fold it into a [0,1] similarity.
		hit.Score = float32(1 - distance/2)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &hit.Payload); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal payload")
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (x *PGIndex) List(ctx context.Context, collection string, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	where, args := filterClauses(collection, filter)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, payload
		FROM vector_point
		WHERE %s
		ORDER BY created_ts DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list vector points")
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var hit Hit
		var payload []byte
		if err := rows.Scan(&hit.ID, &payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector point")
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &hit.Payload); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal payload")
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// filterClauses builds the WHERE fragments for a payload filter. Both the
// key and the value are bound as parameters so no filter content ever
// lands in the SQL text. Keys are ordered for a stable query shape.
func filterClauses(collection string, filter Filter) ([]string, []any) {
	where, args := []string{"collection = $1"}, []any{collection}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		args = append(args, key, fmt.Sprintf("%v", filter[key]))
		where = append(where, fmt.Sprintf("payload->>$%d = $%d", len(args)-1, len(args)))
	}
	return where, args
}

func (x *PGIndex) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.db.ExecContext(ctx,
		"DELETE FROM vector_point WHERE collection = $1 AND id = ANY($2)",
		collection, pq.Array(ids),
	)
	return errors.Wrap(err, "failed to delete vector points")
}
