package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one row of the audit timeline.
type Entry struct {
	ID         int64
	ActorID    int64
	Action     string
	Entity     string
	EntityID   string
	Meta       map[string]any
	OccurredAt time.Time
}

// ListFilters narrows the timeline query.
type ListFilters struct {
	Page    int
	Limit   int
	ActorID *int64
	Action  string
	Entity  string
	From    *time.Time
	To      *time.Time
}

// Repository reads the audit_logs table. Writes go through the shared audit
// logger so every module records entries the same way.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Entry, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Entry, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	offset := (filters.Page - 1) * filters.Limit

	var actorID, action, entity, from, to any
	if filters.ActorID != nil {
		actorID = *filters.ActorID
	}
	if filters.Action != "" {
		action = filters.Action
	}
	if filters.Entity != "" {
		entity = filters.Entity
	}
	if filters.From != nil {
		from = *filters.From
	}
	if filters.To != nil {
		to = *filters.To
	}

	where := `WHERE ($1::bigint IS NULL OR actor_id=$1)
AND ($2::text IS NULL OR action=$2)
AND ($3::text IS NULL OR entity=$3)
AND ($4::timestamptz IS NULL OR occurred_at >= $4)
AND ($5::timestamptz IS NULL OR occurred_at <= $5)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM audit_logs `+where, actorID, action, entity, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs `+where+` ORDER BY occurred_at DESC, id DESC LIMIT $6 OFFSET $7`,
		actorID, action, entity, from, to, filters.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.OccurredAt); err != nil {
			return nil, 0, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, entry)
	}
	return out, total, rows.Err()
}
