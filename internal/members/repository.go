package members

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinoman/superapp/internal/shared"
)

// Repository encapsulates DB operations for members.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	List(ctx context.Context, filters ListFilters) ([]Member, int, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Member, error)
	SetStatus(ctx context.Context, id int64, status MemberStatus) error
}

type repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db, now: time.Now}
}

const memberColumns = `id, member_number, full_name, email, phone, address, status, joined_at, created_at, updated_at`

// memberNumberAttempts bounds retry on member_number collisions; the suffix is
// a random 4-digit value so retrying with a fresh one resolves the conflict.
const memberNumberAttempts = 3

func (r *repository) Create(ctx context.Context, in CreateInput) (Member, error) {
	var lastErr error
	for attempt := 0; attempt < memberNumberAttempts; attempt++ {
		number := newMemberNumber(r.now())
		var m Member
		err := r.db.QueryRow(ctx, `INSERT INTO members (member_number, full_name, email, phone, address, status, joined_at)
VALUES ($1,$2,$3,$4,$5,'ACTIVE',NOW()) RETURNING `+memberColumns, number, in.FullName, in.Email, in.Phone, in.Address).
			Scan(&m.ID, &m.MemberNumber, &m.FullName, &m.Email, &m.Phone, &m.Address, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
		if err == nil {
			return m, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			lastErr = err
			continue
		}
		return Member{}, err
	}
	return Member{}, fmt.Errorf("members: generate member number: %w", lastErr)
}

func (r *repository) Get(ctx context.Context, id int64) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id).
		Scan(&m.ID, &m.MemberNumber, &m.FullName, &m.Email, &m.Phone, &m.Address, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Member, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	offset := (filters.Page - 1) * filters.Limit

	where := `WHERE ($1 = '' OR full_name ILIKE '%'||$1||'%' OR member_number ILIKE '%'||$1||'%')
AND ($2::text IS NULL OR status = $2)`
	var status any
	if filters.Status != nil {
		status = string(*filters.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM members `+where, filters.Search, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members `+where+` ORDER BY member_number ASC LIMIT $3 OFFSET $4`,
		filters.Search, status, filters.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.MemberNumber, &m.FullName, &m.Email, &m.Phone, &m.Address, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, id int64, in UpdateInput) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `UPDATE members SET full_name=$2, email=$3, phone=$4, address=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+memberColumns, id, in.FullName, in.Email, in.Phone, in.Address).
		Scan(&m.ID, &m.MemberNumber, &m.FullName, &m.Email, &m.Phone, &m.Address, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status MemberStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE members SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// newMemberNumber builds identifiers of the form SIN-YYYYMM-NNNN.
func newMemberNumber(now time.Time) string {
	return fmt.Sprintf("SIN-%s-%04d", now.Format("200601"), rand.Intn(10000))
}
