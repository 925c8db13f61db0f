package savings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinoman/superapp/internal/platform/db"
)

// Repository encapsulates DB operations for the savings ledger.
type Repository interface {
	GetAccountByMember(ctx context.Context, memberID int64) (Account, error)
	ListTransactions(ctx context.Context, memberID int64, filters ListFilters) ([]Transaction, int, error)
	ListActiveAccounts(ctx context.Context) ([]Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	// MemberRef loads the identity fields needed for validation and
	// transfer descriptions. Missing members surface as pgx.ErrNoRows.
	MemberRef(ctx context.Context, memberID int64) (MemberRef, error)
	GetAccountForUpdate(ctx context.Context, memberID int64) (Account, error)
	CreateAccount(ctx context.Context, memberID int64) (Account, error)
	InsertTransaction(ctx context.Context, trx Transaction) (Transaction, error)
	UpdateAccountBalances(ctx context.Context, account Account) (Account, error)
}

// MemberRef is the slim member projection the ledger needs.
type MemberRef struct {
	ID           int64
	MemberNumber string
	FullName     string
	Active       bool
}

type repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db, now: time.Now}
}

const accountColumns = `id, member_id, account_number, pokok_balance, wajib_balance, sukarela_balance, total_balance, last_transaction_at, created_at, updated_at`

const transactionColumns = `id, code, account_id, member_id, type, category, amount, balance_before, balance_after, payment_method, description, reference, created_by, created_at`

func (r *repository) GetAccountByMember(ctx context.Context, memberID int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM savings_accounts WHERE member_id=$1`, memberID)
	return scanAccount(row)
}

func (r *repository) ListTransactions(ctx context.Context, memberID int64, filters ListFilters) ([]Transaction, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	offset := (filters.Page - 1) * filters.Limit

	var trxType, category any
	if filters.Type != nil {
		trxType = string(*filters.Type)
	}
	if filters.Category != nil {
		category = string(*filters.Category)
	}

	where := `WHERE member_id=$1 AND ($2::text IS NULL OR type=$2) AND ($3::text IS NULL OR category=$3)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM savings_transactions `+where, memberID, trxType, category).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM savings_transactions `+where+` ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`,
		memberID, trxType, category, filters.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, trx)
	}
	return out, total, rows.Err()
}

func (r *repository) ListActiveAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+prefixedAccountColumns("a")+`
FROM savings_accounts a JOIN members m ON m.id = a.member_id
WHERE m.status='ACTIVE' ORDER BY a.member_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, now: r.now})
	})
}

type txRepository struct {
	tx  pgx.Tx
	now func() time.Time
}

func (r *txRepository) MemberRef(ctx context.Context, memberID int64) (MemberRef, error) {
	var ref MemberRef
	var status string
	err := r.tx.QueryRow(ctx, `SELECT id, member_number, full_name, status FROM members WHERE id=$1`, memberID).
		Scan(&ref.ID, &ref.MemberNumber, &ref.FullName, &status)
	if err != nil {
		return MemberRef{}, err
	}
	ref.Active = status == "ACTIVE"
	return ref, nil
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, memberID int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM savings_accounts WHERE member_id=$1 FOR UPDATE`, memberID)
	return scanAccount(row)
}

// provisioningAttempts bounds retry on account number collisions.
const provisioningAttempts = 3

// CreateAccount provisions a zero-balance account. Concurrent provisioning of
// the same member loses the insert race on the member unique index and falls
// back to locking the winner's row, keeping the operation idempotent.
func (r *txRepository) CreateAccount(ctx context.Context, memberID int64) (Account, error) {
	var lastErr error
	for attempt := 0; attempt < provisioningAttempts; attempt++ {
		number := NewAccountNumber(r.now())
		row := r.tx.QueryRow(ctx, `INSERT INTO savings_accounts (member_id, account_number, pokok_balance, wajib_balance, sukarela_balance, total_balance)
VALUES ($1,$2,0,0,0,0) RETURNING `+accountColumns, memberID, number)
		account, err := scanAccount(row)
		if err == nil {
			return account, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "uq_savings_accounts_member" {
				return r.GetAccountForUpdate(ctx, memberID)
			}
			lastErr = err
			continue
		}
		return Account{}, err
	}
	return Account{}, fmt.Errorf("savings: provision account: %w", lastErr)
}

// transactionCodeAttempts bounds retry on transaction code collisions.
const transactionCodeAttempts = 3

func (r *txRepository) InsertTransaction(ctx context.Context, trx Transaction) (Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < transactionCodeAttempts; attempt++ {
		code := trx.Code
		if code == "" || attempt > 0 {
			code = NewTransactionCode(r.now())
		}
		row := r.tx.QueryRow(ctx, `INSERT INTO savings_transactions (code, account_id, member_id, type, category, amount, balance_before, balance_after, payment_method, description, reference, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING `+transactionColumns,
			code, trx.AccountID, trx.MemberID, trx.Type, trx.Category, trx.Amount, trx.BalanceBefore, trx.BalanceAfter,
			trx.PaymentMethod, trx.Description, trx.Reference, trx.CreatedBy)
		inserted, err := scanTransaction(row)
		if err == nil {
			return inserted, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_savings_transactions_code" {
			lastErr = err
			continue
		}
		return Transaction{}, err
	}
	return Transaction{}, fmt.Errorf("savings: generate transaction code: %w", lastErr)
}

func (r *txRepository) UpdateAccountBalances(ctx context.Context, account Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `UPDATE savings_accounts
SET pokok_balance=$2, wajib_balance=$3, sukarela_balance=$4, total_balance=$5, last_transaction_at=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns,
		account.ID, account.PokokBalance, account.WajibBalance, account.SukarelaBalance, account.TotalBalance, account.LastTransactionAt)
	return scanAccount(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.MemberID, &a.AccountNumber, &a.PokokBalance, &a.WajibBalance, &a.SukarelaBalance, &a.TotalBalance, &a.LastTransactionAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Code, &t.AccountID, &t.MemberID, &t.Type, &t.Category, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.PaymentMethod, &t.Description, &t.Reference, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func prefixedAccountColumns(alias string) string {
	return alias + ".id, " + alias + ".member_id, " + alias + ".account_number, " + alias + ".pokok_balance, " + alias + ".wajib_balance, " + alias + ".sukarela_balance, " + alias + ".total_balance, " + alias + ".last_transaction_at, " + alias + ".created_at, " + alias + ".updated_at"
}
