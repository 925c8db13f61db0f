package savings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category enumerates the three savings balances every account tracks.
type Category string

const (
	CategoryPokok    Category = "POKOK"
	CategoryWajib    Category = "WAJIB"
	CategorySukarela Category = "SUKARELA"
)

// Valid reports whether the category is one of the known three.
func (c Category) Valid() bool {
	switch c {
	case CategoryPokok, CategoryWajib, CategorySukarela:
		return true
	}
	return false
}

// TransactionType enumerates posting kinds.
type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeSHU        TransactionType = "SHU"
)

// Valid reports whether the type is a known posting kind.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypeSHU:
		return true
	}
	return false
}

// Credits reports whether the type increases the affected balance.
// SHU is a profit-share payout and behaves like a deposit.
func (t TransactionType) Credits() bool {
	return t == TypeDeposit || t == TypeSHU
}

// Account holds the per-member savings balances. TotalBalance is never
// written independently; it is recomputed from the three categories.
type Account struct {
	ID                int64
	MemberID          int64
	AccountNumber     string
	PokokBalance      decimal.Decimal
	WajibBalance      decimal.Decimal
	SukarelaBalance   decimal.Decimal
	TotalBalance      decimal.Decimal
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CategoryBalance returns the balance of one category.
func (a Account) CategoryBalance(c Category) decimal.Decimal {
	switch c {
	case CategoryPokok:
		return a.PokokBalance
	case CategoryWajib:
		return a.WajibBalance
	case CategorySukarela:
		return a.SukarelaBalance
	}
	return decimal.Zero
}

// SetCategoryBalance replaces one category balance and recomputes the total.
func (a *Account) SetCategoryBalance(c Category, v decimal.Decimal) {
	switch c {
	case CategoryPokok:
		a.PokokBalance = v
	case CategoryWajib:
		a.WajibBalance = v
	case CategorySukarela:
		a.SukarelaBalance = v
	}
	a.TotalBalance = a.PokokBalance.Add(a.WajibBalance).Add(a.SukarelaBalance)
}

// Transaction is one append-only ledger record. BalanceBefore/BalanceAfter
// snapshot the affected category balance, not the account total.
type Transaction struct {
	ID            int64
	Code          string
	AccountID     int64
	MemberID      int64
	Type          TransactionType
	Category      Category
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	PaymentMethod string
	Description   string
	Reference     uuid.UUID
	CreatedBy     int64
	CreatedAt     time.Time
}
