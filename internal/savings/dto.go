package savings

import (
	"github.com/shopspring/decimal"
)

// PostingInput groups fields required to post one ledger operation.
type PostingInput struct {
	MemberID       int64
	Type           TransactionType
	Category       Category
	Amount         decimal.Decimal
	PaymentMethod  string
	Description    string
	TargetMemberID *int64
	CreatedBy      int64
}

// Validate enforces the fail-fast rules that need no storage access.
// Balance checks happen later, under the account row lock.
func (in PostingInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !in.Type.Credits() && in.Category == CategoryPokok {
		// Pokok is the non-withdrawable membership deposit; transfers draw
		// down the source like a withdrawal so the same rule applies.
		return ErrForbiddenWithdrawal
	}
	if in.Type == TypeTransfer {
		if in.TargetMemberID == nil {
			return ErrTargetNotFound
		}
		if *in.TargetMemberID == in.MemberID {
			return ErrSelfTransfer
		}
	}
	return nil
}

// PostingResult reports the outcome of a successful posting.
type PostingResult struct {
	Account       Account
	TargetAccount *Account
	Transactions  []Transaction
}

// ListFilters narrows transaction listings.
type ListFilters struct {
	Page     int
	Limit    int
	Type     *TransactionType
	Category *Category
}
