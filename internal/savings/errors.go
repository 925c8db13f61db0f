package savings

import "errors"

// Posting failures. Each maps to a distinct client-facing message; none of
// them may collapse into a generic error at the HTTP layer.
var (
	// ErrInvalidAmount rejects zero or negative amounts before any side effect.
	ErrInvalidAmount = errors.New("savings: amount must be positive")

	// ErrAccountNotFound indicates the member has no account and lazy
	// provisioning was not applicable (reads, transfer targets).
	ErrAccountNotFound = errors.New("savings: account not found")

	// ErrInsufficientFunds indicates a withdrawal or transfer exceeds the
	// category balance.
	ErrInsufficientFunds = errors.New("savings: insufficient balance")

	// ErrForbiddenWithdrawal rejects any draw-down of the pokok category,
	// regardless of balance.
	ErrForbiddenWithdrawal = errors.New("savings: pokok savings cannot be withdrawn")

	// ErrTargetNotFound indicates the transfer destination has no account.
	ErrTargetNotFound = errors.New("savings: transfer target account not found")

	// ErrSelfTransfer rejects transfers where source and destination match.
	ErrSelfTransfer = errors.New("savings: cannot transfer to the same member")

	// ErrMemberInactive blocks postings to deactivated members.
	ErrMemberInactive = errors.New("savings: member is inactive")

	// ErrInvalidCategory rejects unknown savings categories.
	ErrInvalidCategory = errors.New("savings: unknown savings category")

	// ErrInvalidType rejects unknown posting types.
	ErrInvalidType = errors.New("savings: unknown posting type")
)
