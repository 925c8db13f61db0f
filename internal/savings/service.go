package savings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sinoman/superapp/internal/shared"
)

// AuditPort records postings in the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posting outcomes.
type MetricsPort interface {
	ObservePosting(postingType, outcome string)
}

// Service is the ledger poster: it validates a posting request, computes the
// resulting balances and persists transaction record(s) plus the updated
// account state as one unit of work.
//
// Concurrency: the account row(s) are locked with SELECT ... FOR UPDATE for
// the duration of the posting transaction, so concurrent postings against the
// same member serialize instead of losing updates. For transfers both rows
// are locked in ascending member-id order to avoid deadlocks.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
	reads   singleflight.Group
}

// NewService constructs a new Service.
func NewService(repo Repository, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post executes one validated ledger operation. All validation errors are
// returned before any write; after that, either every record and balance
// mutation commits or none of them do.
func (s *Service) Post(ctx context.Context, in PostingInput) (PostingResult, error) {
	if err := in.Validate(); err != nil {
		s.observe(in.Type, "rejected")
		return PostingResult{}, err
	}

	var result PostingResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.Type == TypeTransfer {
			return s.postTransfer(ctx, tx, in, &result)
		}
		return s.postSingle(ctx, tx, in, &result)
	})
	if err != nil {
		if isPostingRejection(err) {
			s.observe(in.Type, "rejected")
		} else {
			s.observe(in.Type, "error")
		}
		return PostingResult{}, err
	}

	s.observe(in.Type, "ok")
	s.recordAudit(ctx, in, result)
	return result, nil
}

// PostSHU posts a profit-share payout into the member's sukarela balance.
func (s *Service) PostSHU(ctx context.Context, memberID int64, amount decimal.Decimal, period string, createdBy int64) (PostingResult, error) {
	return s.Post(ctx, PostingInput{
		MemberID:      memberID,
		Type:          TypeSHU,
		Category:      CategorySukarela,
		Amount:        amount,
		PaymentMethod: "internal",
		Description:   fmt.Sprintf("Pembagian SHU periode %s", period),
		CreatedBy:     createdBy,
	})
}

// GetAccount reads one member's account. Concurrent identical reads collapse
// into a single storage round-trip.
func (s *Service) GetAccount(ctx context.Context, memberID int64) (Account, error) {
	v, err, _ := s.reads.Do(fmt.Sprintf("account:%d", memberID), func() (any, error) {
		return s.repo.GetAccountByMember(ctx, memberID)
	})
	if err != nil {
		return Account{}, err
	}
	return v.(Account), nil
}

// ListTransactions returns a page of a member's ledger history.
func (s *Service) ListTransactions(ctx context.Context, memberID int64, filters ListFilters) ([]Transaction, int, error) {
	return s.repo.ListTransactions(ctx, memberID, filters)
}

// ListActiveAccounts returns every account belonging to an active member.
func (s *Service) ListActiveAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListActiveAccounts(ctx)
}

func (s *Service) postSingle(ctx context.Context, tx TxRepository, in PostingInput, result *PostingResult) error {
	if _, err := s.requireMember(ctx, tx, in.MemberID, ErrAccountNotFound); err != nil {
		return err
	}

	account, err := s.loadOrProvision(ctx, tx, in.MemberID)
	if err != nil {
		return err
	}

	trx, updated, err := s.applyPosting(ctx, tx, account, in.Type, in.Category, in.Amount, in.PaymentMethod, s.describe(in), uuid.Nil, in.CreatedBy)
	if err != nil {
		return err
	}

	result.Account = updated
	result.Transactions = []Transaction{trx}
	return nil
}

func (s *Service) postTransfer(ctx context.Context, tx TxRepository, in PostingInput, result *PostingResult) error {
	targetID := *in.TargetMemberID

	source, err := s.requireMember(ctx, tx, in.MemberID, ErrAccountNotFound)
	if err != nil {
		return err
	}
	target, err := s.requireMember(ctx, tx, targetID, ErrTargetNotFound)
	if err != nil {
		return err
	}

	// Lock in ascending member-id order so two opposing transfers cannot
	// deadlock. The source may be lazily provisioned; the target must exist.
	var sourceAccount, targetAccount Account
	load := func(memberID int64) (Account, error) {
		if memberID == in.MemberID {
			return s.loadOrProvision(ctx, tx, memberID)
		}
		account, err := tx.GetAccountForUpdate(ctx, memberID)
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrTargetNotFound
		}
		return account, err
	}
	first, second := in.MemberID, targetID
	if targetID < in.MemberID {
		first, second = targetID, in.MemberID
	}
	firstAccount, err := load(first)
	if err != nil {
		return err
	}
	secondAccount, err := load(second)
	if err != nil {
		return err
	}
	if first == in.MemberID {
		sourceAccount, targetAccount = firstAccount, secondAccount
	} else {
		sourceAccount, targetAccount = secondAccount, firstAccount
	}

	reference := uuid.New()

	debitDescription := in.Description
	if strings.TrimSpace(debitDescription) == "" {
		debitDescription = fmt.Sprintf("Transfer %s ke %s", shared.FormatRupiah(in.Amount), target.MemberNumber)
	}
	debit, updatedSource, err := s.applyPosting(ctx, tx, sourceAccount, TypeTransfer, in.Category, in.Amount, in.PaymentMethod, debitDescription, reference, in.CreatedBy)
	if err != nil {
		return err
	}

	creditDescription := fmt.Sprintf("Transfer %s dari %s (%s)", shared.FormatRupiah(in.Amount), source.MemberNumber, source.FullName)
	credit, updatedTarget, err := s.applyPosting(ctx, tx, targetAccount, TypeDeposit, in.Category, in.Amount, in.PaymentMethod, creditDescription, reference, in.CreatedBy)
	if err != nil {
		return err
	}

	result.Account = updatedSource
	result.TargetAccount = &updatedTarget
	result.Transactions = []Transaction{debit, credit}
	return nil
}

// applyPosting computes the balance movement for one leg, writes the ledger
// record first and the balance update second, all inside the caller's tx.
func (s *Service) applyPosting(ctx context.Context, tx TxRepository, account Account, trxType TransactionType, category Category, amount decimal.Decimal, paymentMethod, description string, reference uuid.UUID, createdBy int64) (Transaction, Account, error) {
	before := account.CategoryBalance(category)

	var after decimal.Decimal
	if trxType.Credits() {
		after = before.Add(amount)
	} else {
		if before.LessThan(amount) {
			return Transaction{}, Account{}, ErrInsufficientFunds
		}
		after = before.Sub(amount)
	}

	now := s.now()
	trx, err := tx.InsertTransaction(ctx, Transaction{
		Code:          NewTransactionCode(now),
		AccountID:     account.ID,
		MemberID:      account.MemberID,
		Type:          trxType,
		Category:      category,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		PaymentMethod: paymentMethod,
		Description:   description,
		Reference:     reference,
		CreatedBy:     createdBy,
	})
	if err != nil {
		return Transaction{}, Account{}, err
	}

	account.SetCategoryBalance(category, after)
	account.LastTransactionAt = &now
	updated, err := tx.UpdateAccountBalances(ctx, account)
	if err != nil {
		return Transaction{}, Account{}, err
	}
	return trx, updated, nil
}

func (s *Service) loadOrProvision(ctx context.Context, tx TxRepository, memberID int64) (Account, error) {
	account, err := tx.GetAccountForUpdate(ctx, memberID)
	if errors.Is(err, ErrAccountNotFound) {
		// First posting for this member: provision a zero-balance account.
		return tx.CreateAccount(ctx, memberID)
	}
	return account, err
}

func (s *Service) requireMember(ctx context.Context, tx TxRepository, memberID int64, missing error) (MemberRef, error) {
	ref, err := tx.MemberRef(ctx, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRef{}, missing
		}
		return MemberRef{}, err
	}
	if !ref.Active {
		return MemberRef{}, ErrMemberInactive
	}
	return ref, nil
}

func (s *Service) describe(in PostingInput) string {
	if strings.TrimSpace(in.Description) != "" {
		return in.Description
	}
	label := strings.ToLower(string(in.Category))
	switch in.Type {
	case TypeWithdrawal:
		return fmt.Sprintf("Penarikan simpanan %s", label)
	case TypeSHU:
		return "Pembagian SHU"
	default:
		return fmt.Sprintf("Setoran simpanan %s", label)
	}
}

func (s *Service) recordAudit(ctx context.Context, in PostingInput, result PostingResult) {
	if s.audit == nil {
		return
	}
	codes := make([]string, 0, len(result.Transactions))
	for _, trx := range result.Transactions {
		codes = append(codes, trx.Code)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.CreatedBy,
		Action:   "savings.post",
		Entity:   "savings_account",
		EntityID: fmt.Sprintf("%d", result.Account.ID),
		Meta: map[string]any{
			"member_id": in.MemberID,
			"type":      string(in.Type),
			"category":  string(in.Category),
			"amount":    in.Amount.String(),
			"codes":     codes,
		},
		At: s.now(),
	})
}

func (s *Service) observe(trxType TransactionType, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObservePosting(strings.ToLower(string(trxType)), outcome)
}

func isPostingRejection(err error) bool {
	for _, rejection := range []error{
		ErrInvalidAmount, ErrAccountNotFound, ErrInsufficientFunds,
		ErrForbiddenWithdrawal, ErrTargetNotFound, ErrSelfTransfer,
		ErrMemberInactive, ErrInvalidCategory, ErrInvalidType,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
