package savings

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinoman/superapp/internal/shared"
)

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

// fakeRepo is an in-memory Repository. WithTx snapshots state before running
// the callback and restores it on error, mirroring a rollback.
type fakeRepo struct {
	members       map[int64]MemberRef
	accounts      map[int64]Account
	transactions  []Transaction
	nextAccountID int64
	nextTrxID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		members:  make(map[int64]MemberRef),
		accounts: make(map[int64]Account),
	}
}

func (f *fakeRepo) addMember(id int64, number, name string, active bool) {
	f.members[id] = MemberRef{ID: id, MemberNumber: number, FullName: name, Active: active}
}

func (f *fakeRepo) GetAccountByMember(_ context.Context, memberID int64) (Account, error) {
	account, ok := f.accounts[memberID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeRepo) ListTransactions(_ context.Context, memberID int64, _ ListFilters) ([]Transaction, int, error) {
	var out []Transaction
	for _, trx := range f.transactions {
		if trx.MemberID == memberID {
			out = append(out, trx)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListActiveAccounts(_ context.Context) ([]Account, error) {
	var out []Account
	for memberID, account := range f.accounts {
		if ref, ok := f.members[memberID]; ok && ref.Active {
			out = append(out, account)
		}
	}
	return out, nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshotAccounts := make(map[int64]Account, len(f.accounts))
	for k, v := range f.accounts {
		snapshotAccounts[k] = v
	}
	snapshotTrx := append([]Transaction(nil), f.transactions...)
	snapshotAccountID, snapshotTrxID := f.nextAccountID, f.nextTrxID

	if err := fn(ctx, &fakeTx{repo: f}); err != nil {
		f.accounts = snapshotAccounts
		f.transactions = snapshotTrx
		f.nextAccountID, f.nextTrxID = snapshotAccountID, snapshotTrxID
		return err
	}
	return nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (f *fakeTx) MemberRef(_ context.Context, memberID int64) (MemberRef, error) {
	ref, ok := f.repo.members[memberID]
	if !ok {
		return MemberRef{}, pgx.ErrNoRows
	}
	return ref, nil
}

func (f *fakeTx) GetAccountForUpdate(_ context.Context, memberID int64) (Account, error) {
	account, ok := f.repo.accounts[memberID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeTx) CreateAccount(_ context.Context, memberID int64) (Account, error) {
	f.repo.nextAccountID++
	account := Account{
		ID:            f.repo.nextAccountID,
		MemberID:      memberID,
		AccountNumber: NewAccountNumber(time.Now()),
		CreatedAt:     time.Now(),
	}
	f.repo.accounts[memberID] = account
	return account, nil
}

func (f *fakeTx) InsertTransaction(_ context.Context, trx Transaction) (Transaction, error) {
	f.repo.nextTrxID++
	trx.ID = f.repo.nextTrxID
	trx.CreatedAt = time.Now()
	f.repo.transactions = append(f.repo.transactions, trx)
	return trx, nil
}

func (f *fakeTx) UpdateAccountBalances(_ context.Context, account Account) (Account, error) {
	f.repo.accounts[account.MemberID] = account
	return account, nil
}

type auditRecorder struct {
	logs []shared.AuditLog
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type metricsRecorder struct {
	observed []string
}

func (m *metricsRecorder) ObservePosting(postingType, outcome string) {
	m.observed = append(m.observed, postingType+":"+outcome)
}

func newTestService(repo *fakeRepo) (*Service, *auditRecorder, *metricsRecorder) {
	audit := &auditRecorder{}
	metrics := &metricsRecorder{}
	return NewService(repo, audit, metrics), audit, metrics
}

func TestPostDepositProvisionsAccount(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, audit, metrics := newTestService(repo)

	result, err := service.Post(context.Background(), PostingInput{
		MemberID:      1,
		Type:          TypeDeposit,
		Category:      CategorySukarela,
		Amount:        amount(t, "100000"),
		PaymentMethod: "cash",
		CreatedBy:     9,
	})
	require.NoError(t, err)

	assert.True(t, result.Account.SukarelaBalance.Equal(amount(t, "100000")))
	assert.True(t, result.Account.TotalBalance.Equal(amount(t, "100000")))
	assert.True(t, strings.HasPrefix(result.Account.AccountNumber, "SAV-"))

	require.Len(t, result.Transactions, 1)
	trx := result.Transactions[0]
	assert.True(t, strings.HasPrefix(trx.Code, "TRX-"))
	assert.True(t, trx.BalanceBefore.IsZero())
	assert.True(t, trx.BalanceAfter.Equal(amount(t, "100000")))
	assert.Equal(t, "Setoran simpanan sukarela", trx.Description)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "savings.post", audit.logs[0].Action)
	assert.Equal(t, []string{"deposit:ok"}, metrics.observed)
}

func TestPostTotalIsSumOfCategories(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	for _, posting := range []struct {
		category Category
		amount   string
	}{
		{CategoryPokok, "100000"},
		{CategoryWajib, "50000"},
		{CategorySukarela, "25000"},
	} {
		_, err := service.Post(context.Background(), PostingInput{
			MemberID: 1, Type: TypeDeposit, Category: posting.category, Amount: amount(t, posting.amount),
		})
		require.NoError(t, err)
	}

	account, err := service.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, account.TotalBalance.Equal(amount(t, "175000")))
}

func TestPostWithdrawalInsufficientFunds(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, metrics := newTestService(repo)

	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "50000"),
	})
	require.NoError(t, err)

	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeWithdrawal, Category: CategorySukarela, Amount: amount(t, "100000"),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Rejection leaves the ledger untouched.
	account, err := service.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, account.SukarelaBalance.Equal(amount(t, "50000")))
	assert.Len(t, repo.transactions, 1)
	assert.Contains(t, metrics.observed, "withdrawal:rejected")
}

func TestPostPokokWithdrawalAlwaysForbidden(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeDeposit, Category: CategoryPokok, Amount: amount(t, "100000"),
	})
	require.NoError(t, err)

	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeWithdrawal, Category: CategoryPokok, Amount: amount(t, "10000"),
	})
	require.ErrorIs(t, err, ErrForbiddenWithdrawal)

	target := int64(2)
	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeTransfer, Category: CategoryPokok, Amount: amount(t, "10000"), TargetMemberID: &target,
	})
	require.ErrorIs(t, err, ErrForbiddenWithdrawal)
}

func TestPostTransfer(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	repo.addMember(2, "SIN-202401-0002", "Siti Aminah", true)
	service, _, _ := newTestService(repo)

	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "200000"),
	})
	require.NoError(t, err)
	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 2, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "10000"),
	})
	require.NoError(t, err)

	target := int64(2)
	result, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeTransfer, Category: CategorySukarela, Amount: amount(t, "75000"), TargetMemberID: &target,
	})
	require.NoError(t, err)

	assert.True(t, result.Account.SukarelaBalance.Equal(amount(t, "125000")))
	require.NotNil(t, result.TargetAccount)
	assert.True(t, result.TargetAccount.SukarelaBalance.Equal(amount(t, "85000")))

	require.Len(t, result.Transactions, 2)
	debit, credit := result.Transactions[0], result.Transactions[1]
	assert.Equal(t, TypeTransfer, debit.Type)
	assert.Equal(t, TypeDeposit, credit.Type)
	assert.NotEqual(t, uuid.Nil, debit.Reference)
	assert.Equal(t, debit.Reference, credit.Reference)
	assert.True(t, debit.BalanceBefore.Equal(amount(t, "200000")))
	assert.True(t, debit.BalanceAfter.Equal(amount(t, "125000")))
	assert.True(t, credit.BalanceBefore.Equal(amount(t, "10000")))
	assert.True(t, credit.BalanceAfter.Equal(amount(t, "85000")))
	assert.Contains(t, credit.Description, "SIN-202401-0001")
}

func TestPostTransferTargetWithoutAccount(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	repo.addMember(2, "SIN-202401-0002", "Siti Aminah", true)
	service, _, _ := newTestService(repo)

	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "200000"),
	})
	require.NoError(t, err)

	target := int64(2)
	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeTransfer, Category: CategorySukarela, Amount: amount(t, "50000"), TargetMemberID: &target,
	})
	require.ErrorIs(t, err, ErrTargetNotFound)

	// The failed transfer must not debit the source.
	account, err := service.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, account.SukarelaBalance.Equal(amount(t, "200000")))
	assert.Len(t, repo.transactions, 1)
}

func TestPostTransferValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	self := int64(1)
	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeTransfer, Category: CategorySukarela, Amount: amount(t, "1000"), TargetMemberID: &self,
	})
	require.ErrorIs(t, err, ErrSelfTransfer)

	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeTransfer, Category: CategorySukarela, Amount: amount(t, "1000"),
	})
	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestPostRejectsUnknownOrInactiveMember(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", false)
	service, _, _ := newTestService(repo)

	_, err := service.Post(context.Background(), PostingInput{
		MemberID: 1, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "1000"),
	})
	require.ErrorIs(t, err, ErrMemberInactive)

	_, err = service.Post(context.Background(), PostingInput{
		MemberID: 42, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "1000"),
	})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPostInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	cases := []struct {
		name string
		in   PostingInput
		want error
	}{
		{"zero amount", PostingInput{MemberID: 1, Type: TypeDeposit, Category: CategorySukarela}, ErrInvalidAmount},
		{"negative amount", PostingInput{MemberID: 1, Type: TypeDeposit, Category: CategorySukarela, Amount: amount(t, "-5")}, ErrInvalidAmount},
		{"unknown type", PostingInput{MemberID: 1, Type: "BONUS", Category: CategorySukarela, Amount: amount(t, "5")}, ErrInvalidType},
		{"unknown category", PostingInput{MemberID: 1, Type: TypeDeposit, Category: "DARURAT", Amount: amount(t, "5")}, ErrInvalidCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Post(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPostDoesNotDeduplicate(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	in := PostingInput{MemberID: 1, Type: TypeDeposit, Category: CategoryWajib, Amount: amount(t, "25000")}
	_, err := service.Post(context.Background(), in)
	require.NoError(t, err)
	_, err = service.Post(context.Background(), in)
	require.NoError(t, err)

	// Identical consecutive postings are distinct ledger entries.
	assert.Len(t, repo.transactions, 2)
	account, err := service.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, account.WajibBalance.Equal(amount(t, "50000")))
}

func TestPostSHU(t *testing.T) {
	repo := newFakeRepo()
	repo.addMember(1, "SIN-202401-0001", "Budi Santoso", true)
	service, _, _ := newTestService(repo)

	result, err := service.PostSHU(context.Background(), 1, amount(t, "12500"), "2024", 0)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	trx := result.Transactions[0]
	assert.Equal(t, TypeSHU, trx.Type)
	assert.Equal(t, CategorySukarela, trx.Category)
	assert.Contains(t, trx.Description, "2024")
	assert.True(t, result.Account.SukarelaBalance.Equal(amount(t, "12500")))
}

func TestGetAccountNotFound(t *testing.T) {
	repo := newFakeRepo()
	service, _, _ := newTestService(repo)

	_, err := service.GetAccount(context.Background(), 99)
	require.ErrorIs(t, err, ErrAccountNotFound)
}
