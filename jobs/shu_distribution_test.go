package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinoman/superapp/internal/savings"
	"github.com/sinoman/superapp/internal/shared"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

type fakeLedger struct {
	mu       sync.Mutex
	accounts []savings.Account
	payouts  map[int64]decimal.Decimal
	failFor  int64
}

func (f *fakeLedger) ListActiveAccounts(context.Context) ([]savings.Account, error) {
	return f.accounts, nil
}

func (f *fakeLedger) PostSHU(_ context.Context, memberID int64, amount decimal.Decimal, _ string, _ int64) (savings.PostingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor == memberID {
		return savings.PostingResult{}, errors.New("storage down")
	}
	if f.payouts == nil {
		f.payouts = make(map[int64]decimal.Decimal)
	}
	f.payouts[memberID] = amount
	return savings.PostingResult{}, nil
}

type fakeKeys struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeKeys) CheckAndInsert(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeKeys) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, key)
	return nil
}

func account(memberID int64, wajib, sukarela string) savings.Account {
	w, _ := decimal.NewFromString(wajib)
	s, _ := decimal.NewFromString(sukarela)
	return savings.Account{MemberID: memberID, WajibBalance: w, SukarelaBalance: s}
}

func TestDistributeProportionalShares(t *testing.T) {
	ledger := &fakeLedger{accounts: []savings.Account{
		account(1, "100000", "200000"), // basis 300000 -> 75%
		account(2, "50000", "50000"),   // basis 100000 -> 25%
		account(3, "0", "0"),           // no basis, no payout
	}}
	keys := &fakeKeys{}
	dist := NewSHUDistributor(slog.Default(), ledger, keys)

	err := dist.Distribute(context.Background(), "2024", d(t, "1000000"), 7)
	require.NoError(t, err)

	require.Len(t, ledger.payouts, 2)
	assert.True(t, ledger.payouts[1].Equal(d(t, "750000")), "got %s", ledger.payouts[1])
	assert.True(t, ledger.payouts[2].Equal(d(t, "250000")), "got %s", ledger.payouts[2])
}

func TestDistributeIdempotentPerPeriod(t *testing.T) {
	ledger := &fakeLedger{accounts: []savings.Account{account(1, "100000", "0")}}
	keys := &fakeKeys{}
	dist := NewSHUDistributor(slog.Default(), ledger, keys)

	require.NoError(t, dist.Distribute(context.Background(), "2024", d(t, "50000"), 7))
	require.NoError(t, dist.Distribute(context.Background(), "2024", d(t, "50000"), 7))

	// The second run is a no-op.
	assert.Len(t, ledger.payouts, 1)
	assert.True(t, ledger.payouts[1].Equal(d(t, "50000")))
}

func TestDistributeReleasesKeyOnFailure(t *testing.T) {
	ledger := &fakeLedger{
		accounts: []savings.Account{account(1, "100000", "0"), account(2, "100000", "0")},
		failFor:  2,
	}
	keys := &fakeKeys{}
	dist := NewSHUDistributor(slog.Default(), ledger, keys)

	err := dist.Distribute(context.Background(), "2024", d(t, "100000"), 7)
	require.Error(t, err)
	assert.False(t, keys.seen["shu:2024"], "failed run must release the period key")
}

func TestDistributeSkipsEmptyBasis(t *testing.T) {
	ledger := &fakeLedger{accounts: []savings.Account{account(1, "0", "0")}}
	keys := &fakeKeys{}
	dist := NewSHUDistributor(slog.Default(), ledger, keys)

	require.NoError(t, dist.Distribute(context.Background(), "2024", d(t, "100000"), 7))
	assert.Empty(t, ledger.payouts)
}
