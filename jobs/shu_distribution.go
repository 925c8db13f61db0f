package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sinoman/superapp/internal/savings"
	"github.com/sinoman/superapp/internal/shared"
)

// shuWorkers bounds concurrent SHU postings per distribution run.
const shuWorkers = 4

// SavingsLedger is the slice of the savings service the distributor needs.
type SavingsLedger interface {
	ListActiveAccounts(ctx context.Context) ([]savings.Account, error)
	PostSHU(ctx context.Context, memberID int64, amount decimal.Decimal, period string, createdBy int64) (savings.PostingResult, error)
}

// KeyStore guards each distribution period against double processing.
type KeyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SHUDistributor splits a yearly surplus across all active members in
// proportion to their wajib plus sukarela balances. Each run is guarded by an
// idempotency key per period so a re-enqueued task cannot pay twice.
type SHUDistributor struct {
	logger  *slog.Logger
	savings SavingsLedger
	keys    KeyStore
}

// NewSHUDistributor constructs a SHUDistributor.
func NewSHUDistributor(logger *slog.Logger, svc SavingsLedger, keys KeyStore) *SHUDistributor {
	return &SHUDistributor{logger: logger, savings: svc, keys: keys}
}

// Handle processes TaskSHUDistribution tasks.
func (d *SHUDistributor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SHUDistributionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	total, err := decimal.NewFromString(payload.TotalAmount)
	if err != nil || !total.IsPositive() || strings.TrimSpace(payload.Period) == "" {
		d.logger.Warn("invalid shu payload", slog.String("period", payload.Period), slog.String("total", payload.TotalAmount))
		return asynq.SkipRetry
	}
	return d.Distribute(ctx, payload.Period, total, payload.InitiatedBy)
}

// Distribute runs one distribution. The idempotency key is released on
// failure so the run can be retried after the cause is fixed.
func (d *SHUDistributor) Distribute(ctx context.Context, period string, total decimal.Decimal, initiatedBy int64) error {
	key := "shu:" + period
	if err := d.keys.CheckAndInsert(ctx, key, "savings"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			d.logger.Info("shu already distributed", slog.String("period", period))
			return nil
		}
		return err
	}

	accounts, err := d.savings.ListActiveAccounts(ctx)
	if err != nil {
		d.rollbackKey(ctx, key)
		return err
	}

	// Shares are proportional to wajib+sukarela. Pokok is the fixed
	// membership deposit and does not earn profit share.
	basisOf := func(a savings.Account) decimal.Decimal {
		return a.WajibBalance.Add(a.SukarelaBalance)
	}
	basisSum := decimal.Zero
	for _, account := range accounts {
		basisSum = basisSum.Add(basisOf(account))
	}
	if !basisSum.IsPositive() {
		d.logger.Warn("no distributable balance", slog.String("period", period))
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(shuWorkers)
	paid := 0
	for _, account := range accounts {
		share := total.Mul(basisOf(account)).Div(basisSum).Floor()
		if !share.IsPositive() {
			continue
		}
		paid++
		memberID := account.MemberID
		g.Go(func() error {
			if _, err := d.savings.PostSHU(ctx, memberID, share, period, initiatedBy); err != nil {
				return fmt.Errorf("shu posting member %d: %w", memberID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.rollbackKey(ctx, key)
		return err
	}

	d.logger.Info("shu distributed",
		slog.String("period", period),
		slog.String("total", total.String()),
		slog.Int("members", paid))
	return nil
}

func (d *SHUDistributor) rollbackKey(ctx context.Context, key string) {
	if err := d.keys.Delete(context.WithoutCancel(ctx), key); err != nil {
		d.logger.Error("release shu idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}
