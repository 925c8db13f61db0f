package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sinoman/superapp/internal/shared"
)

// defaultKeyRetention keeps idempotency keys long enough to cover any
// plausible re-enqueue of a past SHU period.
const defaultKeyRetention = 90 * 24 * time.Hour

// Maintenance bundles housekeeping task handlers.
type Maintenance struct {
	logger *slog.Logger
	keys   *shared.IdempotencyStore
}

// NewMaintenance constructs a Maintenance handler set.
func NewMaintenance(logger *slog.Logger, keys *shared.IdempotencyStore) *Maintenance {
	return &Maintenance{logger: logger, keys: keys}
}

// HandleIdempotencyCleanup processes TaskIdempotencyCleanup tasks.
func (m *Maintenance) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := defaultKeyRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if err := m.keys.Cleanup(ctx, retention); err != nil {
		return err
	}
	m.logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	return nil
}
