package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSHUDistribution distributes a yearly profit share across members.
	TaskSHUDistribution = "savings:shu:distribute"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency:cleanup"
)

// SHUDistributionPayload carries one distribution run. TotalAmount is a
// decimal string to avoid float rounding on the wire.
type SHUDistributionPayload struct {
	Period      string `json:"period"`
	TotalAmount string `json:"total_amount"`
	InitiatedBy int64  `json:"initiated_by"`
}

// NewSHUDistributionTask constructs an Asynq task for one distribution run.
func NewSHUDistributionTask(payload SHUDistributionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSHUDistribution, data, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload controls the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
