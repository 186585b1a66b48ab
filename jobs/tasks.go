package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRefdataWarmup reloads the shared reference lists.
	TaskRefdataWarmup = "refdata:warmup"
)

// RefdataWarmupPayload controls a warm-up run. With Invalidate the shared copy is bumped
// first, so every console drops its lists and reads the fresh ones.
type RefdataWarmupPayload struct {
	Invalidate bool   `json:"invalidate"`
	Reason     string `json:"reason,omitempty"`
}

// NewRefdataWarmupTask constructs an Asynq task.
func NewRefdataWarmupTask(payload RefdataWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefdataWarmup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
