package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSalesResync re-syncs one sales-line year partition from the feed.
	TaskSalesResync = "sales:resync"
)

// SalesResyncPayload selects the partition to re-sync. Year 0 means the
// current UTC year.
type SalesResyncPayload struct {
	Year int `json:"year"`
}

// NewSalesResyncTask constructs an Asynq task.
func NewSalesResyncTask(payload SalesResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesResync, data), nil
}
