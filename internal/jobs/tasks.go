package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/manigandan-posana/vebops/internal/documents"
)

const (
	// QueueDefault is the queue submit tasks are placed on.
	QueueDefault = "default"
	// TaskSubmitDocument posts a computed document to the backend.
	TaskSubmitDocument = "documents:submit"
)

// NewSubmitTask constructs a TaskSubmitDocument task.
func NewSubmitTask(sub documents.Submission) (*asynq.Task, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubmitDocument, data), nil
}

// taskID dedupes queued submissions by tenant and idempotency key.
func taskID(sub documents.Submission) string {
	return taskPrefix(sub.TenantID) + sub.IdempotencyKey
}

func taskPrefix(tenantID string) string {
	return "submit:" + tenantID + ":"
}
