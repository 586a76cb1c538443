package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/documents"
)

// TaskEnqueuer is the part of asynq.Client used by Enqueuer.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer hands submissions to the worker. It implements documents.Submitter.
// Retention keeps completed tasks, with their results, visible to StatusHandler.
type Enqueuer struct {
	Client    TaskEnqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// Mode implements documents.Submitter.
func (Enqueuer) Mode() string { return documents.ModeAsync }

// Submit implements documents.Submitter.
func (e Enqueuer) Submit(ctx context.Context, sub documents.Submission) (documents.Receipt, error) {
	if e.Client == nil {
		return documents.Receipt{}, errors.New("jobs: task client not configured")
	}
	task, err := NewSubmitTask(sub)
	if err != nil {
		return documents.Receipt{}, fmt.Errorf("jobs: build submit task: %w", err)
	}
	queue := e.Queue
	if queue == "" {
		queue = QueueDefault
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.TaskID(taskID(sub))}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if e.Retention > 0 {
		opts = append(opts, asynq.Retention(e.Retention))
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return documents.Receipt{}, common.NewAppError("IDEMPOTENT_REPLAY", "submission already queued", http.StatusConflict, err)
		}
		return documents.Receipt{}, common.NewAppError("QUEUE_UNAVAILABLE", "could not queue submission", http.StatusServiceUnavailable, err)
	}
	return documents.Receipt{Mode: documents.ModeAsync, Status: "queued", TaskID: info.ID}, nil
}
