package documents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manigandan-posana/vebops/internal/backend"
)

// Submission modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Submission is a computed document on its way to the backend. It is also the
// payload of queued submit tasks, so it carries no credentials.
type Submission struct {
	Flow           Flow            `json:"flow"`
	TenantID       string          `json:"tenantId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	RequestID      string          `json:"requestId,omitempty"`
	Document       json.RawMessage `json:"document"`
}

// Receipt acknowledges a submission.
type Receipt struct {
	Mode           string  `json:"mode"`
	Status         string  `json:"status"`
	ID             string  `json:"id,omitempty"`
	Number         string  `json:"number,omitempty"`
	TaskID         string  `json:"taskId,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey"`
	Document       *Result `json:"document,omitempty"`
}

// Submitter delivers a submission, either directly or through a queue.
type Submitter interface {
	Mode() string
	Submit(ctx context.Context, sub Submission) (Receipt, error)
}

// Creator persists documents on the backend. backend.Client satisfies it.
type Creator interface {
	CreateService(ctx context.Context, payload any, idemKey string) (backend.Created, error)
	CreatePurchaseOrder(ctx context.Context, payload any, idemKey string) (backend.Created, error)
}

// Deliver posts the submission to the backend endpoint for its flow.
func Deliver(ctx context.Context, c Creator, sub Submission) (backend.Created, error) {
	switch sub.Flow {
	case FlowService:
		return c.CreateService(ctx, sub.Document, sub.IdempotencyKey)
	case FlowPurchaseOrder:
		return c.CreatePurchaseOrder(ctx, sub.Document, sub.IdempotencyKey)
	}
	return backend.Created{}, fmt.Errorf("documents: flow %q cannot be delivered", sub.Flow)
}

// SyncSubmitter posts documents while the caller waits.
type SyncSubmitter struct {
	Backend Creator
}

// Mode implements Submitter.
func (SyncSubmitter) Mode() string { return ModeSync }

// Submit implements Submitter.
func (s SyncSubmitter) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	created, err := Deliver(ctx, s.Backend, sub)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Mode: ModeSync, Status: "created", ID: created.ID, Number: created.Number}, nil
}
