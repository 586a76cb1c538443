package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/documents"
	"github.com/manigandan-posana/vebops/internal/obs"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// Locker serializes work sharing a key. lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// SubmitHandler processes TaskSubmitDocument tasks.
type SubmitHandler struct {
	Backend documents.Creator
	Locker  Locker
	LockTTL time.Duration
	Metrics *obs.DomainMetrics
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads and requests the
// backend rejects are not retried.
func (h *SubmitHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var sub documents.Submission
	if err := json.Unmarshal(t.Payload(), &sub); err != nil {
		h.Logger.Error().Err(err).Msg("submit_task_bad_payload")
		return asynq.SkipRetry
	}
	if !sub.Flow.Submittable() || sub.IdempotencyKey == "" || len(sub.Document) == 0 {
		h.Logger.Error().Str("flow", string(sub.Flow)).Msg("submit_task_incomplete")
		return asynq.SkipRetry
	}

	ctx = tenant.WithTenant(ctx, sub.TenantID)
	if sub.RequestID != "" {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, sub.RequestID)
	}
	logger := h.Logger.With().
		Str("flow", string(sub.Flow)).
		Str("tenant_id", sub.TenantID).
		Str("idempotency_key", sub.IdempotencyKey).
		Logger()

	var created backend.Created
	deliver := func(ctx context.Context) error {
		var err error
		created, err = documents.Deliver(ctx, h.Backend, sub)
		return err
	}
	var err error
	if h.Locker != nil {
		key := tenant.PrefixKey(sub.TenantID, "lock:submit:"+sub.IdempotencyKey)
		err = h.Locker.WithLock(ctx, key, h.lockTTL(), deliver)
	} else {
		err = deliver(ctx)
	}
	h.Metrics.ObserveSubmission(string(sub.Flow), documents.ModeAsync, err)

	if err != nil {
		if errors.Is(err, backend.ErrRejected) || errors.Is(err, backend.ErrNotFound) {
			logger.Error().Err(err).Msg("submit_task_rejected")
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Warn().Err(err).Msg("submit_task_failed")
		return err
	}
	if rw := t.ResultWriter(); rw != nil {
		if data, err := json.Marshal(created); err == nil {
			if _, err := rw.Write(data); err != nil {
				logger.Warn().Err(err).Msg("submit_task_result_write_failed")
			}
		}
	}
	logger.Info().Str("document_id", created.ID).Msg("submit_task_delivered")
	return nil
}

func (h *SubmitHandler) lockTTL() time.Duration {
	if h.LockTTL > 0 {
		return h.LockTTL
	}
	return time.Minute
}
