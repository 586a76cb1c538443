package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/documents"
	"github.com/manigandan-posana/vebops/internal/jobs"
	"github.com/manigandan-posana/vebops/internal/lock"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

type recordingEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.task, r.opts = task, opts
	if r.err != nil {
		return nil, r.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

type fakeCreator struct {
	err       error
	tenantID  string
	requestID string
	key       string
	calls     int
}

func (f *fakeCreator) CreateService(ctx context.Context, _ any, key string) (backend.Created, error) {
	f.calls++
	f.tenantID, _ = tenant.FromContext(ctx)
	f.requestID = middleware.GetReqID(ctx)
	f.key = key
	return backend.Created{ID: "svc-7"}, f.err
}

func (f *fakeCreator) CreatePurchaseOrder(ctx context.Context, payload any, key string) (backend.Created, error) {
	return f.CreateService(ctx, payload, key)
}

func submission() documents.Submission {
	return documents.Submission{
		Flow:           documents.FlowService,
		TenantID:       "acme",
		IdempotencyKey: "key-1",
		RequestID:      "req-1",
		Document:       json.RawMessage(`{"flow":"service"}`),
	}
}

func TestEnqueuerQueuesSubmitTask(t *testing.T) {
	rec := &recordingEnqueuer{}
	receipt, err := jobs.Enqueuer{Client: rec, MaxRetry: 5}.Submit(context.Background(), submission())
	require.NoError(t, err)
	require.Equal(t, documents.ModeAsync, receipt.Mode)
	require.Equal(t, "queued", receipt.Status)
	require.Equal(t, "task-1", receipt.TaskID)
	require.Equal(t, jobs.TaskSubmitDocument, rec.task.Type())
	require.Len(t, rec.opts, 3)

	var sub documents.Submission
	require.NoError(t, json.Unmarshal(rec.task.Payload(), &sub))
	require.Equal(t, submission(), sub)
}

func TestEnqueuerMapsDuplicateTaskToConflict(t *testing.T) {
	rec := &recordingEnqueuer{err: asynq.ErrTaskIDConflict}
	_, err := jobs.Enqueuer{Client: rec}.Submit(context.Background(), submission())

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Equal(t, "IDEMPOTENT_REPLAY", appErr.Code)
}

func newLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client}
}

func TestSubmitHandlerDeliversWithTenantContext(t *testing.T) {
	creator := &fakeCreator{}
	h := &jobs.SubmitHandler{Backend: creator, Locker: newLocker(t), LockTTL: time.Second, Logger: zerolog.Nop()}

	task, err := jobs.NewSubmitTask(submission())
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Equal(t, 1, creator.calls)
	require.Equal(t, "acme", creator.tenantID)
	require.Equal(t, "req-1", creator.requestID)
	require.Equal(t, "key-1", creator.key)
}

func TestSubmitHandlerSkipsRetryForBadInput(t *testing.T) {
	creator := &fakeCreator{}
	h := &jobs.SubmitHandler{Backend: creator, Logger: zerolog.Nop()}

	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskSubmitDocument, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	sub := submission()
	sub.Flow = documents.FlowInvoice
	task, err := jobs.NewSubmitTask(sub)
	require.NoError(t, err)
	require.ErrorIs(t, h.ProcessTask(context.Background(), task), asynq.SkipRetry)
	require.Zero(t, creator.calls)
}

func TestSubmitHandlerRetryPolicy(t *testing.T) {
	task, err := jobs.NewSubmitTask(submission())
	require.NoError(t, err)

	rejected := &fakeCreator{err: common.NewAppError("BACKEND_REJECTED", "rejected", http.StatusUnprocessableEntity, backend.ErrRejected)}
	h := &jobs.SubmitHandler{Backend: rejected, Logger: zerolog.Nop()}
	err = h.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	unavailable := &fakeCreator{err: common.NewAppError("BACKEND_UNAVAILABLE", "down", http.StatusBadGateway, backend.ErrUnavailable)}
	h = &jobs.SubmitHandler{Backend: unavailable, Logger: zerolog.Nop()}
	err = h.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}
