package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// TaskInspector is the part of asynq.Inspector used by StatusHandler.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// StatusHandler reports the state of a queued submission. Callers only see
// tasks queued under their own tenant.
type StatusHandler struct {
	Inspector TaskInspector
	Queue     string
}

type statusResponse struct {
	TaskID      string           `json:"taskId"`
	State       string           `json:"state"`
	Retried     int              `json:"retried"`
	MaxRetry    int              `json:"maxRetry"`
	LastError   string           `json:"lastError,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Document    *backend.Created `json:"document,omitempty"`
}

// Get serves GET /submissions/{taskId}.
func (h StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskId")
	tenantID, _ := tenant.FromContext(r.Context())
	if id == "" || !strings.HasPrefix(id, taskPrefix(tenantID)) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "submission not found", nil)
		return
	}
	if h.Inspector == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "submission queue not configured", nil)
		return
	}
	queue := h.Queue
	if queue == "" {
		queue = QueueDefault
	}

	info, err := h.Inspector.GetTaskInfo(queue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "submission not found", nil)
			return
		}
		common.WriteError(w, common.NewAppError("QUEUE_UNAVAILABLE", "could not read submission state", http.StatusServiceUnavailable, err))
		return
	}

	resp := statusResponse{
		TaskID:    info.ID,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		resp.CompletedAt = &completed
	}
	if len(info.Result) > 0 {
		var created backend.Created
		if err := json.Unmarshal(info.Result, &created); err == nil {
			resp.Document = &created
		}
	}
	common.Data(w, http.StatusOK, resp)
}
