package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/resilience"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag. Shutdown sets it to false so load
// balancers drain the instance before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PingBackend(ctx context.Context, timeout time.Duration) error
}

// Pinger is anything with a health call, such as backend.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probes implements Checker. A nil Redis client counts as healthy because the
// service runs without Redis in sync mode.
type Probes struct {
	Redis   *redis.Client
	Backend Pinger
}

// PingRedis implements Checker.
func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// PingBackend implements Checker.
func (p Probes) PingBackend(ctx context.Context, timeout time.Duration) error {
	if p.Backend == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Backend.Ping(ctx)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker        Checker
	Breaker        *resilience.Breaker
	RedisTimeout   time.Duration
	BackendTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. An open backend circuit
// is reported but does not fail readiness, since previews degrade to the
// configured home state.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}
	ctx := r.Context()
	status := map[string]string{
		"status":  "ok",
		"redis":   probe(h.Checker.PingRedis(ctx, h.redisTimeout())),
		"backend": probe(h.Checker.PingBackend(ctx, h.backendTimeout())),
	}
	if h.Breaker != nil {
		status["breaker"] = h.Breaker.State().String()
	}
	code := http.StatusOK
	if status["redis"] != "ok" || status["backend"] != "ok" {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func probe(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func (h Handler) backendTimeout() time.Duration {
	if h.BackendTimeout <= 0 {
		return time.Second
	}
	return h.BackendTimeout
}
