package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is a breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// BreakerSettings configures a Breaker. Zero values take the defaults noted.
type BreakerSettings struct {
	// Name labels logs and metrics. Default "default".
	Name string
	// MinRequests is the sample size needed before the ratio is judged. Default 1.
	MinRequests int
	// FailureRatio opens the breaker when reached. Default 0.5, capped at 1.
	FailureRatio float64
	// Window is how long outcomes are counted before the sample resets. Default 1m.
	Window time.Duration
	// OpenFor is the cool-off before a probe is let through. Default 30s.
	OpenFor time.Duration
	Logger  zerolog.Logger
	Metrics *BreakerMetrics
}

// Breaker is a failure-ratio circuit breaker guarding one upstream. While
// half-open it admits a single probe; the probe's outcome closes or reopens it.
type Breaker struct {
	cfg BreakerSettings
	now func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	total       int
	windowStart time.Time
	openedAt    time.Time
	probing     bool
}

// NewBreaker builds a closed Breaker.
func NewBreaker(s BreakerSettings) *Breaker {
	if s.Name == "" {
		s.Name = "default"
	}
	if s.MinRequests <= 0 {
		s.MinRequests = 1
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	if s.FailureRatio > 1 {
		s.FailureRatio = 1
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	b := &Breaker{cfg: s, now: time.Now}
	b.windowStart = b.now()
	s.Metrics.setState(s.Name, Closed)
	return b
}

// Allow reports whether a call may proceed. A nil breaker always allows.
func (b *Breaker) Allow(ctx context.Context) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	if now := b.now(); now.Sub(b.windowStart) >= b.cfg.Window {
		b.failures, b.total, b.windowStart = 0, 0, now
	}
	b.total++
	if !success {
		b.failures++
	}
	if b.total >= b.cfg.MinRequests && float64(b.failures)/float64(b.total) >= b.cfg.FailureRatio {
		b.moveLocked(ctx, Open)
	}
}

// State returns the current position. A nil breaker is Closed.
func (b *Breaker) State() State {
	if b == nil {
		return Closed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	now := b.now()
	b.state = next
	b.failures, b.total, b.windowStart = 0, 0, now
	if next == Open {
		b.openedAt = now
	}

	b.cfg.Metrics.transition(b.cfg.Name, prev, next)
	evt := b.cfg.Logger.Info()
	if next == Open {
		evt = b.cfg.Logger.Warn()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", b.cfg.Name).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("breaker_transition")
}
