package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskHandler registers an extra handler on the worker mux.
type TaskHandler struct {
	Type    string
	Handler asynq.Handler
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	Redis       asynq.RedisConnOpt
	Concurrency int
	Queue       string
	Logger      zerolog.Logger
	Submit      *SubmitHandler
	Handlers    []TaskHandler
}

// Worker wraps the asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger zerolog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Redis == nil {
		return nil, errors.New("jobs: redis connection required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	queue := cfg.Queue
	if queue == "" {
		queue = QueueDefault
	}
	srv := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      zerologAdapter{logger: cfg.Logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			cfg.Logger.Warn().Err(err).
				Str("task_type", task.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("task_failed")
		}),
	})
	mux := asynq.NewServeMux()
	if cfg.Submit != nil {
		mux.Handle(TaskSubmitDocument, cfg.Submit)
	}
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.Handle(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run processes tasks until ctx is cancelled, then waits for in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.logger.Info().Msg("worker_started")
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info().Msg("worker_stopped")
	return nil
}

// zerologAdapter satisfies asynq.Logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (z zerologAdapter) Debug(args ...any) { z.logger.Debug().Msg(fmt.Sprint(args...)) }
func (z zerologAdapter) Info(args ...any)  { z.logger.Info().Msg(fmt.Sprint(args...)) }
func (z zerologAdapter) Warn(args ...any)  { z.logger.Warn().Msg(fmt.Sprint(args...)) }
func (z zerologAdapter) Error(args ...any) { z.logger.Error().Msg(fmt.Sprint(args...)) }
func (z zerologAdapter) Fatal(args ...any) { z.logger.Fatal().Msg(fmt.Sprint(args...)) }
