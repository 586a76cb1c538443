package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/manigandan-posana/vebops/internal/app"
	"github.com/manigandan-posana/vebops/internal/config"
	"github.com/manigandan-posana/vebops/internal/jobs"
	"github.com/manigandan-posana/vebops/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()
	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required to run the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.Obs.TracingEnabled,
		ServiceName:   cfg.Obs.ServiceName + "-worker",
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
		Process:       "worker",
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	deps, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		Redis:       app.AsynqRedisOpt(deps.Redis),
		Concurrency: cfg.WorkerConcurrency,
		Queue:       jobs.QueueDefault,
		Logger:      logger,
		Submit: &jobs.SubmitHandler{
			Backend: deps.Backend,
			Locker:  deps.Locker(),
			LockTTL: time.Minute,
			Metrics: deps.Metrics,
			Logger:  logger,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise worker")
	}

	if cfg.WorkerMetricsAddr != "" && cfg.Obs.MetricsEnabled {
		go serveMetrics(ctx, cfg.WorkerMetricsAddr, logger)
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info().Str("addr", addr).Msg("worker metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("worker metrics server")
	}
}
