package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/cache"
	"github.com/manigandan-posana/vebops/internal/company"
	"github.com/manigandan-posana/vebops/internal/config"
	"github.com/manigandan-posana/vebops/internal/documents"
	"github.com/manigandan-posana/vebops/internal/jobs"
	"github.com/manigandan-posana/vebops/internal/kits"
	"github.com/manigandan-posana/vebops/internal/lock"
	"github.com/manigandan-posana/vebops/internal/obs"
	"github.com/manigandan-posana/vebops/internal/ratelimit"
	"github.com/manigandan-posana/vebops/internal/resilience"
)

const (
	breakerMinRequests  = 5
	breakerFailureRatio = 0.5
	breakerOpenFor      = 30 * time.Second

	submitMaxRetry  = 8
	submitRetention = 24 * time.Hour
)

// Dependencies enumerates the services shared by the API and the worker.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Registry  prometheus.Registerer
	Redis     *redis.Client
	Metrics   *obs.DomainMetrics
	Validator *validator.Validate
	Breaker   *resilience.Breaker
	Backend   *backend.Client
	Limiter   ratelimit.Store

	// TaskClient and Inspector are set only when submissions are queued.
	TaskClient *asynq.Client
	Inspector  *asynq.Inspector

	Sellers   *company.Resolver
	Kits      *kits.Service
	Documents *documents.Service
}

// New builds the dependency graph. Redis is optional: without REDIS_URL the
// caches are disabled, idempotency keys are not enforced and rate limits are
// kept in process memory.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (deps *Dependencies, err error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	d := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Metrics:   obs.NewDomainMetrics(cfg.Obs.MetricsNamespace, reg),
		Validator: documents.NewValidator(),
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if cfg.RedisURL != "" {
		if d.Redis, err = NewRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger); err != nil {
			return nil, err
		}
	}

	d.Breaker = resilience.NewBreaker(resilience.BreakerSettings{
		Name:         "backend",
		MinRequests:  breakerMinRequests,
		FailureRatio: breakerFailureRatio,
		OpenFor:      breakerOpenFor,
		Logger:       obs.Component(logger, "breaker"),
		Metrics:      resilience.NewBreakerMetrics(cfg.Obs.MetricsNamespace, reg),
	})
	d.Backend = NewBackendClient(cfg, d.Breaker, d.Metrics, obs.Component(logger, "backend"))
	d.Limiter = NewLimiterStore(d.Redis)

	d.Sellers = company.NewResolver(d.Backend, cache.NewJSON(d.Redis, cfg.CompanyCacheTTL), cfg.HomeState, obs.Component(logger, "company"))
	d.Kits = kits.NewService(d.Backend, cache.NewJSON(d.Redis, cfg.KitCacheTTL), obs.Component(logger, "kits"))

	d.Documents, err = documents.NewService(documents.ServiceConfig{
		Sellers:   d.Sellers,
		Kits:      d.Kits,
		Submitter: d.newSubmitter(),
		Policies: documents.Policies{
			ServiceRounding:       cfg.ServiceRounding,
			InvoiceRounding:       cfg.InvoiceRounding,
			PurchaseOrderRounding: cfg.PurchaseOrderRounding,
			NominalRate:           decimal.NewNullDecimal(cfg.GSTNominalRate),
		},
		Validator: d.Validator,
		Metrics:   d.Metrics,
		Logger:    obs.Component(logger, "documents"),
	})
	if err != nil {
		return nil, fmt.Errorf("initialise documents service: %w", err)
	}
	return d, nil
}

func (d *Dependencies) newSubmitter() documents.Submitter {
	if d.Config.SubmitMode != config.SubmitAsync || d.Redis == nil {
		return documents.SyncSubmitter{Backend: d.Backend}
	}
	opt := AsynqRedisOpt(d.Redis)
	d.TaskClient = asynq.NewClient(opt)
	d.Inspector = asynq.NewInspector(opt)
	return jobs.Enqueuer{
		Client:    d.TaskClient,
		Queue:     jobs.QueueDefault,
		MaxRetry:  submitMaxRetry,
		Retention: submitRetention,
	}
}

// Locker returns the Redis lock used to serialize submissions.
func (d *Dependencies) Locker() lock.Locker {
	return lock.Locker{R: d.Redis, MaxWait: 30 * time.Second}
}

// Close releases network resources. It is safe to call more than once.
func (d *Dependencies) Close() {
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
		d.TaskClient = nil
	}
	if d.Inspector != nil {
		if err := d.Inspector.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task inspector")
		}
		d.Inspector = nil
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
		d.Redis = nil
	}
}

// NewRedis connects to Redis, instruments the client and checks it answers.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AsynqRedisOpt lets asynq reuse the connection settings of an existing client.
func AsynqRedisOpt(client *redis.Client) asynq.RedisClientOpt {
	o := client.Options()
	return asynq.RedisClientOpt{
		Network:   o.Network,
		Addr:      o.Addr,
		Username:  o.Username,
		Password:  o.Password,
		DB:        o.DB,
		TLSConfig: o.TLSConfig,
	}
}

// NewBackendClient builds the REST client with tracing, retries and the breaker.
func NewBackendClient(cfg *config.Config, breaker *resilience.Breaker, metrics *obs.DomainMetrics, logger zerolog.Logger) *backend.Client {
	return &backend.Client{
		BaseURL: cfg.BackendBaseURL,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: cfg.BackendMaxAttempts,
			Jitter:      0.2,
			Timeout:     cfg.BackendTimeout,
			Target:      "backend",
			Logger:      logger,
		},
		ServiceToken: cfg.BackendServiceToken,
		TenantHeader: cfg.TenantHeader,
		Metrics:      metrics,
	}
}

// NewLimiterStore prefers the Redis sliding window so limits hold across
// replicas, and falls back to an in-process store.
func NewLimiterStore(client *redis.Client) ratelimit.Store {
	if client != nil {
		return ratelimit.SlidingWindow{Client: client, Prefix: "rl:"}
	}
	return ratelimit.NewMemory("rl")
}
