package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manigandan-posana/vebops/internal/auth"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/documents"
	"github.com/manigandan-posana/vebops/internal/health"
	apimw "github.com/manigandan-posana/vebops/internal/http/middleware"
	"github.com/manigandan-posana/vebops/internal/jobs"
	"github.com/manigandan-posana/vebops/internal/kits"
	"github.com/manigandan-posana/vebops/internal/obs"
	"github.com/manigandan-posana/vebops/internal/ratelimit"
	"github.com/manigandan-posana/vebops/internal/security"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// RouterOptions toggles optional parts of the HTTP surface.
type RouterOptions struct {
	Tracing bool
	// Pprof, when set, is mounted at /debug/pprof.
	Pprof http.Handler
}

// NewRouter assembles the HTTP API.
func NewRouter(d *Dependencies, opts RouterOptions) *chi.Mux {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, nil, d.Registry)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.IdempotencyHeader, cfg.TenantHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", metricsHandler(d.Registry))
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{
		Checker:        health.Probes{Redis: d.Redis, Backend: d.Backend},
		Breaker:        d.Breaker,
		RedisTimeout:   300 * time.Millisecond,
		BackendTimeout: time.Second,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	tenants := tenant.NewResolver(cfg.TenantHeader, cfg.TenantRootDomain, cfg.DefaultTenant)
	limits := ratelimit.Handler{
		Store:  d.Limiter,
		Config: ratelimit.Config{Key: ratelimit.KeyByTenantOrIP, Window: time.Minute, Max: cfg.RateLimitPerMin},
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate_limit_store_failed")
		},
	}
	authenticate := auth.ForwardToken
	if cfg.AuthEnabled() {
		authenticate = auth.Middleware{Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)}.RequireAuth
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL, Scope: tenantScope}
	burst := ratelimit.Burst(cfg.SubmitBurstPerMin, time.Minute)

	docs := documents.NewHandler(d.Documents)
	kitHandler := kits.NewHandler(d.Kits)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(tenants.Middleware)
		v.Use(limits.Middleware)
		v.Use(apimw.RequireTenant(cfg.TenantHeader))
		v.Use(authenticate)

		v.Post("/services/preview", docs.PreviewService)
		v.With(burst, idem.Middleware).Post("/services", docs.SubmitService)
		v.Post("/invoices/preview", docs.PreviewInvoice)
		v.Post("/proformas/preview", docs.PreviewProforma)
		v.Post("/purchase-orders/preview", docs.PreviewPurchaseOrder)
		v.With(burst, idem.Middleware).Post("/purchase-orders", docs.SubmitPurchaseOrder)

		v.Post("/totals/compute", docs.ComputeTotals)
		v.Post("/totals/words", docs.Words)
		v.Get("/kits/{id}/items", kitHandler.Items)

		if d.Inspector != nil {
			v.Get("/submissions/{taskId}", jobs.StatusHandler{Inspector: d.Inspector, Queue: jobs.QueueDefault}.Get)
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func tenantScope(r *http.Request) string {
	id, _ := tenant.FromContext(r.Context())
	return id
}

func metricsHandler(reg prometheus.Registerer) http.Handler {
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
