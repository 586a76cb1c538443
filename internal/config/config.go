package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/totals"
)

// Submit modes.
const (
	SubmitSync  = "sync"
	SubmitAsync = "async"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	// HomeState is the company's registered state used when a tenant's
	// profile carries none. It is always required.
	HomeState             string
	GSTNominalRate        decimal.Decimal
	ServiceRounding       totals.Rounding
	InvoiceRounding       totals.Rounding
	PurchaseOrderRounding totals.Rounding

	BackendBaseURL      string
	BackendTimeout      time.Duration
	BackendMaxAttempts  int
	BackendServiceToken string

	RedisURL        string
	CompanyCacheTTL time.Duration
	KitCacheTTL     time.Duration
	IdempotencyTTL  time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	TenantHeader     string
	TenantRootDomain string
	DefaultTenant    string

	CORSAllowedOrigins []string
	RateLimitPerMin    int
	SubmitBurstPerMin  int
	BodyLimitBytes     int64

	SubmitMode        string
	WorkerConcurrency int
	// WorkerMetricsAddr, when set, exposes the worker's /metrics endpoint.
	WorkerMetricsAddr string

	Obs Obs
}

// Obs groups logging, metrics and tracing settings.
type Obs struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	TracingEnabled   bool
	OTLPEndpoint     string
	ServiceName      string
	SamplingRatio    float64
	MetricsEnabled   bool
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("APP_PORT"), valueOrDefault(k.String("PORT"), "8080")),
		HomeState:           strings.TrimSpace(k.String("HOME_STATE")),
		BackendBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		BackendTimeout:      parseMillis(k.String("BACKEND_TIMEOUT_MS"), 5000),
		BackendMaxAttempts:  parseInt(k.String("BACKEND_MAX_ATTEMPTS"), 3),
		BackendServiceToken: strings.TrimSpace(k.String("BACKEND_SERVICE_TOKEN")),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		CompanyCacheTTL:     parseDuration(k.String("COMPANY_CACHE_TTL"), "10m"),
		KitCacheTTL:         parseDuration(k.String("KIT_CACHE_TTL"), "5m"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		JWTSecret:           k.String("JWT_SECRET"),
		JWTIssuer:           strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:         strings.TrimSpace(k.String("JWT_AUDIENCE")),
		TenantHeader:        valueOrDefault(k.String("TENANT_HEADER"), "X-Tenant-ID"),
		TenantRootDomain:    strings.TrimSpace(k.String("TENANT_ROOT_DOMAIN")),
		DefaultTenant:       strings.TrimSpace(k.String("DEFAULT_TENANT")),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMin:     parseInt(k.String("RATE_LIMIT_PER_MIN"), 120),
		SubmitBurstPerMin:   parseInt(k.String("SUBMIT_BURST_PER_MIN"), 30),
		BodyLimitBytes:      int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SubmitMode:          strings.ToLower(valueOrDefault(k.String("SUBMIT_MODE"), SubmitSync)),
		WorkerConcurrency:   parseInt(k.String("WORKER_CONCURRENCY"), 10),
		WorkerMetricsAddr:   strings.TrimSpace(k.String("WORKER_METRICS_ADDR")),
		Obs: Obs{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "vebops"),
			TracingEnabled:   parseBool(k.String("OBS_TRACING_ENABLED")),
			OTLPEndpoint:     strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
			ServiceName:      valueOrDefault(k.String("OTEL_SERVICE_NAME"), "vebops-api"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLER_RATIO"), 0.1),
			MetricsEnabled:   valueOrDefault(k.String("OBS_ENABLE_PROMETHEUS"), "true") != "false",
			PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	var err error
	if cfg.GSTNominalRate, err = parseRate(k.String("GST_NOMINAL_RATE")); err != nil {
		return nil, err
	}
	if cfg.ServiceRounding, err = parseRounding("ROUNDING_SERVICE", k.String("ROUNDING_SERVICE"), totals.RoundWholeRupee); err != nil {
		return nil, err
	}
	if cfg.InvoiceRounding, err = parseRounding("ROUNDING_INVOICE", k.String("ROUNDING_INVOICE"), totals.RoundWholeRupee); err != nil {
		return nil, err
	}
	if cfg.PurchaseOrderRounding, err = parseRounding("ROUNDING_PURCHASE_ORDER", k.String("ROUNDING_PURCHASE_ORDER"), totals.RoundPaise); err != nil {
		return nil, err
	}

	if cfg.HomeState == "" {
		return nil, errors.New("HOME_STATE is required")
	}
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}
	switch cfg.SubmitMode {
	case SubmitSync:
	case SubmitAsync:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when SUBMIT_MODE=async")
		}
	default:
		return nil, fmt.Errorf("SUBMIT_MODE must be %q or %q", SubmitSync, SubmitAsync)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// AuthEnabled reports whether bearer tokens are verified locally.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

func parseRate(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return totals.DefaultNominalRate, nil
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GST_NOMINAL_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, errors.New("GST_NOMINAL_RATE must be between 0 and 100")
	}
	return rate, nil
}

func parseRounding(key, value string, fallback totals.Rounding) (totals.Rounding, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	r, err := totals.ParseRounding(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return r, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseMillis(value string, fallback int) time.Duration {
	return time.Duration(parseInt(value, fallback)) * time.Millisecond
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
