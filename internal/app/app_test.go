package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/app"
	"github.com/manigandan-posana/vebops/internal/config"
	"github.com/manigandan-posana/vebops/internal/ratelimit"
	"github.com/manigandan-posana/vebops/internal/totals"
)

type fakeBackend struct {
	mu      sync.Mutex
	idemKey string
	tenant  string
	auth    string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/company/profile":
		_, _ = w.Write([]byte(`{"data":{"name":"Acme Solar","state":"Tamil Nadu"}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && r.URL.Path == "/services":
		f.idemKey = r.Header.Get("Idempotency-Key")
		f.tenant = r.Header.Get("X-Tenant-ID")
		f.auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"svc-1","number":"SRV-0001"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		AppEnv:                "test",
		HomeState:             "Tamil Nadu",
		GSTNominalRate:        decimal.NewFromInt(18),
		ServiceRounding:       totals.RoundWholeRupee,
		InvoiceRounding:       totals.RoundWholeRupee,
		PurchaseOrderRounding: totals.RoundPaise,
		BackendBaseURL:        backendURL,
		BackendTimeout:        time.Second,
		BackendMaxAttempts:    1,
		BackendServiceToken:   "service-token",
		IdempotencyTTL:        time.Hour,
		TenantHeader:          "X-Tenant-ID",
		BodyLimitBytes:        1 << 20,
		SubmitMode:            config.SubmitSync,
		Obs:                   config.Obs{MetricsNamespace: "vebops", MetricsEnabled: true},
	}
}

func newAPI(t *testing.T, cfg *config.Config) (http.Handler, *app.Dependencies) {
	t.Helper()
	deps, err := app.New(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return app.NewRouter(deps, app.RouterOptions{}), deps
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const serviceBody = `{
	"buyer": {"name": "Globex", "state": "tamil nadu"},
	"items": [{"description": "Installation", "qty": 2, "price": 1000, "discount": 10}]
}`

func TestPreviewThroughFullStack(t *testing.T) {
	backend := httptest.NewServer(&fakeBackend{})
	t.Cleanup(backend.Close)
	api, _ := newAPI(t, testConfig(backend.URL))

	rec := do(t, api, http.MethodPost, "/api/v1/services/preview", serviceBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "TENANT_REQUIRED")

	rec = do(t, api, http.MethodPost, "/api/v1/services/preview", serviceBody, "X-Tenant-ID", "acme")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Data struct {
			Seller struct {
				Name   string `json:"name"`
				Source string `json:"source"`
			} `json:"seller"`
			Totals struct {
				Regime     string  `json:"regime"`
				GrandTotal float64 `json:"grandTotal"`
			} `json:"totals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Acme Solar", body.Data.Seller.Name)
	require.Equal(t, "backend", body.Data.Seller.Source)
	require.Equal(t, "intra_state", body.Data.Totals.Regime)
	require.Equal(t, 2124.0, body.Data.Totals.GrandTotal)
}

func TestSyncSubmitForwardsCallerContext(t *testing.T) {
	fb := &fakeBackend{}
	backend := httptest.NewServer(fb)
	t.Cleanup(backend.Close)
	api, _ := newAPI(t, testConfig(backend.URL))

	rec := do(t, api, http.MethodPost, "/api/v1/services", serviceBody,
		"X-Tenant-ID", "acme", "Idempotency-Key", "key-42", "Authorization", "Bearer caller-token")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"id":"svc-1"`)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.Equal(t, "key-42", fb.idemKey)
	require.Equal(t, "acme", fb.tenant)
	require.Equal(t, "Bearer caller-token", fb.auth)
}

func TestRequireAuthWhenSecretConfigured(t *testing.T) {
	backend := httptest.NewServer(&fakeBackend{})
	t.Cleanup(backend.Close)
	cfg := testConfig(backend.URL)
	cfg.JWTSecret = "secret"
	api, _ := newAPI(t, cfg)

	rec := do(t, api, http.MethodPost, "/api/v1/totals/words", `{"amount": 10}`, "X-Tenant-ID", "acme")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerTenant(t *testing.T) {
	backend := httptest.NewServer(&fakeBackend{})
	t.Cleanup(backend.Close)
	cfg := testConfig(backend.URL)
	cfg.RateLimitPerMin = 2
	api, _ := newAPI(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(t, api, http.MethodPost, "/api/v1/totals/words", `{"amount": 10}`, "X-Tenant-ID", "acme")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, api, http.MethodPost, "/api/v1/totals/words", `{"amount": 10}`, "X-Tenant-ID", "acme")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, api, http.MethodPost, "/api/v1/totals/words", `{"amount": 10}`, "X-Tenant-ID", "globex")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	backend := httptest.NewServer(&fakeBackend{})
	t.Cleanup(backend.Close)
	api, _ := newAPI(t, testConfig(backend.URL))

	rec := do(t, api, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"breaker":"closed"`)

	do(t, api, http.MethodPost, "/api/v1/services/preview", serviceBody, "X-Tenant-ID", "acme")
	rec = do(t, api, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `vebops_totals_breakdowns_total{flow="service",regime="intra_state"} 1`)
}

func TestRedisBackedDependencies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("http://backend.invalid")
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.SubmitMode = config.SubmitAsync

	deps, err := app.New(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.NotNil(t, deps.Redis)
	require.NotNil(t, deps.TaskClient)
	require.NotNil(t, deps.Inspector)
	require.IsType(t, ratelimit.SlidingWindow{}, deps.Limiter)
	require.Equal(t, mr.Addr(), app.AsynqRedisOpt(deps.Redis).Addr)
}

func TestSyncDependenciesRunWithoutRedis(t *testing.T) {
	deps, err := app.New(context.Background(), testConfig("http://backend.invalid"), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.Nil(t, deps.Redis)
	require.Nil(t, deps.TaskClient)
	require.IsType(t, ratelimit.Fixed{}, deps.Limiter)
}
