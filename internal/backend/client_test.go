package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/resilience"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &backend.Client{
		BaseURL:      srv.URL + "/",
		HTTP:         resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1, Timeout: time.Second},
		ServiceToken: "service-token",
	}
}

func TestCompanyProfileForwardsCallerContext(t *testing.T) {
	var got http.Header
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		require.Equal(t, "/company/profile", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"name": "Acme", "state": "Kerala"}})
	})

	ctx := tenant.WithTenant(context.Background(), "acme")
	ctx = common.WithAccessToken(ctx, "user-token")
	profile, err := client.CompanyProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "Kerala", profile.State)
	require.Equal(t, "Bearer user-token", got.Get("Authorization"))
	require.Equal(t, "acme", got.Get("X-Tenant-ID"))
	require.NotEmpty(t, got.Get("X-Request-Id"))
}

func TestKitDecodesBasePriceItems(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"k1","name":"Solar","items":[{"name":"Panel","quantity":"2","basePrice":4500.5}]}`))
	})

	kit, err := client.Kit(context.Background(), "k1")
	require.NoError(t, err)
	require.Len(t, kit.Items, 1)
	require.True(t, kit.Items[0].BasePrice.Equal(decimal.RequireFromString("4500.5")))
}

func TestCreateServiceSendsIdempotencyKey(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"svc-9","number":"SRV-0009"}`))
	})

	created, err := client.CreateService(context.Background(), map[string]any{"grandTotal": 2124}, "key-1")
	require.NoError(t, err)
	require.Equal(t, "svc-9", created.ID)
	require.Equal(t, "SRV-0009", created.Number)
}

func TestStatusMapping(t *testing.T) {
	status := http.StatusNotFound
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"buyer state missing"}`))
	})

	_, err := client.Kit(context.Background(), "missing")
	require.True(t, errors.Is(err, backend.ErrNotFound))

	status = http.StatusUnprocessableEntity
	_, err = client.CreatePurchaseOrder(context.Background(), map[string]any{}, "")
	require.True(t, errors.Is(err, backend.ErrRejected))
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, map[string]any{"backend": "buyer state missing"}, appErr.Details)

	status = http.StatusInternalServerError
	err = client.Ping(context.Background())
	require.True(t, errors.Is(err, backend.ErrUnavailable))
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}
