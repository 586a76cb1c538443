package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/common"
)

func TestIdemRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var seenKey string
	idem := common.Idem{R: client, TTL: time.Minute, Scope: func(r *http.Request) string { return r.Header.Get("X-Tenant-ID") }}
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey, _ = common.IdempotencyKey(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(tenantID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", nil)
		req.Header.Set(common.IdempotencyHeader, "abc")
		req.Header.Set("X-Tenant-ID", tenantID)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusCreated, send("acme").Code)
	require.Equal(t, "abc", seenKey)
	replay := send("acme")
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Contains(t, replay.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, http.StatusCreated, send("globex").Code)
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	status := http.StatusBadGateway
	handler := common.Idem{R: client, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders", nil)
		req.Header.Set(common.IdempotencyHeader, "po-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusBadGateway, send())
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, send())
	require.Equal(t, http.StatusConflict, send())
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.BadRequest("INVALID_BODY", "bad", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":{"code":"INVALID_BODY","message":"bad"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.WriteError(rr, http.ErrHandlerTimeout)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
