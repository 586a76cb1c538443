package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/http/middleware"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireTenantNamesHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireTenant("X-Org")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "TENANT_REQUIRED", body.Error.Code)
	require.Equal(t, "X-Org", body.Error.Details["header"])
}

func TestRequireTenantPasses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), "acme"))
	rec := httptest.NewRecorder()
	middleware.RequireTenant("")(ok).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
