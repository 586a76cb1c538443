package documents_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/manigandan-posana/vebops/internal/documents"
)

func newRouter(t *testing.T, creator documents.Creator) http.Handler {
	t.Helper()
	h := documents.NewHandler(newService(t, creator))
	r := chi.NewRouter()
	r.Post("/api/v1/services/preview", h.PreviewService)
	r.Post("/api/v1/services", h.SubmitService)
	r.Post("/api/v1/invoices/preview", h.PreviewInvoice)
	r.Post("/api/v1/proformas/preview", h.PreviewProforma)
	r.Post("/api/v1/purchase-orders/preview", h.PreviewPurchaseOrder)
	r.Post("/api/v1/purchase-orders", h.SubmitPurchaseOrder)
	r.Post("/api/v1/totals/compute", h.ComputeTotals)
	r.Post("/api/v1/totals/words", h.Words)
	return r
}

func post(t *testing.T, h http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestPreviewInvoiceHandlerAcceptsLenientNumbers(t *testing.T) {
	router := newRouter(t, &fakeCreator{})

	rec := post(t, router, "/api/v1/invoices/preview", `{
		"buyer": {"name": "Globex", "state": "tamil nadu"},
		"items": [
			{"description": "Installation", "qty": "2", "price": "1,000", "discount": 10},
			{"description": "Blank row", "qty": "", "price": null, "discount": "abc"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Flow   string `json:"flow"`
		Items  []struct {
			Amount float64 `json:"amount"`
		} `json:"items"`
		Totals struct {
			Regime     string  `json:"regime"`
			Rounding   string  `json:"rounding"`
			GrandTotal float64 `json:"grandTotal"`
		} `json:"totals"`
		AmountInWords string `json:"amountInWords"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	require.Equal(t, "invoice", res.Flow)
	require.Len(t, res.Items, 2)
	require.Equal(t, 0.0, res.Items[1].Amount)
	require.Equal(t, "intra_state", res.Totals.Regime)
	require.Equal(t, "rupee", res.Totals.Rounding)
	require.Equal(t, 2124.0, res.Totals.GrandTotal)
	require.Equal(t, "Two Thousand One Hundred Twenty Four Rupees Only", res.AmountInWords)
}

func TestPreviewHandlerErrors(t *testing.T) {
	router := newRouter(t, &fakeCreator{})

	rec := post(t, router, "/api/v1/services/preview", `{"buyer":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_JSON", decodeEnvelope(t, rec).Error.Code)

	rec = post(t, router, "/api/v1/purchase-orders/preview", `{"supplier":{"name":""},"items":[{"qty":1,"rate":5}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Equal(t, "required", env.Error.Details["supplier.name"])
}

func TestSubmitPurchaseOrderHandler(t *testing.T) {
	creator := &fakeCreator{}
	router := newRouter(t, creator)

	rec := post(t, router, "/api/v1/purchase-orders",
		`{"supplier":{"name":"Initech","state":"Tamil Nadu"},"items":[{"description":"Cable","qty":3,"rate":12.345}]}`,
		"Idempotency-Key", "po-key")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var receipt struct {
		Mode           string `json:"mode"`
		ID             string `json:"id"`
		IdempotencyKey string `json:"idempotencyKey"`
		Document       struct {
			Totals struct {
				Subtotal   float64 `json:"subtotal"`
				GrandTotal float64 `json:"grandTotal"`
			} `json:"totals"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &receipt))
	require.Equal(t, "sync", receipt.Mode)
	require.Equal(t, "po-1", receipt.ID)
	require.Equal(t, "po-key", receipt.IdempotencyKey)
	require.Equal(t, 37.04, receipt.Document.Totals.Subtotal)
	// 37.04 + 3.33 + 3.33
	require.Equal(t, 43.70, receipt.Document.Totals.GrandTotal)
	require.Equal(t, "purchase_order", creator.flow)
}

func TestComputeTotalsHandler(t *testing.T) {
	router := newRouter(t, &fakeCreator{})

	rec := post(t, router, "/api/v1/totals/compute", `{
		"sellerState": "Goa", "buyerState": "GOA", "rounding": "paise", "gstRate": 12,
		"items": [{"description": "x", "quantity": 1, "unitRate": 99.99}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Lines  []float64 `json:"lines"`
		Totals struct {
			CGST       float64 `json:"cgst"`
			GrandTotal float64 `json:"grandTotal"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	require.Equal(t, []float64{99.99}, res.Lines)
	require.Equal(t, 6.0, res.Totals.CGST)
	require.Equal(t, 111.99, res.Totals.GrandTotal)

	rec = post(t, router, "/api/v1/totals/compute", `{"items": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "required", decodeEnvelope(t, rec).Error.Details["sellerState"])

	rec = post(t, router, "/api/v1/totals/compute", `{"sellerState":"Goa","rounding":"nearest"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWordsHandler(t *testing.T) {
	router := newRouter(t, &fakeCreator{})

	rec := post(t, router, "/api/v1/totals/words", `{"amount":"1500.50"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Words string `json:"words"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	require.Equal(t, "One Thousand Five Hundred Rupees and Fifty Paise Only", res.Words)
}
