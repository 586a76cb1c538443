package documents

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/totals"
)

// Handler exposes document previews, submissions and the raw totals tooling.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	h := &Handler{service: service}
	if service != nil {
		h.validator = service.validator
	} else {
		h.validator = NewValidator()
	}
	return h
}

// PreviewService handles POST /api/v1/services/preview.
func (h *Handler) PreviewService(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, FlowService, &ServiceRequest{})
}

// PreviewInvoice handles POST /api/v1/invoices/preview.
func (h *Handler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, FlowInvoice, &ServiceRequest{})
}

// PreviewProforma handles POST /api/v1/proformas/preview.
func (h *Handler) PreviewProforma(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, FlowProforma, &ServiceRequest{})
}

// PreviewPurchaseOrder handles POST /api/v1/purchase-orders/preview.
func (h *Handler) PreviewPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, FlowPurchaseOrder, &PurchaseOrderRequest{})
}

// SubmitService handles POST /api/v1/services.
func (h *Handler) SubmitService(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, FlowService, &ServiceRequest{})
}

// SubmitPurchaseOrder handles POST /api/v1/purchase-orders.
func (h *Handler) SubmitPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, FlowPurchaseOrder, &PurchaseOrderRequest{})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, flow Flow, req Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	if err := decode(r, req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.service.Preview(r.Context(), flow, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, flow Flow, req Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	if err := decode(r, req); err != nil {
		common.WriteError(w, err)
		return
	}
	key, ok := common.IdempotencyKey(r.Context())
	if !ok {
		key = r.Header.Get(common.IdempotencyHeader)
	}
	receipt, err := h.service.Submit(r.Context(), flow, req, key)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if receipt.Mode == ModeAsync {
		status = http.StatusAccepted
	}
	common.Data(w, status, receipt)
}

// ComputeRequest is a raw engine call with every input explicit.
type ComputeRequest struct {
	SellerState string           `json:"sellerState" validate:"required,max=64"`
	BuyerState  string           `json:"buyerState" validate:"max=64"`
	Items       []lineitem.Row   `json:"items" validate:"max=500,dive"`
	Transport   lineitem.Number  `json:"transport"`
	Rounding    totals.Rounding  `json:"rounding"`
	GSTRate     *lineitem.Number `json:"gstRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Regime      totals.Regime    `json:"regime,omitempty" validate:"omitempty,oneof=intra_state inter_state"`
}

// ComputeResponse is the outcome of ComputeTotals.
type ComputeResponse struct {
	Lines         []json.Number `json:"lines"`
	Totals        BreakdownView `json:"totals"`
	AmountInWords string        `json:"amountInWords"`
}

// Compute runs the engine on req and verifies the outcome.
func Compute(req ComputeRequest) (ComputeResponse, error) {
	opts := totals.Options{Rounding: req.Rounding, Regime: req.Regime}
	if req.GSTRate != nil {
		opts.NominalRate = decimal.NewNullDecimal(req.GSTRate.Decimal)
	}
	b := totals.ComputeBreakdown(
		lineitem.Collect(req.Items),
		req.Transport.Decimal,
		totals.Jurisdiction{SellerState: req.SellerState, BuyerState: req.BuyerState},
		opts,
	)
	if err := totals.Verify(b); err != nil {
		return ComputeResponse{}, &common.AppError{
			Code:       "TOTALS_UNRECONCILED",
			Message:    "computed totals failed verification",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	}
	lines := make([]json.Number, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = money(l)
	}
	return ComputeResponse{
		Lines:         lines,
		Totals:        NewBreakdownView(b),
		AmountInWords: totals.AmountInWords(b.GrandTotal),
	}, nil
}

// ComputeTotals handles POST /api/v1/totals/compute.
func (h *Handler) ComputeTotals(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := validationError(h.validator.Struct(&req)); err != nil {
		common.WriteError(w, err)
		return
	}
	resp, err := Compute(req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, resp)
}

// Words handles POST /api/v1/totals/words.
func (h *Handler) Words(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount lineitem.Number `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]string{"words": totals.AmountInWords(req.Amount.Decimal)})
}

func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return common.BadRequest("INVALID_JSON", "request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, err)
		}
		return common.BadRequest("INVALID_JSON", "request body must be valid JSON", nil)
	}
	return nil
}
