package kits

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/lineitem"
)

// Handler exposes kit expansion over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type itemsResponse struct {
	KitID string                `json:"kitId"`
	Name  string                `json:"name"`
	Qty   int                   `json:"qty"`
	Items []lineitem.KitRow     `json:"items"`
	Rows  []lineitem.ServiceRow `json:"rows"`
}

// Items handles GET /api/v1/kits/{id}/items?qty=N.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "kit service not configured", nil)
		return
	}
	qty := common.QueryInt(r, "qty", 1)
	kit, err := h.service.Items(r.Context(), chi.URLParam(r, "id"), decimal.NewFromInt(int64(qty)))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows := make([]lineitem.ServiceRow, len(kit.Items))
	for i, item := range kit.Items {
		rows[i] = item.ServiceRow()
	}
	common.Data(w, http.StatusOK, itemsResponse{KitID: kit.ID, Name: kit.Name, Qty: qty, Items: kit.Items, Rows: rows})
}
