package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/middleware"
	"github.com/eel-studio/storefront/internal/orders"
)

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.History.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []orders.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"orders": entries})
}

func (h *handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	status := order.Status(r.URL.Query().Get("status"))
	listing, err := h.Console.List(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *handler) adminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	status, ok := order.ParseStatus(req.Status)
	if !ok {
		httputil.WriteError(w, r, errors.InvalidInput("unknown status").WithDetails("status", req.Status))
		return
	}

	updated, err := h.Console.UpdateStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"order":        updated,
		"status_label": updated.Status.Label(),
	})
}
