package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/product"
	"github.com/eel-studio/storefront/internal/httputil"
)

type catalogResponse struct {
	Catalog catalog.Snapshot `json:"catalog"`
	Steps   []stepView       `json:"steps"`
}

func (h *handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.Catalog.LoadCatalog(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, catalogResponse{Catalog: c.Snapshot(), Steps: steps})
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Products.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []product.Listing{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": list})
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	d, err := h.Products.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}
