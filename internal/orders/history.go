package orders

import (
	"context"

	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/storage"
)

// HistoryEntry is one row of a buyer's order history.
type HistoryEntry struct {
	order.View
	StatusLabel         string `json:"status_label"`
	TotalPriceFormatted string `json:"total_price_formatted"`
}

// History lists a buyer's own orders.
type History struct {
	store storage.OrderStore
}

func NewHistory(store storage.OrderStore) *History {
	return &History{store: store}
}

// List returns buyerID's orders newest first.
func (h *History) List(ctx context.Context, buyerID string) ([]HistoryEntry, error) {
	if buyerID == "" {
		return nil, errors.Unauthorized("")
	}
	views, err := h.store.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, len(views))
	for i, v := range views {
		out[i] = HistoryEntry{
			View:                v,
			StatusLabel:         v.Status.Label(),
			TotalPriceFormatted: order.FormatKRW(v.TotalPrice),
		}
	}
	return out, nil
}
