// Package storage declares the persistence contracts of the storefront. Backends
// live in the supabase, postgres and memory subpackages.
package storage

import (
	"context"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/domain/product"
)

// CatalogStore provides the option catalog.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	SaveCatalog(ctx context.Context, snap catalog.Snapshot) error
}

// OrderFilter narrows an admin order listing. A zero value lists everything.
type OrderFilter struct {
	Status order.Status
	Limit  int
}

// OrderStore persists orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, req order.Request) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error)
	// ListOrdersByBuyer returns the buyer's orders newest first.
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]order.View, error)
	// ListOrders returns all orders newest first, with buyer profiles.
	ListOrders(ctx context.Context, filter OrderFilter) ([]order.View, error)
}

// ProfileStore keeps buyer display profiles.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, id string, p order.Profile) error
}

// ProductStore serves the marketing catalog.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]product.Listing, error)
	GetProduct(ctx context.Context, id string) (product.Detail, error)
}

// Store is a complete backend.
type Store interface {
	CatalogStore
	OrderStore
	ProfileStore
	ProductStore
	Ping(ctx context.Context) error
}
