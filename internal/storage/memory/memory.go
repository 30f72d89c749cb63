// Package memory is a thread-safe in-memory backend for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/domain/product"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/storage"
)

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	catalog  *catalog.Catalog
	orders   map[string]order.Order
	profiles map[string]order.Profile
	products map[string]product.Product
	images   []product.Image
	specs    []product.Spec
}

var _ storage.Store = (*Store)(nil)

// New creates a store seeded with the default catalog.
func New() *Store {
	return &Store{
		catalog:  catalog.Default(),
		orders:   make(map[string]order.Order),
		profiles: make(map[string]order.Profile),
		products: make(map[string]product.Product),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// --- CatalogStore -----------------------------------------------------------

func (s *Store) LoadCatalog(context.Context) (*catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

func (s *Store) SaveCatalog(_ context.Context, snap catalog.Snapshot) error {
	c, err := catalog.New(snap)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()
	return nil
}

// --- OrderStore -------------------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, req order.Request) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	o := order.Order{
		ID:         uuid.NewString(),
		BuyerID:    req.BuyerID,
		SizeID:     req.SizeID,
		ResinID:    req.ResinID,
		WoodID:     req.WoodID,
		LegID:      req.LegID,
		TotalPrice: req.TotalPrice,
		Status:     order.StatusPending,
		CreatedAt:  created,
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, errors.NotFound("order", id)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, errors.NotFound("order", id)
	}
	o.Status = status
	s.orders[id] = o
	return o, nil
}

func (s *Store) ListOrdersByBuyer(_ context.Context, buyerID string) ([]order.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.View, 0)
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, s.viewLocked(o, false))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListOrders(_ context.Context, filter storage.OrderFilter) ([]order.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.View, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, s.viewLocked(o, true))
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) viewLocked(o order.Order, withProfile bool) order.View {
	v := order.View{
		ID:         o.ID,
		CreatedAt:  o.CreatedAt,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
	}
	if size, ok := s.catalog.Size(o.SizeID); ok {
		v.Size = &order.SizeRef{Label: size.Label, Size: size.Dimensions}
	}
	if resin, ok := s.catalog.Resin(o.ResinID); ok {
		v.Resin = &order.SwatchRef{Label: resin.Label, Hex: resin.Swatch}
	}
	if wood, ok := s.catalog.Wood(o.WoodID); ok {
		v.Wood = &order.LabelRef{Label: wood.Label}
	}
	if leg, ok := s.catalog.Leg(o.LegID); ok {
		v.Leg = &order.LabelRef{Label: leg.Label}
	}
	if withProfile {
		v.UserID = o.BuyerID
		if p, ok := s.profiles[o.BuyerID]; ok {
			v.Profile = &p
		}
	}
	return v
}

func sortNewestFirst(views []order.View) {
	sort.SliceStable(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) UpsertProfile(_ context.Context, id string, p order.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = p
	return nil
}

// --- ProductStore -----------------------------------------------------------

// AddProduct registers a product with its images and specs.
func (s *Store) AddProduct(p product.Product, images []product.Image, specs []product.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	for _, img := range images {
		img.ProductID = p.ID
		s.images = append(s.images, img)
	}
	for _, sp := range specs {
		sp.ProductID = p.ID
		s.specs = append(s.specs, sp)
	}
}

func (s *Store) ListProducts(context.Context) ([]product.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Index < products[j].Index })
	return product.GroupImages(products, s.images), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Detail{}, errors.NotFound("product", id)
	}
	d := product.Detail{Product: p, Images: []product.Image{}, Specs: []product.Spec{}}
	for _, img := range s.images {
		if img.ProductID == id {
			d.Images = append(d.Images, img)
		}
	}
	for _, sp := range s.specs {
		if sp.ProductID == id {
			d.Specs = append(d.Specs, sp)
		}
	}
	sort.SliceStable(d.Images, func(i, j int) bool { return d.Images[i].SortOrder < d.Images[j].SortOrder })
	sort.SliceStable(d.Specs, func(i, j int) bool { return d.Specs[i].SortOrder < d.Specs[j].SortOrder })
	return d, nil
}
