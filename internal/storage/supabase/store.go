// Package supabase is the hosted backend: every read and write goes through
// PostgREST with the service key.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/domain/product"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/storage"
	"github.com/eel-studio/storefront/supabase/client"
)

const (
	tableOrders        = "orders"
	tableProfiles      = "profiles"
	tableSizes         = "size_options"
	tableResins        = "resin_options"
	tableWoods         = "wood_options"
	tableLegs          = "leg_options"
	tableProducts      = "products"
	tableProductImages = "product_images"
	tableProductSpecs  = "product_specs"

	imageBucket = "products"

	historyColumns = "id,created_at,status,total_price," +
		"size:size_options(label,size),resin:resin_options(label,hex)," +
		"wood:wood_options(label),leg:leg_options(label)"
	adminColumns = historyColumns + ",user_id,profile:profiles(full_name,email)"
)

// Store implements storage.Store on Supabase.
type Store struct {
	db *client.Client
}

var _ storage.Store = (*Store)(nil)

// New wraps an existing Supabase client.
func New(db *client.Client) *Store {
	return &Store{db: db}
}

// Ping reads one size row.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.db.From(tableSizes).Select("id").Limit(1).Execute(ctx)
	if err != nil {
		return errors.Unavailable("supabase unreachable", err)
	}
	if err := resp.Error(); err != nil {
		return errors.Unavailable("supabase unhealthy", err)
	}
	return nil
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var snap catalog.Snapshot
	if err := s.db.From(tableSizes).Select("*").Order("sort_order", true).ExecuteInto(ctx, &snap.Sizes); err != nil {
		return nil, mapErr("load sizes", err)
	}
	if err := s.db.From(tableResins).Select("*").Order("sort_order", true).ExecuteInto(ctx, &snap.Resins); err != nil {
		return nil, mapErr("load resins", err)
	}
	if err := s.db.From(tableWoods).Select("*").Order("sort_order", true).ExecuteInto(ctx, &snap.Woods); err != nil {
		return nil, mapErr("load woods", err)
	}
	if err := s.db.From(tableLegs).Select("*").Order("sort_order", true).ExecuteInto(ctx, &snap.Legs); err != nil {
		return nil, mapErr("load legs", err)
	}
	c, err := catalog.New(snap)
	if err != nil {
		return nil, errors.Internal("stored catalog invalid", err)
	}
	return c, nil
}

func (s *Store) SaveCatalog(ctx context.Context, snap catalog.Snapshot) error {
	if _, err := catalog.New(snap); err != nil {
		return errors.InvalidInput(err.Error())
	}
	writes := []struct {
		table string
		rows  any
	}{
		{tableSizes, snap.Sizes},
		{tableResins, snap.Resins},
		{tableWoods, snap.Woods},
		{tableLegs, snap.Legs},
	}
	for _, w := range writes {
		resp, err := s.db.From(w.table).ExecuteUpsert(ctx, w.rows, "id")
		if err != nil {
			return mapErr("upsert "+w.table, err)
		}
		if err := resp.Error(); err != nil {
			return mapErr("upsert "+w.table, err)
		}
	}
	return nil
}

// --- OrderStore -------------------------------------------------------------

type orderInsert struct {
	UserID     string `json:"user_id"`
	SizeID     string `json:"size_id"`
	ResinID    string `json:"resin_id"`
	WoodID     string `json:"wood_id"`
	LegID      string `json:"leg_id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func (s *Store) CreateOrder(ctx context.Context, req order.Request) (order.Order, error) {
	row := orderInsert{
		UserID:     req.BuyerID,
		SizeID:     req.SizeID,
		ResinID:    req.ResinID,
		WoodID:     req.WoodID,
		LegID:      req.LegID,
		TotalPrice: req.TotalPrice,
		Status:     string(order.StatusPending),
	}
	if !req.CreatedAt.IsZero() {
		row.CreatedAt = req.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	resp, err := s.db.From(tableOrders).ExecuteInsert(ctx, row)
	if err != nil {
		return order.Order{}, mapErr("insert order", err)
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, mapErr("insert order", err)
	}
	return firstOrder(resp)
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var o order.Order
	err := s.db.From(tableOrders).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &o)
	if err != nil {
		return order.Order{}, mapNotFound("order", id, err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	resp, err := s.db.From(tableOrders).Eq("id", id).ExecuteUpdate(ctx, map[string]string{"status": string(status)})
	if err != nil {
		return order.Order{}, mapErr("update order", err)
	}
	if err := resp.Error(); err != nil {
		return order.Order{}, mapErr("update order", err)
	}
	o, err := firstOrder(resp)
	if errors.IsCode(err, errors.CodeNotFound) {
		return order.Order{}, errors.NotFound("order", id)
	}
	return o, err
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]order.View, error) {
	views := []order.View{}
	err := s.db.From(tableOrders).
		Select(historyColumns).
		Eq("user_id", buyerID).
		Order("created_at", false).
		ExecuteInto(ctx, &views)
	if err != nil {
		return nil, mapErr("list buyer orders", err)
	}
	return views, nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]order.View, error) {
	q := s.db.From(tableOrders).Select(adminColumns).Order("created_at", false)
	if filter.Status != "" {
		q = q.Eq("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	views := []order.View{}
	if err := q.ExecuteInto(ctx, &views); err != nil {
		return nil, mapErr("list orders", err)
	}
	return views, nil
}

func firstOrder(resp *client.Response) (order.Order, error) {
	var rows []order.Order
	if err := resp.JSON(&rows); err != nil {
		return order.Order{}, errors.Internal("decode order", err)
	}
	if len(rows) == 0 {
		return order.Order{}, errors.NotFound("order", "")
	}
	return rows[0], nil
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, id string, p order.Profile) error {
	row := map[string]string{"id": id, "full_name": p.FullName, "email": p.Email}
	resp, err := s.db.From(tableProfiles).ExecuteUpsert(ctx, row, "id")
	if err != nil {
		return mapErr("upsert profile", err)
	}
	if err := resp.Error(); err != nil {
		return mapErr("upsert profile", err)
	}
	return nil
}

// --- ProductStore -----------------------------------------------------------

func (s *Store) ListProducts(ctx context.Context) ([]product.Listing, error) {
	var products []product.Product
	if err := s.db.From(tableProducts).Select("*").Order("index", true).ExecuteInto(ctx, &products); err != nil {
		return nil, mapErr("list products", err)
	}
	if len(products) == 0 {
		return []product.Listing{}, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	var images []product.Image
	err := s.db.From(tableProductImages).Select("*").In("product_id", ids).Order("sort_order", true).ExecuteInto(ctx, &images)
	if err != nil {
		return nil, mapErr("list product images", err)
	}
	s.resolveImageURLs(images)
	return product.GroupImages(products, images), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Detail, error) {
	var d product.Detail
	if err := s.db.From(tableProducts).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &d.Product); err != nil {
		return product.Detail{}, mapNotFound("product", id, err)
	}
	d.Images = []product.Image{}
	if err := s.db.From(tableProductImages).Select("*").Eq("product_id", id).Order("sort_order", true).ExecuteInto(ctx, &d.Images); err != nil {
		return product.Detail{}, mapErr("product images", err)
	}
	d.Specs = []product.Spec{}
	if err := s.db.From(tableProductSpecs).Select("*").Eq("product_id", id).Order("sort_order", true).ExecuteInto(ctx, &d.Specs); err != nil {
		return product.Detail{}, mapErr("product specs", err)
	}
	s.resolveImageURLs(d.Images)
	return d, nil
}

func (s *Store) resolveImageURLs(images []product.Image) {
	for i := range images {
		images[i].URL = s.db.PublicURL(imageBucket, images[i].URL)
	}
}

// --- errors -----------------------------------------------------------------

func mapNotFound(resource, id string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.NoRows() {
		return errors.NotFound(resource, id)
	}
	return mapErr("get "+resource, err)
}

func mapErr(op string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return errors.NotFound(op, "")
		case apiErr.StatusCode == http.StatusConflict || apiErr.Code == "23505":
			return errors.Conflict(apiErr.Message)
		case apiErr.StatusCode >= 500:
			return errors.Unavailable(op, err)
		}
		return errors.Internal(op, err)
	}
	return errors.Unavailable(fmt.Sprintf("%s: supabase request failed", op), err)
}
