// Package postgres is the self-hosted backend built on sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/domain/product"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects with the lib/pq driver.
func Open(ctx context.Context, dsn string, maxOpen int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Unavailable("connect postgres", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Unavailable("postgres unreachable", err)
	}
	return nil
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var snap catalog.Snapshot
	if err := s.db.SelectContext(ctx, &snap.Sizes, `
		SELECT id, label, size, description, price, sort_order FROM size_options ORDER BY sort_order
	`); err != nil {
		return nil, dbErr("load sizes", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Resins, `
		SELECT id, label, hex, description, sort_order FROM resin_options ORDER BY sort_order
	`); err != nil {
		return nil, dbErr("load resins", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Woods, `
		SELECT id, label, description, color, price_addition, sort_order FROM wood_options ORDER BY sort_order
	`); err != nil {
		return nil, dbErr("load woods", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Legs, `
		SELECT id, label, description, color, price_addition, sort_order FROM leg_options ORDER BY sort_order
	`); err != nil {
		return nil, dbErr("load legs", err)
	}
	c, err := catalog.New(snap)
	if err != nil {
		return nil, errors.Internal("stored catalog invalid", err)
	}
	return c, nil
}

const (
	upsertSize = `
		INSERT INTO size_options (id, label, size, description, price, sort_order)
		VALUES (:id, :label, :size, :description, :price, :sort_order)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, size = EXCLUDED.size,
			description = EXCLUDED.description, price = EXCLUDED.price, sort_order = EXCLUDED.sort_order`
	upsertResin = `
		INSERT INTO resin_options (id, label, hex, description, sort_order)
		VALUES (:id, :label, :hex, :description, :sort_order)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, hex = EXCLUDED.hex,
			description = EXCLUDED.description, sort_order = EXCLUDED.sort_order`
	upsertFinish = `
		INSERT INTO %s (id, label, description, color, price_addition, sort_order)
		VALUES (:id, :label, :description, :color, :price_addition, :sort_order)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, description = EXCLUDED.description,
			color = EXCLUDED.color, price_addition = EXCLUDED.price_addition, sort_order = EXCLUDED.sort_order`
)

// SaveCatalog upserts every option in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, snap catalog.Snapshot) error {
	if _, err := catalog.New(snap); err != nil {
		return errors.InvalidInput(err.Error())
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr("begin", err)
	}
	defer tx.Rollback()

	for _, o := range snap.Sizes {
		if _, err := tx.NamedExecContext(ctx, upsertSize, o); err != nil {
			return dbErr("upsert size", err)
		}
	}
	for _, o := range snap.Resins {
		if _, err := tx.NamedExecContext(ctx, upsertResin, o); err != nil {
			return dbErr("upsert resin", err)
		}
	}
	for _, o := range snap.Woods {
		if _, err := tx.NamedExecContext(ctx, finishUpsert("wood_options"), o); err != nil {
			return dbErr("upsert wood", err)
		}
	}
	for _, o := range snap.Legs {
		if _, err := tx.NamedExecContext(ctx, finishUpsert("leg_options"), o); err != nil {
			return dbErr("upsert leg", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	return nil
}

func finishUpsert(table string) string {
	return fmt.Sprintf(upsertFinish, table)
}

// --- OrderStore -------------------------------------------------------------

const orderColumns = `id, user_id, size_id, resin_id, wood_id, leg_id, total_price, status, created_at`

func (s *Store) CreateOrder(ctx context.Context, req order.Request) (order.Order, error) {
	o := order.Order{
		ID:         uuid.NewString(),
		BuyerID:    req.BuyerID,
		SizeID:     req.SizeID,
		ResinID:    req.ResinID,
		WoodID:     req.WoodID,
		LegID:      req.LegID,
		TotalPrice: req.TotalPrice,
		Status:     order.StatusPending,
		CreatedAt:  req.CreatedAt,
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :user_id, :size_id, :resin_id, :wood_id, :leg_id, :total_price, :status, :created_at)
	`, o)
	if err != nil {
		return order.Order{}, dbErr("insert order", err)
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return order.Order{}, errors.NotFound("order", id)
	}
	if err != nil {
		return order.Order{}, dbErr("get order", err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `
		UPDATE orders SET status = $2 WHERE id = $1
		RETURNING `+orderColumns, id, status)
	if stderrors.Is(err, sql.ErrNoRows) {
		return order.Order{}, errors.NotFound("order", id)
	}
	if err != nil {
		return order.Order{}, dbErr("update order", err)
	}
	return o, nil
}

// viewRow is one order joined with option labels and the buyer profile.
type viewRow struct {
	ID           string         `db:"id"`
	CreatedAt    time.Time      `db:"created_at"`
	Status       order.Status   `db:"status"`
	TotalPrice   int64          `db:"total_price"`
	UserID       string         `db:"user_id"`
	SizeLabel    sql.NullString `db:"size_label"`
	SizeDims     sql.NullString `db:"size_dims"`
	ResinLabel   sql.NullString `db:"resin_label"`
	ResinHex     sql.NullString `db:"resin_hex"`
	WoodLabel    sql.NullString `db:"wood_label"`
	LegLabel     sql.NullString `db:"leg_label"`
	ProfileName  sql.NullString `db:"profile_name"`
	ProfileEmail sql.NullString `db:"profile_email"`
}

const viewSelect = `
	SELECT o.id, o.created_at, o.status, o.total_price, o.user_id,
		s.label AS size_label, s.size AS size_dims,
		r.label AS resin_label, r.hex AS resin_hex,
		w.label AS wood_label, l.label AS leg_label,
		p.full_name AS profile_name, p.email AS profile_email
	FROM orders o
	LEFT JOIN size_options s ON s.id = o.size_id
	LEFT JOIN resin_options r ON r.id = o.resin_id
	LEFT JOIN wood_options w ON w.id = o.wood_id
	LEFT JOIN leg_options l ON l.id = o.leg_id
	LEFT JOIN profiles p ON p.id = o.user_id`

func (r viewRow) toView(withProfile bool) order.View {
	v := order.View{ID: r.ID, CreatedAt: r.CreatedAt, Status: r.Status, TotalPrice: r.TotalPrice}
	if r.SizeLabel.Valid {
		v.Size = &order.SizeRef{Label: r.SizeLabel.String, Size: r.SizeDims.String}
	}
	if r.ResinLabel.Valid {
		v.Resin = &order.SwatchRef{Label: r.ResinLabel.String, Hex: r.ResinHex.String}
	}
	if r.WoodLabel.Valid {
		v.Wood = &order.LabelRef{Label: r.WoodLabel.String}
	}
	if r.LegLabel.Valid {
		v.Leg = &order.LabelRef{Label: r.LegLabel.String}
	}
	if withProfile {
		v.UserID = r.UserID
		if r.ProfileName.Valid || r.ProfileEmail.Valid {
			v.Profile = &order.Profile{FullName: r.ProfileName.String, Email: r.ProfileEmail.String}
		}
	}
	return v
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]order.View, error) {
	var rows []viewRow
	if err := s.db.SelectContext(ctx, &rows, viewSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, buyerID); err != nil {
		return nil, dbErr("list buyer orders", err)
	}
	out := make([]order.View, len(rows))
	for i, r := range rows {
		out[i] = r.toView(false)
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]order.View, error) {
	query := viewSelect
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` WHERE o.status = $1`
	}
	query += ` ORDER BY o.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var rows []viewRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbErr("list orders", err)
	}
	out := make([]order.View, len(rows))
	for i, r := range rows {
		out[i] = r.toView(true)
	}
	return out, nil
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, id string, p order.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email
	`, id, p.FullName, p.Email)
	if err != nil {
		return dbErr("upsert profile", err)
	}
	return nil
}

// --- ProductStore -----------------------------------------------------------

const productColumns = `id, "index", name, subtitle, description, glow, accent, gradient`

func (s *Store) ListProducts(ctx context.Context) ([]product.Listing, error) {
	var products []product.Product
	if err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY "index"`); err != nil {
		return nil, dbErr("list products", err)
	}
	if len(products) == 0 {
		return []product.Listing{}, nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	var images []product.Image
	if err := s.db.SelectContext(ctx, &images, `
		SELECT id, product_id, url, sort_order FROM product_images
		WHERE product_id = ANY($1) ORDER BY sort_order
	`, pq.Array(ids)); err != nil {
		return nil, dbErr("list product images", err)
	}
	return product.GroupImages(products, images), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Detail, error) {
	var d product.Detail
	err := s.db.GetContext(ctx, &d.Product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return product.Detail{}, errors.NotFound("product", id)
	}
	if err != nil {
		return product.Detail{}, dbErr("get product", err)
	}
	d.Images = []product.Image{}
	if err := s.db.SelectContext(ctx, &d.Images, `
		SELECT id, product_id, url, sort_order FROM product_images WHERE product_id = $1 ORDER BY sort_order
	`, id); err != nil {
		return product.Detail{}, dbErr("product images", err)
	}
	d.Specs = []product.Spec{}
	if err := s.db.SelectContext(ctx, &d.Specs, `
		SELECT id, product_id, label, value, sort_order FROM product_specs WHERE product_id = $1 ORDER BY sort_order
	`, id); err != nil {
		return product.Detail{}, dbErr("product specs", err)
	}
	return d, nil
}
