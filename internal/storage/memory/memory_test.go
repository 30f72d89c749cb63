package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/domain/product"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/storage"
)

func TestOrders_CreateListUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertProfile(ctx, "u1", order.Profile{FullName: "Kim", Email: "kim@example.com"}))

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.CreateOrder(ctx, order.Request{BuyerID: "u1", SizeID: "m", ResinID: "arctic", WoodID: "walnut", LegID: "steel-gold", TotalPrice: 2_100_000, CreatedAt: base})
	require.NoError(t, err)
	second, err := s.CreateOrder(ctx, order.Request{BuyerID: "u1", SizeID: "s", ResinID: "sunset", WoodID: "oak", LegID: "acrylic", TotalPrice: 1_280_000, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, order.Request{BuyerID: "u2", SizeID: "l", CreatedAt: base})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, first.Status)

	mine, err := s.ListOrdersByBuyer(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")
	assert.Equal(t, "Small", mine[0].Size.Label)
	assert.Equal(t, "120 × 70 cm", mine[0].Size.Size)
	assert.Equal(t, "#7c1e1e", mine[0].Resin.Hex)
	assert.Nil(t, mine[0].Profile, "buyer history omits profile")

	updated, err := s.UpdateOrderStatus(ctx, first.ID, order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)

	confirmed, err := s.ListOrders(ctx, storage.OrderFilter{Status: order.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "u1", confirmed[0].UserID)
	require.NotNil(t, confirmed[0].Profile)
	assert.Equal(t, "Kim", confirmed[0].Profile.FullName)

	all, err := s.ListOrders(ctx, storage.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrders_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetOrder(context.Background(), "missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = s.UpdateOrderStatus(context.Background(), "missing", order.StatusCancelled)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddProduct(product.Product{ID: "river", Index: 2, Name: "River Table"},
		[]product.Image{{ID: "i2", SortOrder: 2}, {ID: "i1", SortOrder: 1}},
		[]product.Spec{{ID: "s1", Label: "Wood", Value: "Walnut", SortOrder: 1}})
	s.AddProduct(product.Product{ID: "ocean", Index: 1, Name: "Ocean Table"}, nil, nil)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ocean", list[0].ID)
	assert.Equal(t, "i1", list[1].Images[0].ID)

	d, err := s.GetProduct(ctx, "river")
	require.NoError(t, err)
	assert.Len(t, d.Images, 2)
	assert.Equal(t, "Walnut", d.Specs[0].Value)

	_, err = s.GetProduct(ctx, "nope")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSaveCatalog_RejectsInvalid(t *testing.T) {
	s := New()
	cat, _ := s.LoadCatalog(context.Background())
	snap := cat.Snapshot()
	snap.Sizes = append(snap.Sizes, snap.Sizes[0])

	err := s.SaveCatalog(context.Background(), snap)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidInput))
}
