// Package orders persists submitted configurations and serves the buyer
// history and operator console built on top of them.
package orders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/events"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
	"github.com/eel-studio/storefront/internal/storage"
)

// GatewayStore is what the gateway needs from a backend.
type GatewayStore interface {
	storage.CatalogStore
	storage.OrderStore
	storage.ProfileStore
}

// Gateway is the configurator's submission gateway. It only accepts orders
// placed by the identity carried on the request context.
type Gateway struct {
	store     GatewayStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logging.Logger
}

var _ configurator.Gateway = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithPublisher sets the sink for order.submitted events.
func WithPublisher(p events.Publisher) GatewayOption {
	return func(g *Gateway) { g.publisher = p }
}

// WithMetrics records submission outcomes on m.
func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the gateway's logger.
func WithLogger(l *logging.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// NewGateway creates a gateway over store.
func NewGateway(store GatewayStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:     store,
		publisher: events.NopPublisher{},
		log:       logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit validates req against the current catalog and persists it.
func (g *Gateway) Submit(ctx context.Context, req order.Request) (order.Order, error) {
	start := time.Now()
	placed, err := g.submit(ctx, req)
	if g.metrics != nil {
		outcome := "accepted"
		if se := errors.GetServiceError(err); se != nil {
			outcome = string(se.Code)
		} else if err != nil {
			outcome = string(errors.CodeInternal)
		}
		g.metrics.RecordOrderSubmission(outcome, time.Since(start))
	}
	return placed, err
}

func (g *Gateway) submit(ctx context.Context, req order.Request) (order.Order, error) {
	uid := logging.GetUserID(ctx)
	if uid == "" {
		return order.Order{}, errors.Unauthorized("")
	}
	if uid != req.BuyerID {
		g.log.LogSecurityEvent(ctx, "order_identity_mismatch", map[string]interface{}{
			"buyer_id": req.BuyerID,
		})
		return order.Order{}, errors.Forbidden("orders can only be placed for the signed-in buyer")
	}

	cat, err := g.store.LoadCatalog(ctx)
	if err != nil {
		return order.Order{}, err
	}
	if err := checkRequest(cat, req); err != nil {
		return order.Order{}, err
	}

	if p, ok := ProfileFromContext(ctx); ok {
		if err := g.store.UpsertProfile(ctx, req.BuyerID, p); err != nil {
			g.log.WithContext(ctx).WithError(err).Warn("profile upsert failed")
		}
	}

	placed, err := g.store.CreateOrder(ctx, req)
	if err != nil {
		return order.Order{}, err
	}

	g.log.WithContext(ctx).WithFields(logrus.Fields{
		"order_id":    placed.ID,
		"total_price": placed.TotalPrice,
	}).Info("order accepted")

	publish(context.WithoutCancel(ctx), g.publisher, g.metrics, g.log, events.OrderSubmitted(placed))
	return placed, nil
}

// checkRequest rejects ids outside the catalog and prices that disagree with it.
func checkRequest(cat *catalog.Catalog, req order.Request) error {
	ids := map[catalog.Axis]string{
		catalog.AxisSize:  req.SizeID,
		catalog.AxisResin: req.ResinID,
		catalog.AxisWood:  req.WoodID,
		catalog.AxisLeg:   req.LegID,
	}
	for _, axis := range catalog.Axes {
		if !cat.Has(axis, ids[axis]) {
			return errors.InvalidInput("unknown " + string(axis) + " option").WithDetails("axis", string(axis))
		}
	}
	if want := cat.Price(req.SizeID, req.WoodID, req.LegID); want != req.TotalPrice {
		return errors.InvalidInput("total price does not match the catalog").
			WithDetails("expected", want).
			WithDetails("got", req.TotalPrice)
	}
	return nil
}

func publish(ctx context.Context, p events.Publisher, m *metrics.Metrics, log *logging.Logger, ev events.Event) {
	err := p.Publish(ctx, ev)
	if m != nil {
		m.RecordEvent(ev.Type, err == nil)
	}
	if err != nil {
		log.WithContext(ctx).WithError(err).WithField("order_id", ev.OrderID).Warn("order event not published")
	}
}

type profileKey struct{}

// WithProfile attaches the buyer's display profile for the gateway to store.
func WithProfile(ctx context.Context, p order.Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

// ProfileFromContext returns the profile set by WithProfile.
func ProfileFromContext(ctx context.Context) (order.Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(order.Profile)
	return p, ok
}
