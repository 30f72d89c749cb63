package orders

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/events"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
	"github.com/eel-studio/storefront/internal/storage"
)

// Listing is the operator's order table.
type Listing struct {
	Orders []order.View            `json:"orders"`
	Counts map[order.Status]int    `json:"counts"`
	Total  int                     `json:"total"`
	Labels map[order.Status]string `json:"labels"`
}

// Console is the operator view over every order. Status changes are applied
// to the local view first and reverted if the backend rejects them.
type Console struct {
	store     storage.OrderStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logging.Logger

	mu    sync.Mutex
	views map[string]*order.View
	order []string
}

// NewConsole creates a console. publisher, m and log may be nil.
func NewConsole(store storage.OrderStore, publisher events.Publisher, m *metrics.Metrics, log *logging.Logger) *Console {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Console{
		store:     store,
		publisher: publisher,
		metrics:   m,
		log:       log,
		views:     make(map[string]*order.View),
	}
}

// List reloads every order, replaces the local view and returns the rows
// matching status (all rows when status is empty). Counts cover all orders.
func (c *Console) List(ctx context.Context, status order.Status) (Listing, error) {
	if status != "" && !status.Valid() {
		return Listing{}, errors.InvalidInput("unknown status").WithDetails("status", string(status))
	}
	views, err := c.store.ListOrders(ctx, storage.OrderFilter{})
	if err != nil {
		return Listing{}, err
	}

	c.mu.Lock()
	c.views = make(map[string]*order.View, len(views))
	c.order = c.order[:0]
	for i := range views {
		v := views[i]
		c.views[v.ID] = &v
		c.order = append(c.order, v.ID)
	}
	listing := c.snapshotLocked(status)
	c.mu.Unlock()
	return listing, nil
}

// Snapshot returns the local view without reloading.
func (c *Console) Snapshot(status order.Status) Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(status)
}

func (c *Console) snapshotLocked(status order.Status) Listing {
	l := Listing{
		Orders: []order.View{},
		Counts: make(map[order.Status]int, len(order.StatusSequence)),
		Labels: make(map[order.Status]string, len(order.StatusSequence)),
		Total:  len(c.order),
	}
	for _, s := range order.StatusSequence {
		l.Counts[s] = 0
		l.Labels[s] = s.Label()
	}
	for _, id := range c.order {
		v := c.views[id]
		l.Counts[v.Status]++
		if status == "" || v.Status == status {
			l.Orders = append(l.Orders, *v)
		}
	}
	return l
}

// UpdateStatus sets order id to status. The local view changes immediately;
// when the backend fails it is restored to the last confirmed status.
func (c *Console) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	if !status.Valid() {
		return order.Order{}, errors.InvalidInput("unknown status").WithDetails("status", string(status))
	}

	c.mu.Lock()
	var previous order.Status
	local, tracked := c.views[id]
	if tracked {
		previous = local.Status
		local.Status = status
	}
	c.mu.Unlock()

	updated, err := c.store.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		if tracked {
			c.mu.Lock()
			if v, ok := c.views[id]; ok && v.Status == status {
				v.Status = previous
			}
			c.mu.Unlock()
		}
		c.log.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"order_id": id,
			"status":   status,
		}).Warn("status update failed; reverted")
		return order.Order{}, err
	}

	if c.metrics != nil {
		c.metrics.RecordStatusChange(string(status))
	}
	c.log.WithContext(ctx).WithFields(logrus.Fields{
		"order_id": id,
		"from":     previous,
		"to":       status,
	}).Info("order status changed")
	publish(context.WithoutCancel(ctx), c.publisher, c.metrics, c.log, events.StatusChanged(updated, previous))
	return updated, nil
}
