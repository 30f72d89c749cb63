package configurator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/logging"
)

// Gateway persists a finalized order.
type Gateway interface {
	Submit(ctx context.Context, req order.Request) (order.Order, error)
}

// Notifier announces an accepted order to the operator and the buyer.
type Notifier interface {
	Notify(ctx context.Context, n order.Notification) error
}

// Receipt is the result of a successful submit.
type Receipt struct {
	Order   order.Order   `json:"order"`
	Summary order.Summary `json:"summary"`
	State   State         `json:"state"`
}

// Engine owns one wizard session. It is safe for concurrent use; at most one
// submit is in flight at a time.
type Engine struct {
	mu sync.Mutex

	catalog  *catalog.Catalog
	gateway  Gateway
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time

	state      State
	submitting bool
	closed     bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for swallowed notification failures.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithState restores a previously captured state.
func WithState(s State) Option {
	return func(e *Engine) { e.state = s }
}

// New creates an engine at step 0 with an empty selection. notifier may be nil.
// A nil catalog is replaced by the default one.
func New(c *catalog.Catalog, gateway Gateway, notifier Notifier, opts ...Option) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	e := &Engine{
		catalog:  c,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
		state:    NewState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewDiscard()
	}
	return e
}

// Catalog returns the immutable option catalog the engine was built with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dispatch applies ev and returns the resulting state. A closed engine ignores
// it, and so does one with a submit in flight: the selection is frozen until the
// gateway answers.
func (e *Engine) Dispatch(ev Event) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed && !e.submitting {
		e.state = Apply(e.catalog, e.state, ev)
	}
	return e.state
}

// SelectOption sets axis to optionID. Unknown ids are ignored.
func (e *Engine) SelectOption(axis catalog.Axis, optionID string) State {
	return e.Dispatch(SelectOption{Axis: axis, OptionID: optionID})
}

// Advance moves one step forward when the current step's gate is satisfied.
func (e *Engine) Advance() State {
	return e.Dispatch(Advance{})
}

// Retreat moves one step back.
func (e *Engine) Retreat() State {
	return e.Dispatch(Retreat{})
}

// JumpTo revisits step when it is not ahead of the current one.
func (e *Engine) JumpTo(step int) State {
	return e.Dispatch(JumpTo{Step: step})
}

// CanAdvance reports whether the current step's gate is satisfied.
func (e *Engine) CanAdvance() bool {
	return CanAdvance(e.State())
}

// CurrentPrice derives the price of the current selection.
func (e *Engine) CurrentPrice() int64 {
	return Price(e.catalog, e.State().Selection)
}

// Submitting reports whether a submit is outstanding.
func (e *Engine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Close tears the engine down. Later events are ignored and a submit that is
// still in flight will not write its result back.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Summary renders the selection's labels and formatted price.
func (e *Engine) Summary(sel Selection) order.Summary {
	return order.Summary{
		Size:                e.catalog.Label(catalog.AxisSize, sel.Size),
		Resin:               e.catalog.Label(catalog.AxisResin, sel.Resin),
		Wood:                e.catalog.Label(catalog.AxisWood, sel.Wood),
		Leg:                 e.catalog.Label(catalog.AxisLeg, sel.Leg),
		TotalPriceFormatted: order.FormatKRW(Price(e.catalog, sel)),
	}
}

// Submit forwards the selection to the gateway on behalf of buyer.
//
// Identity and completeness are checked before any external call. A gateway
// failure returns SUBMISSION_FAILED and leaves the state untouched so the buyer
// can retry. On acceptance the engine enters the completed state and the
// notifier is invoked; its failure is logged and never returned.
func (e *Engine) Submit(ctx context.Context, buyer order.Buyer) (*Receipt, error) {
	e.mu.Lock()
	if err := e.precheckLocked(buyer); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	sel := e.state.Selection
	req := order.Request{
		BuyerID:    buyer.ID,
		SizeID:     sel.Size,
		ResinID:    sel.Resin,
		WoodID:     sel.Wood,
		LegID:      sel.Leg,
		TotalPrice: Price(e.catalog, sel),
		CreatedAt:  e.now().UTC(),
	}
	e.submitting = true
	e.mu.Unlock()

	placed, err := e.gateway.Submit(ctx, req)

	e.mu.Lock()
	e.submitting = false
	if err != nil {
		e.mu.Unlock()
		return nil, errors.SubmissionFailed(err)
	}
	if !e.closed {
		e.state = Apply(e.catalog, e.state, Submitted{OrderID: placed.ID})
	}
	state := e.state
	e.mu.Unlock()

	summary := e.Summary(sel)
	e.notify(ctx, placed.ID, buyer, summary)

	return &Receipt{Order: placed, Summary: summary, State: state}, nil
}

// Precheck runs the checks Submit makes before any external call and
// reports the error Submit would return. It lets callers fail fast before
// taking locks or other remote resources.
func (e *Engine) Precheck(buyer order.Buyer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.precheckLocked(buyer)
}

func (e *Engine) precheckLocked(buyer order.Buyer) error {
	switch {
	case e.closed:
		return errors.SessionClosed()
	case e.submitting:
		return errors.SubmissionInFlight()
	case e.state.Completed:
		return errors.AlreadySubmitted()
	case buyer.ID == "":
		return errors.Unauthenticated()
	}
	if missing := e.state.Selection.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, a := range missing {
			names[i] = string(a)
		}
		return errors.IncompleteSelection(names[0], names)
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, orderID string, buyer order.Buyer, summary order.Summary) {
	if e.notifier == nil {
		return
	}
	n := order.Notification{
		OrderID:    orderID,
		BuyerEmail: buyer.Email,
		BuyerName:  buyer.Name,
		Summary:    summary,
	}
	// The order is committed; a caller hanging up must not cancel the announcement.
	if err := e.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		e.logger.WithContext(ctx).WithError(errors.NotificationFailed(err)).WithFields(logrus.Fields{
			"order_id": orderID,
		}).Warn("order notification failed")
	}
}
