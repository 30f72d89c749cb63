package configurator

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	"github.com/eel-studio/storefront/internal/errors"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeGateway struct {
	calls   int32
	err     error
	release chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	reqs []order.Request
}

func (g *fakeGateway) Submit(ctx context.Context, req order.Request) (order.Order, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return order.Order{}, g.err
	}
	return order.Order{
		ID:         "order-1",
		BuyerID:    req.BuyerID,
		SizeID:     req.SizeID,
		ResinID:    req.ResinID,
		WoodID:     req.WoodID,
		LegID:      req.LegID,
		TotalPrice: req.TotalPrice,
		Status:     order.StatusPending,
		CreatedAt:  req.CreatedAt,
	}, nil
}

func (g *fakeGateway) Calls() int {
	return int(atomic.LoadInt32(&g.calls))
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []order.Notification
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, msg order.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var buyer = order.Buyer{ID: "user-1", Email: "buyer@example.com", Name: "Kim"}

func completeEngine(t *testing.T, gw Gateway, n Notifier) *Engine {
	t.Helper()
	e := New(catalog.Default(), gw, n, WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	e.SelectOption(catalog.AxisSize, "m")
	e.Advance()
	e.SelectOption(catalog.AxisResin, "ocean-blue")
	e.Advance()
	e.SelectOption(catalog.AxisWood, "walnut")
	e.Advance()
	e.SelectOption(catalog.AxisLeg, "steel-gold")
	e.Advance()
	if got := e.State().Step; got != ReviewStep {
		t.Fatalf("setup step = %d, want %d", got, ReviewStep)
	}
	return e
}

// =============================================================================
// Scenarios
// =============================================================================

func TestScenarioA_Price(t *testing.T) {
	e := completeEngine(t, &fakeGateway{}, nil)

	if got := e.CurrentPrice(); got != 2_100_000 {
		t.Errorf("CurrentPrice() = %d, want 2100000", got)
	}

	// Resin never moves the price.
	e.JumpTo(1)
	e.SelectOption(catalog.AxisResin, "sunset")
	if got := e.CurrentPrice(); got != 2_100_000 {
		t.Errorf("CurrentPrice() after resin change = %d, want 2100000", got)
	}
}

func TestScenarioB_IncompleteSelection(t *testing.T) {
	gw := &fakeGateway{}
	e := New(catalog.Default(), gw, nil, WithState(State{
		Step:      ReviewStep,
		Selection: Selection{Resin: "arctic", Wood: "pine", Leg: "acrylic"},
	}))

	if got := e.CurrentPrice(); got != 230_000 {
		t.Errorf("CurrentPrice() = %d, want 230000", got)
	}

	_, err := e.Submit(context.Background(), buyer)
	if !errors.IsCode(err, errors.CodeIncompleteSelection) {
		t.Fatalf("Submit() error = %v, want INCOMPLETE_SELECTION", err)
	}
	if axis := errors.GetServiceError(err).Details["axis"]; axis != "size" {
		t.Errorf("axis = %v, want size", axis)
	}
	if gw.Calls() != 0 {
		t.Errorf("gateway calls = %d, want 0", gw.Calls())
	}
}

func TestScenarioC_Success(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	e := completeEngine(t, gw, n)

	receipt, err := e.Submit(context.Background(), buyer)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if receipt.Order.ID != "order-1" {
		t.Errorf("order id = %s, want order-1", receipt.Order.ID)
	}
	if !receipt.State.Completed || !e.State().Completed {
		t.Error("engine did not enter completed state")
	}
	if gw.Calls() != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.Calls())
	}
	if n.Count() != 1 {
		t.Fatalf("notifier calls = %d, want 1", n.Count())
	}

	sent := n.sent[0]
	if sent.OrderID != "order-1" || sent.BuyerEmail != buyer.Email {
		t.Errorf("notification = %+v", sent)
	}
	want := order.Summary{
		Size:                "Medium (160 × 85 cm)",
		Resin:               "Ocean Blue",
		Wood:                "Walnut",
		Leg:                 "Brushed Gold",
		TotalPriceFormatted: "2,100,000원",
	}
	if sent.Summary != want {
		t.Errorf("summary = %+v, want %+v", sent.Summary, want)
	}

	req := gw.reqs[0]
	if req.BuyerID != "user-1" || req.TotalPrice != 2_100_000 || req.SizeID != "m" || req.LegID != "steel-gold" {
		t.Errorf("request = %+v", req)
	}
}

func TestScenarioD_Unauthenticated(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	e := completeEngine(t, gw, n)

	_, err := e.Submit(context.Background(), order.Buyer{})
	if !errors.IsCode(err, errors.CodeUnauthenticated) {
		t.Fatalf("Submit() error = %v, want UNAUTHENTICATED", err)
	}
	if gw.Calls() != 0 || n.Count() != 0 {
		t.Errorf("gateway calls = %d, notifier calls = %d, want 0/0", gw.Calls(), n.Count())
	}
}

func TestScenarioE_Bounds(t *testing.T) {
	e := New(catalog.Default(), &fakeGateway{}, nil)
	if got := e.Retreat().Step; got != 0 {
		t.Errorf("Retreat() at 0 step = %d, want 0", got)
	}

	e = completeEngine(t, &fakeGateway{}, nil)
	if got := e.Advance().Step; got != ReviewStep {
		t.Errorf("Advance() at review step = %d, want %d", got, ReviewStep)
	}
}

// =============================================================================
// Submit semantics
// =============================================================================

func TestSubmit_GatewayFailurePreservesState(t *testing.T) {
	gw := &fakeGateway{err: errors.Unavailable("orders table unreachable", nil)}
	n := &fakeNotifier{}
	e := completeEngine(t, gw, n)
	before := e.State()

	_, err := e.Submit(context.Background(), buyer)
	if !errors.IsCode(err, errors.CodeSubmissionFailed) {
		t.Fatalf("Submit() error = %v, want SUBMISSION_FAILED", err)
	}
	if got := errors.GetServiceError(err).Details["gateway_code"]; got != string(errors.CodeServiceUnavailable) {
		t.Errorf("gateway_code = %v", got)
	}
	if e.State() != before {
		t.Errorf("state changed after failure: %+v -> %+v", before, e.State())
	}
	if n.Count() != 0 {
		t.Errorf("notifier calls = %d, want 0", n.Count())
	}

	// Retry without re-entering selections.
	gw.err = nil
	if _, err := e.Submit(context.Background(), buyer); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if gw.Calls() != 2 {
		t.Errorf("gateway calls = %d, want 2", gw.Calls())
	}
}

func TestSubmit_NotificationFailureSwallowed(t *testing.T) {
	n := &fakeNotifier{err: stderrors.New("smtp down")}
	e := completeEngine(t, &fakeGateway{}, n)

	receipt, err := e.Submit(context.Background(), buyer)
	if err != nil {
		t.Fatalf("Submit() error = %v, want nil", err)
	}
	if !receipt.State.Completed {
		t.Error("order should be completed despite notification failure")
	}
}

func TestSubmit_DuplicateRejectedWhileInFlight(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := completeEngine(t, gw, &fakeNotifier{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), buyer)
		done <- err
	}()
	<-gw.entered

	if !e.Submitting() {
		t.Error("Submitting() = false while gateway call outstanding")
	}
	_, err := e.Submit(context.Background(), buyer)
	if !errors.IsCode(err, errors.CodeSubmissionInFlight) {
		t.Errorf("second Submit() error = %v, want SUBMISSION_IN_FLIGHT", err)
	}

	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if gw.Calls() != 1 {
		t.Errorf("gateway calls = %d, want exactly 1", gw.Calls())
	}
}

func TestSubmit_SelectionFrozenWhileInFlight(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := completeEngine(t, gw, nil)

	done := make(chan *Receipt, 1)
	go func() {
		r, err := e.Submit(context.Background(), buyer)
		if err != nil {
			t.Errorf("Submit() error = %v", err)
		}
		done <- r
	}()
	<-gw.entered

	if got := e.SelectOption(catalog.AxisSize, "xl").Selection.Size; got != "m" {
		t.Errorf("SelectOption() mid-submit size = %q, want m", got)
	}
	if got := e.Retreat().Step; got != ReviewStep {
		t.Errorf("Retreat() mid-submit step = %d, want %d", got, ReviewStep)
	}

	close(gw.release)
	receipt := <-done
	if receipt == nil {
		t.Fatal("Submit() returned no receipt")
	}
	state := e.State()
	if state.Selection.Size != receipt.Order.SizeID {
		t.Errorf("completed size = %q, placed order size = %q", state.Selection.Size, receipt.Order.SizeID)
	}
	if got := e.CurrentPrice(); got != receipt.Order.TotalPrice {
		t.Errorf("CurrentPrice() = %d, want placed total %d", got, receipt.Order.TotalPrice)
	}
}

func TestPrecheck(t *testing.T) {
	e := New(catalog.Default(), &fakeGateway{}, nil)
	e.SelectOption(catalog.AxisSize, "m")

	tests := []struct {
		name  string
		buyer order.Buyer
		want  errors.Code
	}{
		{"anonymous", order.Buyer{}, errors.CodeUnauthenticated},
		{"incomplete", buyer, errors.CodeIncompleteSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Precheck(tt.buyer); !errors.IsCode(err, tt.want) {
				t.Errorf("Precheck() error = %v, want %s", err, tt.want)
			}
		})
	}

	full := completeEngine(t, &fakeGateway{}, nil)
	if err := full.Precheck(buyer); err != nil {
		t.Errorf("Precheck() on complete selection error = %v", err)
	}
	full.Close()
	if err := full.Precheck(buyer); !errors.IsCode(err, errors.CodeSessionClosed) {
		t.Errorf("Precheck() after Close error = %v, want SESSION_CLOSED", err)
	}
}

func TestNew_NilCatalogFallsBackToDefault(t *testing.T) {
	e := New(nil, &fakeGateway{}, nil)
	e.SelectOption(catalog.AxisSize, "m")
	if got := e.CurrentPrice(); got != 1_800_000 {
		t.Errorf("CurrentPrice() = %d, want 1800000", got)
	}
	if got := Price(nil, Selection{Size: "m"}); got != 0 {
		t.Errorf("Price(nil) = %d, want 0", got)
	}
}

func TestSubmit_ConcurrentTapsReachGatewayOnce(t *testing.T) {
	gw := &fakeGateway{}
	e := completeEngine(t, gw, nil)

	var wg sync.WaitGroup
	var ok int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Submit(context.Background(), buyer); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	if gw.Calls() != 1 || ok != 1 {
		t.Errorf("gateway calls = %d, successes = %d, want 1/1", gw.Calls(), ok)
	}
}

func TestSubmit_AfterCompletion(t *testing.T) {
	e := completeEngine(t, &fakeGateway{}, nil)
	if _, err := e.Submit(context.Background(), buyer); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err := e.Submit(context.Background(), buyer)
	if !errors.IsCode(err, errors.CodeAlreadySubmitted) {
		t.Errorf("Submit() after completion error = %v, want ALREADY_SUBMITTED", err)
	}
	if got := e.Retreat().Step; got != ReviewStep {
		t.Errorf("Retreat() in completed state moved to %d", got)
	}
}

func TestClose_InFlightResultIgnored(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	n := &fakeNotifier{}
	e := completeEngine(t, gw, n)

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), buyer)
		done <- err
	}()
	<-gw.entered

	e.Close()
	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if e.State().Completed {
		t.Error("torn-down engine recorded the in-flight result")
	}
	// The order was committed, so the announcement still goes out.
	if n.Count() != 1 {
		t.Errorf("notifier calls = %d, want 1", n.Count())
	}

	if _, err := e.Submit(context.Background(), buyer); !errors.IsCode(err, errors.CodeSessionClosed) {
		t.Errorf("Submit() after Close error = %v, want SESSION_CLOSED", err)
	}
	if got := e.SelectOption(catalog.AxisSize, "xl").Selection.Size; got != "m" {
		t.Errorf("SelectOption after Close changed size to %s", got)
	}
}
