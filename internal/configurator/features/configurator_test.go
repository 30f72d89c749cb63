package features

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cucumber/godog"

	"github.com/eel-studio/storefront/internal/configurator"
	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/domain/order"
	svcerrors "github.com/eel-studio/storefront/internal/errors"
)

type recordingGateway struct {
	mu      sync.Mutex
	orders  []order.Request
	failing bool
}

func (g *recordingGateway) Submit(ctx context.Context, req order.Request) (order.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	if g.failing {
		return order.Order{}, svcerrors.Unavailable("orders backend unavailable", nil)
	}
	return order.Order{ID: fmt.Sprintf("order-%d", len(g.orders)), Status: order.StatusPending}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *recordingNotifier) Notify(ctx context.Context, msg order.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

type configuratorTestContext struct {
	catalog  *catalog.Catalog
	gateway  *recordingGateway
	notifier *recordingNotifier
	engine   *configurator.Engine
	buyer    order.Buyer
	receipt  *configurator.Receipt
	err      error
}

func (c *configuratorTestContext) reset() {
	c.catalog = nil
	c.gateway = &recordingGateway{}
	c.notifier = &recordingNotifier{}
	c.engine = nil
	c.buyer = order.Buyer{}
	c.receipt = nil
	c.err = nil
}

func (c *configuratorTestContext) theDefaultOptionCatalog() error {
	c.catalog = catalog.Default()
	return nil
}

func (c *configuratorTestContext) aFreshConfigurator() error {
	c.engine = configurator.New(c.catalog, c.gateway, c.notifier)
	return nil
}

func (c *configuratorTestContext) iSelect(axis, id string) error {
	a, ok := catalog.ParseAxis(axis)
	if !ok {
		return fmt.Errorf("unknown axis %q", axis)
	}
	c.engine.SelectOption(a, id)
	return nil
}

func (c *configuratorTestContext) iHaveConfigured(size, resin, wood, leg string) error {
	picks := []struct {
		axis catalog.Axis
		id   string
	}{
		{catalog.AxisSize, size},
		{catalog.AxisResin, resin},
		{catalog.AxisWood, wood},
		{catalog.AxisLeg, leg},
	}
	for _, p := range picks {
		c.engine.SelectOption(p.axis, p.id)
		c.engine.Advance()
	}
	if step := c.engine.State().Step; step != configurator.ReviewStep {
		return fmt.Errorf("expected review step after configuring, got %d", step)
	}
	return nil
}

func (c *configuratorTestContext) theWizardIsOnTheReviewStepWith(resin, wood, leg string) error {
	c.engine = configurator.New(c.catalog, c.gateway, c.notifier, configurator.WithState(configurator.State{
		Step:      configurator.ReviewStep,
		Selection: configurator.Selection{Resin: resin, Wood: wood, Leg: leg},
	}))
	return nil
}

func (c *configuratorTestContext) iAmSignedInAs(id, email string) error {
	c.buyer = order.Buyer{ID: id, Email: email}
	return nil
}

func (c *configuratorTestContext) theGatewayIsFailing() error {
	c.gateway.failing = true
	return nil
}

func (c *configuratorTestContext) theGatewayRecovers() error {
	c.gateway.failing = false
	return nil
}

func (c *configuratorTestContext) iSubmitTheOrder() error {
	c.receipt, c.err = c.engine.Submit(context.Background(), c.buyer)
	return nil
}

func (c *configuratorTestContext) iGoBack() error {
	c.engine.Retreat()
	return nil
}

func (c *configuratorTestContext) iAdvance() error {
	c.engine.Advance()
	return nil
}

func (c *configuratorTestContext) iJumpToStep(step int) error {
	c.engine.JumpTo(step)
	return nil
}

func (c *configuratorTestContext) theCurrentPriceIs(price int64) error {
	if got := c.engine.CurrentPrice(); got != price {
		return fmt.Errorf("expected price %d, got %d", price, got)
	}
	return nil
}

func (c *configuratorTestContext) theSubmitSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success but got error: %v", c.err)
	}
	if c.receipt == nil || c.receipt.Order.ID == "" {
		return errors.New("expected a receipt with an order id")
	}
	return nil
}

func (c *configuratorTestContext) theSubmitFailsWith(code string) error {
	if c.err == nil {
		return errors.New("expected submit to fail but it succeeded")
	}
	if !svcerrors.IsCode(c.err, svcerrors.Code(code)) {
		return fmt.Errorf("expected code %s, got %v", code, c.err)
	}
	return nil
}

func (c *configuratorTestContext) theMissingAxisIs(axis string) error {
	se := svcerrors.GetServiceError(c.err)
	if se == nil {
		return errors.New("expected a service error")
	}
	if se.Details["axis"] != axis {
		return fmt.Errorf("expected missing axis %q, got %v", axis, se.Details["axis"])
	}
	return nil
}

func (c *configuratorTestContext) theGatewayReceivedOrders(n int) error {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	if len(c.gateway.orders) != n {
		return fmt.Errorf("expected %d gateway calls, got %d", n, len(c.gateway.orders))
	}
	return nil
}

func (c *configuratorTestContext) theDispatcherWasInvokedTimes(n int) error {
	c.notifier.mu.Lock()
	defer c.notifier.mu.Unlock()
	if c.notifier.calls != n {
		return fmt.Errorf("expected %d dispatcher calls, got %d", n, c.notifier.calls)
	}
	return nil
}

func (c *configuratorTestContext) theConfiguratorIsCompleted() error {
	if !c.engine.State().Completed {
		return errors.New("expected completed state")
	}
	return nil
}

func (c *configuratorTestContext) theWizardIsOnStep(step int) error {
	if got := c.engine.State().Step; got != step {
		return fmt.Errorf("expected step %d, got %d", step, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &configuratorTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the default option catalog$`, tc.theDefaultOptionCatalog)
	ctx.Step(`^a fresh configurator$`, tc.aFreshConfigurator)
	ctx.Step(`^I have configured size "([^"]*)", resin "([^"]*)", wood "([^"]*)" and leg "([^"]*)"$`, tc.iHaveConfigured)
	ctx.Step(`^the wizard is on the review step with resin "([^"]*)", wood "([^"]*)" and leg "([^"]*)"$`, tc.theWizardIsOnTheReviewStepWith)
	ctx.Step(`^I am signed in as "([^"]*)" with email "([^"]*)"$`, tc.iAmSignedInAs)
	ctx.Step(`^the gateway is failing$`, tc.theGatewayIsFailing)
	ctx.Step(`^the gateway recovers$`, tc.theGatewayRecovers)

	// When steps
	ctx.Step(`^I select (size|resin|wood|leg) "([^"]*)"$`, tc.iSelect)
	ctx.Step(`^I submit the order$`, tc.iSubmitTheOrder)
	ctx.Step(`^I go back$`, tc.iGoBack)
	ctx.Step(`^I advance$`, tc.iAdvance)
	ctx.Step(`^I jump to step (\d+)$`, tc.iJumpToStep)

	// Then steps
	ctx.Step(`^the current price is (\d+)$`, tc.theCurrentPriceIs)
	ctx.Step(`^the submit succeeds$`, tc.theSubmitSucceeds)
	ctx.Step(`^the submit fails with "([^"]*)"$`, tc.theSubmitFailsWith)
	ctx.Step(`^the missing axis is "([^"]*)"$`, tc.theMissingAxisIs)
	ctx.Step(`^the gateway received (\d+) orders$`, tc.theGatewayReceivedOrders)
	ctx.Step(`^the dispatcher was invoked (\d+) times$`, tc.theDispatcherWasInvokedTimes)
	ctx.Step(`^the configurator is completed$`, tc.theConfiguratorIsCompleted)
	ctx.Step(`^the wizard is on step (\d+)$`, tc.theWizardIsOnStep)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../../features/configurator.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
