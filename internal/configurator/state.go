// Package configurator drives the build-to-order wizard: a linear walk over
// size, resin, wood and leg followed by a review step that submits the order.
package configurator

import (
	"github.com/eel-studio/storefront/internal/domain/catalog"
)

const (
	// ReviewStep is the terminal step. It has no gating axis.
	ReviewStep = 4
	// StepCount is the fixed number of wizard steps.
	StepCount = 5
)

// StepLabels are the display names of the steps, in order.
var StepLabels = [StepCount]string{"사이즈", "레진 색상", "우드 종류", "다리 스타일", "주문"}

// AxisForStep returns the axis gated by step. The review step has none.
func AxisForStep(step int) (catalog.Axis, bool) {
	if step < 0 || step >= ReviewStep {
		return "", false
	}
	return catalog.Axes[step], true
}

// Selection is the partial choice of one option per axis. Empty means unset.
type Selection struct {
	Size  string `json:"size,omitempty"`
	Resin string `json:"resin,omitempty"`
	Wood  string `json:"wood,omitempty"`
	Leg   string `json:"leg,omitempty"`
}

// Get returns the option chosen for axis.
func (s Selection) Get(axis catalog.Axis) string {
	switch axis {
	case catalog.AxisSize:
		return s.Size
	case catalog.AxisResin:
		return s.Resin
	case catalog.AxisWood:
		return s.Wood
	case catalog.AxisLeg:
		return s.Leg
	}
	return ""
}

// With returns a copy of s with axis set to id.
func (s Selection) With(axis catalog.Axis, id string) Selection {
	switch axis {
	case catalog.AxisSize:
		s.Size = id
	case catalog.AxisResin:
		s.Resin = id
	case catalog.AxisWood:
		s.Wood = id
	case catalog.AxisLeg:
		s.Leg = id
	}
	return s
}

// Missing lists the unset axes in wizard order.
func (s Selection) Missing() []catalog.Axis {
	var missing []catalog.Axis
	for _, a := range catalog.Axes {
		if s.Get(a) == "" {
			missing = append(missing, a)
		}
	}
	return missing
}

// Complete reports whether every axis is set.
func (s Selection) Complete() bool {
	return len(s.Missing()) == 0
}

// Price derives the total from s. It is never stored.
func Price(c *catalog.Catalog, s Selection) int64 {
	if c == nil {
		return 0
	}
	return c.Price(s.Size, s.Wood, s.Leg)
}

// State is the wizard's value object. Completed is the absorbing state entered
// after a successful submit.
type State struct {
	Step      int       `json:"step"`
	Selection Selection `json:"selection"`
	Completed bool      `json:"completed"`
	OrderID   string    `json:"orderId,omitempty"`
}

// NewState is step 0 with nothing selected.
func NewState() State {
	return State{}
}

// CanAdvance reports whether the current step's gate is satisfied.
func CanAdvance(s State) bool {
	axis, gated := AxisForStep(s.Step)
	if !gated {
		return s.Step == ReviewStep
	}
	return s.Selection.Get(axis) != ""
}
