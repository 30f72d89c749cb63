package configurator

import (
	"github.com/eel-studio/storefront/internal/domain/catalog"
)

// Event is a user action on the wizard.
type Event interface {
	event()
}

// SelectOption sets Axis to OptionID. Unknown axes or ids are ignored.
type SelectOption struct {
	Axis     catalog.Axis
	OptionID string
}

// Advance moves forward one step when the current gate is satisfied.
type Advance struct{}

// Retreat moves back one step.
type Retreat struct{}

// JumpTo revisits an earlier (or the current) step.
type JumpTo struct {
	Step int
}

// Submitted records gateway acceptance and enters the completed state.
type Submitted struct {
	OrderID string
}

func (SelectOption) event() {}
func (Advance) event()      {}
func (Retreat) event()      {}
func (JumpTo) event()       {}
func (Submitted) event()    {}

// Apply is the wizard's transition function. It never mutates s and returns s
// unchanged for any event that is not legal in s. Once completed, every event is
// ignored.
func Apply(c *catalog.Catalog, s State, e Event) State {
	if s.Completed {
		return s
	}

	switch ev := e.(type) {
	case SelectOption:
		if c == nil || !c.Has(ev.Axis, ev.OptionID) {
			return s
		}
		s.Selection = s.Selection.With(ev.Axis, ev.OptionID)
	case Advance:
		if s.Step < ReviewStep && CanAdvance(s) {
			s.Step++
		}
	case Retreat:
		if s.Step > 0 {
			s.Step--
		}
	case JumpTo:
		if ev.Step >= 0 && ev.Step <= s.Step {
			s.Step = ev.Step
		}
	case Submitted:
		s.Completed = true
		s.OrderID = ev.OrderID
	}
	return s
}
