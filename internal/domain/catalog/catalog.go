// Package catalog models the four option collections a table is built from
// and the price they imply.
package catalog

import (
	"fmt"
	"sort"
)

// Axis is one dimension of a table configuration.
type Axis string

const (
	AxisSize  Axis = "size"
	AxisResin Axis = "resin"
	AxisWood  Axis = "wood"
	AxisLeg   Axis = "leg"
)

// Axes lists every axis in wizard order.
var Axes = []Axis{AxisSize, AxisResin, AxisWood, AxisLeg}

// ParseAxis converts s to an Axis.
func ParseAxis(s string) (Axis, bool) {
	for _, a := range Axes {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// SizeOption is a table size and its base price.
type SizeOption struct {
	ID          string `json:"id" yaml:"id" db:"id"`
	Label       string `json:"label" yaml:"label" db:"label"`
	Dimensions  string `json:"size" yaml:"size" db:"size"`
	Description string `json:"description,omitempty" yaml:"description" db:"description"`
	BasePrice   int64  `json:"price" yaml:"price" db:"price"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order" db:"sort_order"`
}

// ResinOption is a resin colour. It never affects price.
type ResinOption struct {
	ID          string `json:"id" yaml:"id" db:"id"`
	Label       string `json:"label" yaml:"label" db:"label"`
	Swatch      string `json:"hex" yaml:"hex" db:"hex"`
	Description string `json:"description,omitempty" yaml:"description" db:"description"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order" db:"sort_order"`
}

// FinishOption is a wood or leg choice with a price addition.
type FinishOption struct {
	ID            string `json:"id" yaml:"id" db:"id"`
	Label         string `json:"label" yaml:"label" db:"label"`
	Description   string `json:"description,omitempty" yaml:"description" db:"description"`
	Swatch        string `json:"color" yaml:"color" db:"color"`
	PriceAddition int64  `json:"price_addition" yaml:"price_addition" db:"price_addition"`
	SortOrder     int    `json:"sort_order" yaml:"sort_order" db:"sort_order"`
}

// WoodOption and LegOption share a shape but live in separate collections.
type (
	WoodOption = FinishOption
	LegOption  = FinishOption
)

// Snapshot is the serialisable form of a catalog.
type Snapshot struct {
	Sizes  []SizeOption  `json:"sizes" yaml:"sizes"`
	Resins []ResinOption `json:"resins" yaml:"resins"`
	Woods  []WoodOption  `json:"woods" yaml:"woods"`
	Legs   []LegOption   `json:"legs" yaml:"legs"`
}

// Catalog is an immutable set of option collections. Construct it with New.
type Catalog struct {
	snap Snapshot

	sizes  map[string]SizeOption
	resins map[string]ResinOption
	woods  map[string]WoodOption
	legs   map[string]LegOption
}

// New validates the snapshot and builds a catalog. Collections are ordered by SortOrder.
// Ids must be non-empty and unique within a collection, and prices non-negative.
func New(s Snapshot) (*Catalog, error) {
	c := &Catalog{
		snap: Snapshot{
			Sizes:  append([]SizeOption(nil), s.Sizes...),
			Resins: append([]ResinOption(nil), s.Resins...),
			Woods:  append([]WoodOption(nil), s.Woods...),
			Legs:   append([]LegOption(nil), s.Legs...),
		},
		sizes:  make(map[string]SizeOption, len(s.Sizes)),
		resins: make(map[string]ResinOption, len(s.Resins)),
		woods:  make(map[string]WoodOption, len(s.Woods)),
		legs:   make(map[string]LegOption, len(s.Legs)),
	}

	sort.SliceStable(c.snap.Sizes, func(i, j int) bool { return c.snap.Sizes[i].SortOrder < c.snap.Sizes[j].SortOrder })
	sort.SliceStable(c.snap.Resins, func(i, j int) bool { return c.snap.Resins[i].SortOrder < c.snap.Resins[j].SortOrder })
	sort.SliceStable(c.snap.Woods, func(i, j int) bool { return c.snap.Woods[i].SortOrder < c.snap.Woods[j].SortOrder })
	sort.SliceStable(c.snap.Legs, func(i, j int) bool { return c.snap.Legs[i].SortOrder < c.snap.Legs[j].SortOrder })

	for _, o := range c.snap.Sizes {
		if err := checkOption(AxisSize, o.ID, o.BasePrice, c.sizes); err != nil {
			return nil, err
		}
		c.sizes[o.ID] = o
	}
	for _, o := range c.snap.Resins {
		if err := checkOption(AxisResin, o.ID, 0, c.resins); err != nil {
			return nil, err
		}
		c.resins[o.ID] = o
	}
	for _, o := range c.snap.Woods {
		if err := checkOption(AxisWood, o.ID, o.PriceAddition, c.woods); err != nil {
			return nil, err
		}
		c.woods[o.ID] = o
	}
	for _, o := range c.snap.Legs {
		if err := checkOption(AxisLeg, o.ID, o.PriceAddition, c.legs); err != nil {
			return nil, err
		}
		c.legs[o.ID] = o
	}

	return c, nil
}

func checkOption[T any](axis Axis, id string, price int64, seen map[string]T) error {
	if id == "" {
		return fmt.Errorf("%s option with empty id", axis)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("duplicate %s option id %q", axis, id)
	}
	if price < 0 {
		return fmt.Errorf("%s option %q has negative price %d", axis, id, price)
	}
	return nil
}

// Snapshot returns a copy of the ordered collections.
func (c *Catalog) Snapshot() Snapshot {
	return Snapshot{
		Sizes:  append([]SizeOption(nil), c.snap.Sizes...),
		Resins: append([]ResinOption(nil), c.snap.Resins...),
		Woods:  append([]WoodOption(nil), c.snap.Woods...),
		Legs:   append([]LegOption(nil), c.snap.Legs...),
	}
}

// Has reports whether id exists in axis's collection.
func (c *Catalog) Has(axis Axis, id string) bool {
	switch axis {
	case AxisSize:
		_, ok := c.sizes[id]
		return ok
	case AxisResin:
		_, ok := c.resins[id]
		return ok
	case AxisWood:
		_, ok := c.woods[id]
		return ok
	case AxisLeg:
		_, ok := c.legs[id]
		return ok
	}
	return false
}

func (c *Catalog) Size(id string) (SizeOption, bool) {
	o, ok := c.sizes[id]
	return o, ok
}

func (c *Catalog) Resin(id string) (ResinOption, bool) {
	o, ok := c.resins[id]
	return o, ok
}

func (c *Catalog) Wood(id string) (WoodOption, bool) {
	o, ok := c.woods[id]
	return o, ok
}

func (c *Catalog) Leg(id string) (LegOption, bool) {
	o, ok := c.legs[id]
	return o, ok
}

// Label returns the display label for id on axis, or "" if unknown.
func (c *Catalog) Label(axis Axis, id string) string {
	switch axis {
	case AxisSize:
		if o, ok := c.sizes[id]; ok {
			return fmt.Sprintf("%s (%s)", o.Label, o.Dimensions)
		}
	case AxisResin:
		return c.resins[id].Label
	case AxisWood:
		return c.woods[id].Label
	case AxisLeg:
		return c.legs[id].Label
	}
	return ""
}

// Price is the size's base price plus the wood and leg additions.
// Unknown or empty ids contribute 0; resin never contributes.
func (c *Catalog) Price(sizeID, woodID, legID string) int64 {
	return c.sizes[sizeID].BasePrice + c.woods[woodID].PriceAddition + c.legs[legID].PriceAddition
}
