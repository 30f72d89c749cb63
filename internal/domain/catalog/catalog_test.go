package catalog

import (
	"strings"
	"testing"
)

func TestPrice(t *testing.T) {
	c := Default()

	tests := []struct {
		name            string
		size, wood, leg string
		want            int64
	}{
		{"scenario A", "m", "walnut", "steel-gold", 2_100_000},
		{"size only", "s", "", "", 1_200_000},
		{"no size", "", "pine", "acrylic", 230_000},
		{"nothing", "", "", "", 0},
		{"free finishes", "xl", "oak", "steel-black", 3_200_000},
		{"unknown ids", "xxl", "teak", "glass", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Price(tt.size, tt.wood, tt.leg); got != tt.want {
				t.Errorf("Price(%q, %q, %q) = %d, want %d", tt.size, tt.wood, tt.leg, got, tt.want)
			}
		})
	}
}

func TestPrice_AdditionBelongsToOwningAxis(t *testing.T) {
	// A wood id passed as the leg must not pick up the wood's addition.
	c := Default()
	if got := c.Price("m", "", "walnut"); got != 1_800_000 {
		t.Errorf("Price with walnut as leg = %d, want 1800000", got)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"duplicate size", Snapshot{Sizes: []SizeOption{{ID: "m"}, {ID: "m"}}}},
		{"empty resin id", Snapshot{Resins: []ResinOption{{ID: ""}}}},
		{"negative base", Snapshot{Sizes: []SizeOption{{ID: "m", BasePrice: -1}}}},
		{"negative addition", Snapshot{Legs: []LegOption{{ID: "x", PriceAddition: -5}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.snap); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestNew_SameIDAcrossAxesAllowed(t *testing.T) {
	_, err := New(Snapshot{
		Woods: []WoodOption{{ID: "walnut"}},
		Legs:  []LegOption{{ID: "walnut"}},
	})
	if err != nil {
		t.Errorf("New() error = %v, want nil", err)
	}
}

func TestSnapshot_OrderedAndCopied(t *testing.T) {
	c, err := New(Snapshot{Sizes: []SizeOption{
		{ID: "l", SortOrder: 3},
		{ID: "s", SortOrder: 1},
		{ID: "m", SortOrder: 2},
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snap := c.Snapshot()
	got := []string{snap.Sizes[0].ID, snap.Sizes[1].ID, snap.Sizes[2].ID}
	if strings.Join(got, ",") != "s,m,l" {
		t.Errorf("order = %v, want [s m l]", got)
	}

	snap.Sizes[0].ID = "mutated"
	if c.Snapshot().Sizes[0].ID != "s" {
		t.Error("mutating a snapshot changed the catalog")
	}
}

func TestHasAndLabel(t *testing.T) {
	c := Default()

	if !c.Has(AxisResin, "ocean-blue") {
		t.Error("Has(resin, ocean-blue) = false")
	}
	if c.Has(AxisWood, "ocean-blue") {
		t.Error("Has(wood, ocean-blue) = true")
	}
	if c.Has(Axis("glass"), "m") {
		t.Error("Has(unknown axis) = true")
	}
	if got := c.Label(AxisSize, "m"); got != "Medium (160 × 85 cm)" {
		t.Errorf("Label(size, m) = %q", got)
	}
	if got := c.Label(AxisLeg, "steel-gold"); got != "Brushed Gold" {
		t.Errorf("Label(leg, steel-gold) = %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
sizes:
  - id: m
    label: Medium
    size: 160 × 85 cm
    price: 1800000
woods:
  - id: walnut
    label: Walnut
    price_addition: 200000
`
	c, err := LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadYAML() error = %v", err)
	}
	if got := c.Price("m", "walnut", ""); got != 2_000_000 {
		t.Errorf("Price = %d, want 2000000", got)
	}
}

func TestParseAxis(t *testing.T) {
	if a, ok := ParseAxis("leg"); !ok || a != AxisLeg {
		t.Errorf("ParseAxis(leg) = %v, %v", a, ok)
	}
	if _, ok := ParseAxis("top"); ok {
		t.Error("ParseAxis(top) ok = true")
	}
}
