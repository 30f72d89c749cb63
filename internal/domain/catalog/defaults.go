package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSnapshot is the studio's standing option set.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Sizes: []SizeOption{
			{ID: "s", Label: "Small", Dimensions: "120 × 70 cm", Description: "2인용 • 소형 공간에 적합", BasePrice: 1_200_000, SortOrder: 1},
			{ID: "m", Label: "Medium", Dimensions: "160 × 85 cm", Description: "4인용 • 표준 다이닝", BasePrice: 1_800_000, SortOrder: 2},
			{ID: "l", Label: "Large", Dimensions: "200 × 100 cm", Description: "6인용 • 넓은 거실 / 홈 오피스", BasePrice: 2_400_000, SortOrder: 3},
			{ID: "xl", Label: "X-Large", Dimensions: "240 × 110 cm", Description: "8인용 • 프리미엄 대형", BasePrice: 3_200_000, SortOrder: 4},
		},
		Resins: []ResinOption{
			{ID: "ocean-blue", Label: "Ocean Blue", Swatch: "#1e4d8c", Description: "깊고 투명한 심해의 블루", SortOrder: 1},
			{ID: "forest-green", Label: "Forest Green", Swatch: "#1a4a2e", Description: "자연 그대로의 녹색 숲", SortOrder: 2},
			{ID: "amber-gold", Label: "Amber Gold", Swatch: "#b45309", Description: "따뜻한 호박색 빛", SortOrder: 3},
			{ID: "midnight", Label: "Midnight Black", Swatch: "#0f0f14", Description: "깊이감 있는 매트 블랙", SortOrder: 4},
			{ID: "arctic", Label: "Arctic White", Swatch: "#e8e8f0", Description: "순백의 북극 얼음", SortOrder: 5},
			{ID: "sunset", Label: "Sunset Red", Swatch: "#7c1e1e", Description: "붉은 노을의 따뜻함", SortOrder: 6},
		},
		Woods: []WoodOption{
			{ID: "walnut", Label: "Walnut", Description: "짙은 갈색 결, 고급스러운 분위기", Swatch: "#4a2c1a", PriceAddition: 200_000, SortOrder: 1},
			{ID: "oak", Label: "White Oak", Description: "밝은 크림색 결, 따뜻하고 자연스러움", Swatch: "#c9a97a", SortOrder: 2},
			{ID: "ash", Label: "Ash Wood", Description: "회색빛 흰색 결, 모던하고 심플함", Swatch: "#a89880", SortOrder: 3},
			{ID: "pine", Label: "Black Pine", Description: "짙은 흑색 결, 강렬한 존재감", Swatch: "#2a1f1a", PriceAddition: 150_000, SortOrder: 4},
		},
		Legs: []LegOption{
			{ID: "steel-black", Label: "Steel Black", Description: "매트 블랙 메탈, 인더스트리얼", Swatch: "#1c1c1c", SortOrder: 1},
			{ID: "steel-gold", Label: "Brushed Gold", Description: "브러시드 골드, 럭셔리", Swatch: "#b8952a", PriceAddition: 100_000, SortOrder: 2},
			{ID: "walnut-leg", Label: "Walnut Wood", Description: "원목 월넛 레그, 내추럴", Swatch: "#4a2c1a", SortOrder: 3},
			{ID: "acrylic", Label: "Clear Acrylic", Description: "투명 아크릴, 플로팅 효과", Swatch: "#a0d8f0", PriceAddition: 80_000, SortOrder: 4},
		},
	}
}

// Default returns the default catalog.
func Default() *Catalog {
	c, err := New(DefaultSnapshot())
	if err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}

// LoadYAML reads a snapshot from r and validates it.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return New(snap)
}

// LoadFromPath reads a YAML catalog file.
func LoadFromPath(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
