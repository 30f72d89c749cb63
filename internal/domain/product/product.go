// Package product models the marketing catalog: finished pieces with galleries and spec sheets.
package product

import "sort"

// Product is a showcased piece.
type Product struct {
	ID          string `json:"id" db:"id"`
	Index       int    `json:"index" db:"index"`
	Name        string `json:"name" db:"name"`
	Subtitle    string `json:"subtitle" db:"subtitle"`
	Description string `json:"description" db:"description"`
	Glow        string `json:"glow" db:"glow"`
	Accent      string `json:"accent" db:"accent"`
	Gradient    string `json:"gradient" db:"gradient"`
}

// Image is one gallery image of a product.
type Image struct {
	ID        string `json:"id" db:"id"`
	ProductID string `json:"product_id" db:"product_id"`
	URL       string `json:"url" db:"url"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// Spec is one row of a product's spec sheet.
type Spec struct {
	ID        string `json:"id" db:"id"`
	ProductID string `json:"product_id" db:"product_id"`
	Label     string `json:"label" db:"label"`
	Value     string `json:"value" db:"value"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// Listing is a product with its images, used by the catalog page.
type Listing struct {
	Product
	Images []Image `json:"images"`
}

// Detail is a product page: the product, its gallery and its specs.
type Detail struct {
	Product Product `json:"product"`
	Images  []Image `json:"images"`
	Specs   []Spec  `json:"specs"`
}

// Cover returns the first image by sort order, if any.
func (l Listing) Cover() (Image, bool) {
	if len(l.Images) == 0 {
		return Image{}, false
	}
	imgs := append([]Image(nil), l.Images...)
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].SortOrder < imgs[j].SortOrder })
	return imgs[0], true
}

// GroupImages attaches images to their products, preserving product order.
func GroupImages(products []Product, images []Image) []Listing {
	byProduct := make(map[string][]Image, len(products))
	for _, img := range images {
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		imgs := byProduct[p.ID]
		sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].SortOrder < imgs[j].SortOrder })
		if imgs == nil {
			imgs = []Image{}
		}
		out = append(out, Listing{Product: p, Images: imgs})
	}
	return out
}
