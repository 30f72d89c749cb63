package product

import "testing"

func TestGroupImages(t *testing.T) {
	products := []Product{{ID: "p1", Index: 1}, {ID: "p2", Index: 2}}
	images := []Image{
		{ID: "i3", ProductID: "p1", SortOrder: 2},
		{ID: "i1", ProductID: "p1", SortOrder: 1},
		{ID: "i9", ProductID: "orphan", SortOrder: 1},
	}

	got := GroupImages(products, images)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Errorf("product order = %s,%s want p1,p2", got[0].ID, got[1].ID)
	}
	if len(got[0].Images) != 2 || got[0].Images[0].ID != "i1" {
		t.Errorf("p1 images = %+v, want sorted [i1 i3]", got[0].Images)
	}
	if got[1].Images == nil || len(got[1].Images) != 0 {
		t.Errorf("p2 images = %v, want empty non-nil slice", got[1].Images)
	}
}

func TestCover(t *testing.T) {
	l := Listing{Images: []Image{{ID: "b", SortOrder: 5}, {ID: "a", SortOrder: 1}}}
	img, ok := l.Cover()
	if !ok || img.ID != "a" {
		t.Errorf("Cover() = %v, %v, want a", img.ID, ok)
	}
	if _, ok := (Listing{}).Cover(); ok {
		t.Error("Cover() on empty listing ok = true")
	}
}
