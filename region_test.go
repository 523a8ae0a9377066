package main

import "testing"

func rectSet(rs []Rect) map[Rect]struct{} {
	m := make(map[Rect]struct{}, len(rs))
	for _, r := range rs {
		m[r] = struct{}{}
	}
	return m
}

func sameRects(t *testing.T, got []Rect, want []Rect) {
	t.Helper()
	g, w := rectSet(got), rectSet(want)
	if len(g) != len(w) {
		t.Fatalf("rect count mismatch: got %v want %v", got, want)
	}
	for r := range w {
		if _, ok := g[r]; !ok {
			t.Fatalf("missing rect %v in %v", r, got)
		}
	}
}

func TestRegionUnionDisjoint(t *testing.T) {
	a := NewRegionFromRect(Rect{0, 0, 10, 10})
	b := NewRegionFromRect(Rect{20, 20, 10, 10})
	u := Union(a, b)
	sameRects(t, u.Rects(), []Rect{{0, 0, 10, 10}, {20, 20, 10, 10}})
}

func TestRegionIgnoreExample(t *testing.T) {
	// lower at (0,0) 100x100, upper at (20,20)
	// 100x100; lower's ignore region should be the rect (20,20)-(120,120).
	upper := NewRegionFromRect(Rect{20, 20, 100, 100})
	screen := NewRegionFromRect(Rect{0, 0, 1000, 1000})
	ignore := Intersect(upper, screen)
	sameRects(t, ignore.Rects(), []Rect{{20, 20, 100, 100}})
}

func TestRegionSubtract(t *testing.T) {
	a := NewRegionFromRect(Rect{0, 0, 100, 100})
	b := NewRegionFromRect(Rect{25, 25, 50, 50})
	d := Subtract(a, b)
	sameRects(t, d.Rects(), []Rect{
		{0, 0, 100, 25},
		{0, 25, 25, 50},
		{75, 25, 25, 50},
		{0, 75, 100, 25},
	})
}

func TestRegionIntersectEmpty(t *testing.T) {
	a := NewRegionFromRect(Rect{0, 0, 10, 10})
	b := NewRegionFromRect(Rect{50, 50, 10, 10})
	if !Intersect(a, b).IsEmpty() {
		t.Fatalf("expected empty intersection")
	}
}

func TestRegionTranslate(t *testing.T) {
	a := NewRegionFromRect(Rect{0, 0, 10, 10})
	moved := a.Translate(5, -5)
	sameRects(t, moved.Rects(), []Rect{{5, -5, 10, 10}})
}

func TestRegionSharedReference(t *testing.T) {
	// Two windows inheriting the same cached ignore region must share the
	// exact pointer rather than each holding an independent copy.
	shared := NewRegionFromRect(Rect{0, 0, 1, 1})
	w1 := shared
	w2 := shared
	if w1 != w2 {
		t.Fatalf("expected shared region pointer, got distinct copies")
	}
}

func TestRegionEmptyIsNoop(t *testing.T) {
	a := NewRegionFromRect(Rect{0, 0, 10, 10})
	if Union(a, emptyRegion) != a {
		t.Fatalf("union with empty region should return the same region unchanged")
	}
}
