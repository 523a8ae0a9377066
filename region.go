// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import "sort"

// Rect is a pixel-aligned rectangle in some coordinate space (window-local
// or root, depending on context). W and H are always >= 0; a rectangle with
// W == 0 or H == 0 is empty and never appears in a normalized Region.
type Rect struct {
	X, Y int32
	W, H int32
}

func (r Rect) empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) right() int32  { return r.X + r.W }
func (r Rect) bottom() int32 { return r.Y + r.H }

// Region is an immutable set of non-overlapping rectangles. Every operation
// below (union, intersect, subtract, translate) returns a new, independent
// Region rather than mutating its receiver, so a *Region can be shared by
// reference (the ignore-region cache, ignore.go, depends on this: many
// windows routinely point at the exact same *Region without copying it).
type Region struct {
	rects []Rect
}

// emptyRegion is the canonical empty region, safe to share since Region is
// never mutated in place.
var emptyRegion = &Region{}

// NewRegion returns an empty region.
func NewRegion() *Region { return emptyRegion }

// NewRegionFromRect returns a region containing a single rectangle.
func NewRegionFromRect(r Rect) *Region {
	if r.empty() {
		return emptyRegion
	}
	return &Region{rects: []Rect{r}}
}

// NewRegionFromRects builds a normalized region from a list of (possibly
// overlapping, unordered) rectangles.
func NewRegionFromRects(rs []Rect) *Region {
	if len(rs) == 0 {
		return emptyRegion
	}
	return combine(nil, rs, func(_, inB bool) bool { return inB })
}

// IsEmpty reports whether the region contains no pixels.
func (r *Region) IsEmpty() bool { return r == nil || len(r.rects) == 0 }

// Rects returns the region's normalized rectangle list. Callers must not
// mutate the returned slice.
func (r *Region) Rects() []Rect {
	if r == nil {
		return nil
	}
	return r.rects
}

// Translate returns a copy of r shifted by (dx, dy).
func (r *Region) Translate(dx, dy int32) *Region {
	if r.IsEmpty() {
		return emptyRegion
	}
	out := make([]Rect, len(r.rects))
	for i, rc := range r.rects {
		out[i] = Rect{X: rc.X + dx, Y: rc.Y + dy, W: rc.W, H: rc.H}
	}
	return &Region{rects: out}
}

// Union returns a ∪ b.
func Union(a, b *Region) *Region {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	return combine(a.rects, b.rects, func(inA, inB bool) bool { return inA || inB })
}

// Intersect returns a ∩ b.
func Intersect(a, b *Region) *Region {
	if a.IsEmpty() || b.IsEmpty() {
		return emptyRegion
	}
	return combine(a.rects, b.rects, func(inA, inB bool) bool { return inA && inB })
}

// Subtract returns a − b.
func Subtract(a, b *Region) *Region {
	if a.IsEmpty() || b.IsEmpty() {
		return a
	}
	return combine(a.rects, b.rects, func(inA, inB bool) bool { return inA && !inB })
}

// combine performs a coordinate-compressed boolean combination of two
// rectangle sets. It is the single primitive behind Union/Intersect/
// Subtract/NewRegionFromRects: build the grid of distinct x/y boundaries
// from both inputs, classify each cell by whether it's covered by a and by
// b, keep the cells op(inA, inB) selects, then coalesce adjacent cells back
// into maximal rectangles.
func combine(a, b []Rect, op func(inA, inB bool) bool) *Region {
	xs := boundarySet(a, b, func(r Rect) (int32, int32) { return r.X, r.right() })
	ys := boundarySet(a, b, func(r Rect) (int32, int32) { return r.Y, r.bottom() })
	if len(xs) < 2 || len(ys) < 2 {
		return emptyRegion
	}

	covered := func(rs []Rect, x0, y0 int32) bool {
		for _, r := range rs {
			if r.X <= x0 && x0 < r.right() && r.Y <= y0 && y0 < r.bottom() {
				return true
			}
		}
		return false
	}

	var cells []Rect
	for yi := 0; yi+1 < len(ys); yi++ {
		y0, y1 := ys[yi], ys[yi+1]
		for xi := 0; xi+1 < len(xs); xi++ {
			x0, x1 := xs[xi], xs[xi+1]
			if op(covered(a, x0, y0), covered(b, x0, y0)) {
				cells = append(cells, Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0})
			}
		}
	}
	return &Region{rects: coalesce(cells)}
}

func boundarySet(a, b []Rect, edges func(Rect) (int32, int32)) []int32 {
	seen := make(map[int32]struct{})
	add := func(rs []Rect) {
		for _, r := range rs {
			lo, hi := edges(r)
			seen[lo] = struct{}{}
			seen[hi] = struct{}{}
		}
	}
	add(a)
	add(b)
	out := make([]int32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// coalesce merges unit cells into maximal rectangles: first horizontally
// (adjacent cells on the same row with the same Y/H), then vertically
// (adjacent rows with identical X/W spans).
func coalesce(cells []Rect) []Rect {
	if len(cells) == 0 {
		return nil
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})

	var rows []Rect
	for i := 0; i < len(cells); {
		row := cells[i]
		j := i + 1
		for j < len(cells) && cells[j].Y == row.Y && cells[j].H == row.H && cells[j].X == row.right() {
			row.W += cells[j].W
			j++
		}
		rows = append(rows, row)
		i = j
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].X != rows[j].X || rows[i].W != rows[j].W {
			if rows[i].X != rows[j].X {
				return rows[i].X < rows[j].X
			}
			return rows[i].W < rows[j].W
		}
		return rows[i].Y < rows[j].Y
	})

	var out []Rect
	for i := 0; i < len(rows); {
		r := rows[i]
		j := i + 1
		for j < len(rows) && rows[j].X == r.X && rows[j].W == r.W && rows[j].Y == r.bottom() {
			r.H += rows[j].H
			j++
		}
		out = append(out, r)
		i = j
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
