// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// The top-down ignore-region scan (carry a running last_reg_ignore,
// dropping/inheriting each window's cached region, folding in opaque
// contributions) lives in preprocess.go's second pass, interleaved with
// fade/mode bookkeeping and the to_paint/rebind decisions in the same
// top-down walk. This file keeps the two pieces of that scan that are
// self-contained enough to be worth testing on their own: what a solid
// window occludes, and how its WM frame clips that occlusion.

// opaqueContribution computes the root-coordinate region a solid window
// occludes: its bounding shape, minus the frame if the frame itself isn't
// fully opaque.
func opaqueContribution(w *Window) *Region {
	shape := w.rootBoundingShape()
	if w.FrameOpacity >= 1 {
		return shape
	}
	frame := frameRegion(w)
	if frame.IsEmpty() {
		return shape
	}
	return Subtract(shape, frame)
}

// frameRegion returns the root-coordinate region occupied by the WM frame
// decoration (the margin described by FrameExtents), clamped so that
// top+bottom > height or left+right > width never yields a negative-size
// rectangle.
func frameRegion(w *Window) *Region {
	ext := w.extents()
	fe := w.FrameExtents
	left, right := clampMargin(fe.Left, fe.Right, ext.W)
	top, bottom := clampMargin(fe.Top, fe.Bottom, ext.H)
	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return emptyRegion
	}
	outer := NewRegionFromRect(ext)
	body := NewRegionFromRect(Rect{
		X: ext.X + left,
		Y: ext.Y + top,
		W: ext.W - left - right,
		H: ext.H - top - bottom,
	})
	return Subtract(outer, body)
}

// clampMargin clamps a (near, far) margin pair so its sum never exceeds
// total (their ratio is not preserved), per the documented clamp behavior
// for FrameExtents with left+right > width or top+bottom > height.
func clampMargin(near, far, total int32) (int32, int32) {
	sum := near + far
	if sum <= total || sum == 0 {
		return near, far
	}
	// compton clamps with a simple min() against the full extent instead
	// of scaling, so mirror that:
	// whichever margin is larger absorbs the overflow first.
	if near > far {
		near = total - far
		if near < 0 {
			near = 0
			far = total
		}
	} else {
		far = total - near
		if far < 0 {
			far = 0
			near = total
		}
	}
	return near, far
}
