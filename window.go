// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// WindowID is an X window id. 0 (X's "None") is never a valid live id.
type WindowID uint32

// FrameExtents is the WM-decoration margin reported by _NET_FRAME_EXTENTS.
type FrameExtents struct {
	Left, Right, Top, Bottom int32
}

// ForceOverrides is the per-window set of D-Bus remote-control overrides.
// D-Bus itself is an external collaborator; this struct is the shape the
// engine exposes for such a collaborator to mutate.
type ForceOverrides struct {
	Shadow      Tristate
	Fade        Tristate
	Focused     Tristate
	InvertColor Tristate
}

// Window is one record per live X window the engine knows about.
type Window struct {
	ID       WindowID
	Geometry Rect // X, Y, W, H; BorderWidth kept separately below
	BorderWidth int32

	ClientID WindowID // the WM-client child, or ID itself if none

	MapState        MapState
	Class           WindowClass
	OverrideRedirect bool
	Visual          uint32
	PictFormat      uint32

	Type WindowType

	BoundingShape  *Region // window-local
	RoundedCorners bool

	FrameExtents FrameExtents

	State WindowState

	Opacity    float64
	OpacityTgt float64

	OpacityProp    uint32
	HasOpacityProp bool

	OpacitySet   float64
	OpacityIsSet bool

	Focused bool

	Leader      WindowID
	CacheLeader WindowID
	leaderValid bool

	Shadow bool
	ShadowDX, ShadowDY         int32
	ShadowWidth, ShadowHeight int32

	InvertColor    bool
	Dim            bool
	BlurBackground bool
	FrameOpacity   float64

	Mode PaintMode

	// regIgnore is the shared "occluded by higher opaque windows" region;
	// multiple windows routinely point at the identical *Region (no copy).
	regIgnore      *Region
	regIgnoreValid bool

	everDamaged bool
	hasDamageHandle bool

	// prevTrans links this window to the next-higher window in the
	// current preprocess/pipeline sub-stack; valid only within one cycle.
	prevTrans *Window

	winImage, shadowImage ImageHandle
	flags                 ImageFlags

	toPaint bool

	force ForceOverrides

	// stack linkage, owned by Registry.
	above, below *Window
}

// extents returns the window's on-root-coordinate bounding rectangle
// including its border (the "widthb"/"heightb" size).
func (w *Window) extents() Rect {
	return Rect{
		X: w.Geometry.X,
		Y: w.Geometry.Y,
		W: w.Geometry.W + 2*w.BorderWidth,
		H: w.Geometry.H + 2*w.BorderWidth,
	}
}

func (w *Window) widthb() int32 { return w.Geometry.W + 2*w.BorderWidth }
func (w *Window) heightb() int32 { return w.Geometry.H + 2*w.BorderWidth }

// rootBoundingShape translates the window-local bounding shape into root
// coordinates.
func (w *Window) rootBoundingShape() *Region {
	if w.BoundingShape == nil {
		return NewRegionFromRect(w.extents())
	}
	return w.BoundingShape.Translate(w.Geometry.X, w.Geometry.Y)
}

// opaque reports whether, for ignore-region purposes, this window's body is
// solid.
func (w *Window) opaque() bool {
	return w.Mode == ModeSolid
}

// effectiveAlpha is the opacity actually used for paint-skip decisions;
// anything below 1/255 can't produce a visible pixel.
func (w *Window) effectiveAlpha() float64 {
	return w.Opacity * w.FrameOpacity
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
