// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import "time"

// PaintExcluder is the externally-supplied window-matching predicate; a
// nil Session.PaintExcluded means nothing is excluded.
type PaintExcluder func(w *Window) bool

// Rebinder retries a window's backend image bind after it goes stale.
// Kept as an injected function, not a hard call into Backend here, so Preprocess can
// be driven in tests without a Backend.
type Rebinder func(w *Window) error

// PreprocessResult is the output of one Preprocess pass: the bottom-most
// window of the paint sub-stack (walk upward via prevTrans), and whether
// the screen should now be redirected.
type PreprocessResult struct {
	SubStackBottom *Window
	WantRedirected bool
}

// Preprocess runs two top-to-bottom passes over the
// stack. The first pass runs the fade step and recomputes dim/mode; the
// second builds the paint sub-stack, maintains the ignore-region cache,
// and decides redirection. finish is forwarded to FadeStep for the state
// transitions a fade convergence triggers; rebind is used for stale-image
// recovery.
func (s *Session) Preprocess(now time.Time, finish func(w *Window, newState WindowState), rebind Rebinder) PreprocessResult {
	var paintedLastFrame map[WindowID]bool
	if s.lastPainted != nil {
		paintedLastFrame = s.lastPainted
	} else {
		paintedLastFrame = map[WindowID]bool{}
	}

	preFadeOpacity := make(map[WindowID]float64)
	s.Registry.TopDown(func(w *Window) bool {
		preFadeOpacity[w.ID] = w.Opacity
		return true
	})

	s.FadeStep(now, finish)

	// First pass: dim, opacity-change damage, frame_opacity/mode recompute.
	s.Registry.TopDown(func(w *Window) bool {
		wasDim := w.Dim
		s.onFactorChange(w)
		if w.Dim != wasDim && paintedLastFrame[w.ID] {
			s.DamageRing.AddDamage(NewRegionFromRect(w.extents()))
		}

		if w.Opacity != preFadeOpacity[w.ID] && paintedLastFrame[w.ID] {
			s.DamageRing.AddDamage(NewRegionFromRect(w.extents()))
		}

		if w.FrameExtents == (FrameExtents{}) {
			w.FrameOpacity = 1
		} else {
			w.FrameOpacity = s.Config.FrameOpacity
		}
		newMode := computeMode(w)
		if newMode != w.Mode {
			w.Mode = newMode
			if paintedLastFrame[w.ID] {
				w.regIgnoreValid = false
			}
		}
		return true
	})

	// Second pass: ignore-region maintenance, to_paint decisions, stale
	// image rebinds, and paint sub-stack construction.
	var t *Window
	lastIgnore := emptyRegion
	topmostSeen := false
	wantRedirected := false
	newPainted := map[WindowID]bool{}

	s.Registry.TopDown(func(w *Window) bool {
		if !w.regIgnoreValid {
			w.regIgnore = nil
			w.regIgnoreValid = true
		}

		toPaint := s.computeToPaint(w)
		if toPaint != w.toPaint {
			w.regIgnoreValid = false
			s.DamageRing.AddDamage(NewRegionFromRect(w.extents()))
		}
		w.toPaint = toPaint

		if !toPaint {
			if w.regIgnore == nil {
				w.regIgnore = lastIgnore
			}
			return true
		}

		w.FrameOpacity = clamp01(w.FrameOpacity)
		// shadow_opacity (config.ShadowOpacity * w.Opacity * w.FrameOpacity)
		// is computed in pipeline.go's paintShadow, where the shadow image
		// is actually composed.

		if w.regIgnore == nil {
			w.regIgnore = lastIgnore
		}

		if w.opaque() {
			lastIgnore = Union(lastIgnore, opaqueContribution(w))
		}

		if s.Config.UnredirIfPossible && !topmostSeen && !s.Config.wintype(w.Type).RedirIgnore {
			topmostSeen = true
			if s.isFullscreenOpaque(w) {
				wantRedirected = false
			} else {
				wantRedirected = true
			}
		} else if !s.Config.UnredirIfPossible {
			wantRedirected = true
		}

		if w.flags&FlagStaleImage != 0 && w.flags&FlagImageError == 0 {
			if rebind != nil {
				if err := rebind(w); err != nil {
					w.flags |= FlagImageError
				} else {
					w.flags &^= FlagStaleImage
				}
			}
		}

		newPainted[w.ID] = true
		w.prevTrans = t
		t = w
		return true
	})

	if !topmostSeen {
		wantRedirected = true
	}

	s.lastPainted = newPainted
	return PreprocessResult{SubStackBottom: t, WantRedirected: wantRedirected}
}

// computeToPaint decides whether a window is worth painting this frame:
// skipped when never damaged, unmapped, effectively invisible, excluded
// by rule, failed its image bind, or fully off-screen.
func (s *Session) computeToPaint(w *Window) bool {
	if !w.everDamaged {
		return false
	}
	if w.State == StateUnmapped {
		return false
	}
	if w.effectiveAlpha() < 1.0/255.0 {
		return false
	}
	if s.PaintExcluded != nil && s.PaintExcluded(w) {
		return false
	}
	if w.flags&FlagImageError != 0 {
		return false
	}
	shape := w.rootBoundingShape()
	if Intersect(shape, s.ScreenRegion).IsEmpty() {
		return false
	}
	return true
}

// computeMode classifies a window's opacity/frame-opacity combination as
// solid, frame-transparent, or transparent.
func computeMode(w *Window) PaintMode {
	const epsilon = 1e-9
	if w.Opacity >= 1-epsilon && w.FrameOpacity >= 1-epsilon {
		return ModeSolid
	}
	if w.FrameOpacity < 1-epsilon {
		return ModeFrameTrans
	}
	return ModeTrans
}

// isFullscreenOpaque is the unredirect-eligibility test: the window must
// exactly cover the screen region (not merely intersect it) and be solid.
func (s *Session) isFullscreenOpaque(w *Window) bool {
	if !w.opaque() {
		return false
	}
	shape := w.rootBoundingShape()
	return Subtract(s.ScreenRegion, shape).IsEmpty() && Subtract(shape, s.ScreenRegion).IsEmpty()
}
