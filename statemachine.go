// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"log"
	"math"
	"time"
)

// WindowInfo is the bundle of freshly-queried X state a map or
// property-change transition needs. The dispatcher (dispatch.go) gathers
// this via the xconn transport; the state machine itself never talks to X
// directly, so it can be driven and tested without a live display.
type WindowInfo struct {
	Geometry     Rect
	BorderWidth  int32
	ClientID     WindowID
	Class        WindowClass
	MapState     MapState
	Visual       uint32
	PictFormat   uint32
	OverrideRedir bool
	Type          WindowType

	BoundingShape *Region // window-local, nil if unshaped

	FrameExtents FrameExtents

	HasOpacityProp bool
	OpacityProp    uint32 // raw CARDINAL, scale OPAQUE=0xFFFFFFFF

	OpacityIsSet bool    // matched an opacity rule
	OpacitySet   float64

	HasShadowProp bool // _COMPTON_SHADOW present
	ShadowProp    uint32

	Leader WindowID
}

// roundedCornerP, roundedCornerK tune rounded-corner detection: the
// largest rectangle of a shaped window must span nearly the full extent
// (within 5% or 10px) for the window to count as square-cornered.
const (
	roundedCornerP = 0.05
	roundedCornerK = 10
)

// computeRoundedCorners reports whether a bounding region has rounded
// corners: true iff no rectangle of the region has both width >= minw and
// height >= minh.
func computeRoundedCorners(shape *Region, w, h int32) bool {
	minw := math.Max(float64(w)*(1-roundedCornerP), float64(w)-roundedCornerK)
	minh := math.Max(float64(h)*(1-roundedCornerP), float64(h)-roundedCornerK)
	for _, r := range shape.Rects() {
		if float64(r.W) >= minw && float64(r.H) >= minh {
			return false
		}
	}
	return true
}

// opacityFromProp converts a raw _NET_WM_WINDOW_OPACITY CARDINAL
// (OPAQUE == 0xFFFFFFFF) to [0,1].
func opacityFromProp(v uint32) float64 {
	return float64(v) / float64(0xFFFFFFFF)
}

// computeOpacityTarget derives opacity_tgt from the window's rule-set
// opacity, user property, focus state and window-type default, in that
// precedence: an explicit opacity rule wins over the user property, which
// wins over the type/focus-driven active/inactive default (compton's
// win_calc_opacity ordering).
func computeOpacityTarget(w *Window, cfg *Config) float64 {
	if w.OpacityIsSet {
		return clamp01(w.OpacitySet)
	}
	if w.HasOpacityProp {
		return clamp01(opacityFromProp(w.OpacityProp))
	}
	wt := cfg.wintype(w.Type)
	if w.Focused || wt.Focus {
		return clamp01(cfg.ActiveOpacity)
	}
	return clamp01(cfg.InactiveOpacity)
}

// Map runs the map transition: Unmapped -> Mapping (or, while Unmapping,
// a skip-fade back to Mapped first). `unredirected` reflects whether the
// screen is currently redirected; without redirection there is nothing to
// fade against, so the window jumps straight to Mapped.
func (s *Session) Map(w *Window, info WindowInfo, unredirected bool) {
	if w.State == StateUnmapping {
		// A map arriving mid-unmap skip-fades the unmap first.
		w.Opacity = w.OpacityTgt
		s.finishUnmap(w)
	}

	w.MapState = MapStateViewable
	w.Geometry = info.Geometry
	w.BorderWidth = info.BorderWidth
	w.ClientID = info.ClientID
	w.Class = info.Class
	w.Visual = info.Visual
	w.PictFormat = info.PictFormat
	w.OverrideRedirect = info.OverrideRedir
	w.Type = info.Type
	w.BoundingShape = info.BoundingShape
	w.FrameExtents = info.FrameExtents
	w.HasOpacityProp = info.HasOpacityProp
	w.OpacityProp = info.OpacityProp
	w.OpacityIsSet = info.OpacityIsSet
	w.OpacitySet = info.OpacitySet
	w.Leader = info.Leader
	w.leaderValid = false

	if s.Config.DetectRoundedCorners {
		w.RoundedCorners = computeRoundedCorners(w.rootBoundingShape().Translate(-w.Geometry.X, -w.Geometry.Y), w.widthb(), w.heightb())
	}

	w.Opacity = 0
	w.OpacityTgt = computeOpacityTarget(w, s.Config)
	w.State = StateMapping
	w.flags |= FlagStaleImage
	w.flags &^= FlagImageError

	s.onFactorChange(w)

	if unredirected {
		w.Opacity = w.OpacityTgt
		w.State = StateMapped
		return
	}
	s.armFade()
}

// armFade anchors the fade clock at the instant a transition starts a
// fade, so the first FadeStep measures elapsed time from the transition
// itself rather than from whenever the loop last ticked. A fade already in
// flight keeps its baseline: resetting it would stall every other fading
// window.
func (s *Session) armFade() {
	if !s.FadeRunning {
		s.FadeTime = s.now()
	}
}

// Unmap runs the unmap transition, for both the destroy=false (fade out,
// stay in stack as Unmapping) and destroy=true (remove from hash
// immediately, fade out as Destroying) cases.
func (s *Session) Unmap(w *Window, destroy bool) {
	w.MapState = MapStateUnmapped
	w.OpacityTgt = 0
	s.armFade()
	if destroy {
		w.State = StateDestroying
		s.Registry.Remove(w.ID)
		return
	}
	w.State = StateUnmapping
}

// Configure applies a geometry change to a viewable window: geometry
// update, shape/extents recompute, and damage of both the vacated and the
// newly-occupied extents. damage is the session's damage accumulator
// (typically s.DamageRing, injected explicitly so tests can assert on it
// without a live ring).
func (s *Session) Configure(w *Window, newGeom Rect, borderWidth int32, damage *DamageRing) {
	if w.MapState != MapStateViewable {
		w.Geometry = newGeom
		w.BorderWidth = borderWidth
		return
	}
	old := w.extents()
	w.Geometry = newGeom
	w.BorderWidth = borderWidth
	resized := old.W != w.widthb() || old.H != w.heightb()

	if resized {
		w.flags |= FlagStaleImage
	}

	damage.AddDamage(NewRegionFromRect(old))
	damage.AddDamage(NewRegionFromRect(w.extents()))

	if newGeom.W <= 0 || newGeom.H <= 0 {
		w.BoundingShape = emptyRegion
	}

	w.regIgnoreValid = false
}

// PropertyChanged re-derives the fields affected by a property change on
// one of the tracked atoms and reruns onFactorChange. prop identifies
// which property changed; info carries the freshly-read
// value(s) relevant to it.
func (s *Session) PropertyChanged(w *Window, prop TrackedAtom, info WindowInfo) {
	switch prop {
	case AtomWindowType:
		w.Type = info.Type
	case AtomOpacity:
		w.HasOpacityProp = info.HasOpacityProp
		w.OpacityProp = info.OpacityProp
		w.OpacityTgt = computeOpacityTarget(w, s.Config)
		if w.State == StateMapped {
			w.State = StateFading
			s.armFade()
		}
	case AtomFrameExtents:
		w.FrameExtents = info.FrameExtents
	case AtomClass, AtomName, AtomRole:
		// Only affects window-matching rules, an external collaborator;
		// nothing to recompute here beyond re-running onFactorChange in
		// case a rule result changed.
	case AtomTransientFor, AtomClientLeader:
		w.Leader = info.Leader
		w.leaderValid = false
		clearLeaderCache(s)
	case AtomComptonShadow:
		// A CARDINAL value of 0 disables the shadow outright, regardless
		// of the window-type default.
		w.force.Shadow = TristateUnset
		if info.HasShadowProp && info.ShadowProp == 0 {
			w.force.Shadow = TristateOff
		}
	}
	s.onFactorChange(w)
}

// onFactorChange recomputes shadow/invert-color/blur/focus/dim after
// anything that could affect them changes. It is the single place
// those derived fields are set, so every transition observes them the same
// way.
func (s *Session) onFactorChange(w *Window) {
	wt := s.Config.wintype(w.Type)

	w.Focused = s.computeFocused(w)

	shadowDefault := wt.Shadow && !w.RoundedCornersExcluded()
	w.Shadow = w.force.Shadow.resolve(shadowDefault)
	if w.Shadow {
		w.ShadowDX = int32(s.Config.ShadowOffsetX)
		w.ShadowDY = int32(s.Config.ShadowOffsetY)
		w.ShadowWidth = w.widthb() + 2*int32(s.Config.ShadowRadius)
		w.ShadowHeight = w.heightb() + 2*int32(s.Config.ShadowRadius)
	}

	w.InvertColor = w.force.InvertColor.resolve(false)
	w.BlurBackground = s.Config.BlurBackground

	w.Dim = !w.Focused && s.Config.InactiveDim > 0
}

// RoundedCornersExcluded reports whether rounded-corner detection should
// suppress this window's shadow (compton/picom convention: a detected
// rounded-rect window usually wants no hard-edged drop shadow unless the
// user forces one).
func (w *Window) RoundedCornersExcluded() bool {
	return w.RoundedCorners
}

// SetActiveWindow updates the focus bookkeeping after _NET_ACTIVE_WINDOW
// changes on root: resolve the active toplevel's leader, then rerun onFactorChange on every window so grouped
// windows pick the change up together, damaging those whose focus flipped.
func (s *Session) SetActiveWindow(id WindowID) {
	s.ActiveWindow = id
	s.ActiveLeader = 0
	active := s.Registry.FindWindow(id)
	if active == nil {
		active = s.Registry.FindToplevel(id)
	}
	if active != nil {
		s.ActiveLeader = s.effectiveLeader(active)
	}
	s.Registry.TopDown(func(w *Window) bool {
		was := w.Focused
		s.onFactorChange(w)
		if w.Focused != was {
			s.DamageRing.AddDamage(NewRegionFromRect(w.extents()))
			w.OpacityTgt = computeOpacityTarget(w, s.Config)
			if w.State == StateMapped && w.Opacity != w.OpacityTgt {
				w.State = StateFading
				s.armFade()
			}
		}
		return true
	})
}

func (s *Session) computeFocused(w *Window) bool {
	if !s.Config.TrackFocus && !s.Config.UseEwmhActiveWin {
		return s.Config.wintype(w.Type).Focus
	}
	leader := s.effectiveLeader(w)
	if leader != 0 && leader == s.ActiveLeader {
		return true
	}
	return w.ID == s.ActiveWindow || w.ClientID == s.ActiveWindow
}

// effectiveLeader resolves WM_CLIENT_LEADER / WM_TRANSIENT_FOR following
// compton's win_get_leader rules: walk the leader chain transitively, stopping at the first window that is its own leader (a
// self-leader IS the group representative) or at a cycle; memoized in
// CacheLeader until invalidated by a property change on either atom.
func (s *Session) effectiveLeader(w *Window) WindowID {
	if w.leaderValid {
		return w.CacheLeader
	}
	leader := w.Leader
	seen := map[WindowID]bool{w.ID: true}
	for leader != 0 && !seen[leader] {
		seen[leader] = true
		next := s.Registry.FindToplevel(leader)
		if next == nil {
			next = s.Registry.FindWindow(leader)
		}
		if next == nil || next.Leader == 0 || next.Leader == next.ID {
			break
		}
		leader = next.Leader
	}
	w.CacheLeader = leader
	w.leaderValid = true
	return leader
}

func clearLeaderCache(s *Session) {
	s.Registry.TopDown(func(w *Window) bool {
		w.leaderValid = false
		return true
	})
}

// FadeStep advances every transient window's opacity by the fade ticks
// elapsed since the last step. now is the current time; the session's
// FadeTime/FadeRunning bookkeeping advances by whole fade-delta
// increments, floor((now-fade_time)/fade_delta) at a time. finish is called for each
// window whose state transition needs side effects the state machine can't
// perform alone (releasing backend images, unlinking from the stack);
// finish may free w, so the caller must not touch w afterward.
func (s *Session) FadeStep(now time.Time, finish func(w *Window, newState WindowState)) {
	delta := time.Duration(s.Config.FadeDelta) * time.Millisecond
	if delta <= 0 {
		delta = time.Millisecond
	}
	if s.FadeTime.IsZero() {
		s.FadeTime = now
	}
	steps := int(now.Sub(s.FadeTime) / delta)
	if steps < 0 {
		steps = 0
	}
	s.FadeTime = s.FadeTime.Add(time.Duration(steps) * delta)

	running := false
	var fading []*Window
	s.Registry.TopDown(func(w *Window) bool {
		if w.State.transient() {
			fading = append(fading, w)
		}
		return true
	})

	for _, w := range fading {
		if !w.force.Fade.resolve(s.Config.wintype(w.Type).Fade) {
			// Fading disabled for this window: jump straight to the
			// target and run the convergence transition now.
			w.Opacity = w.OpacityTgt
			s.convergeFade(w, finish)
			continue
		}
		stepSize := s.Config.FadeInStep
		if w.OpacityTgt < w.Opacity {
			stepSize = s.Config.FadeOutStep
		}
		delta := stepSize * float64(steps)
		if w.Opacity < w.OpacityTgt {
			w.Opacity = clamp01(math.Min(w.Opacity+delta, w.OpacityTgt))
		} else {
			w.Opacity = clamp01(math.Max(w.Opacity-delta, w.OpacityTgt))
		}

		if w.Opacity == w.OpacityTgt {
			s.convergeFade(w, finish)
		} else {
			running = true
		}
	}
	s.FadeRunning = running
}

// convergeFade performs the per-state transition that fires once opacity
// has converged on its target.
func (s *Session) convergeFade(w *Window, finish func(w *Window, newState WindowState)) {
	switch w.State {
	case StateMapping:
		w.State = StateMapped
		finish(w, StateMapped)
	case StateFading:
		w.State = StateMapped
		finish(w, StateMapped)
	case StateUnmapping:
		s.finishUnmap(w)
		finish(w, StateUnmapped)
	case StateDestroying:
		s.finishDestroy(w)
		finish(w, StateDestroying)
	default:
		log.Printf("fade convergence on non-transient window %d in state %v\n", w.ID, w.State)
	}
}

// finishUnmap releases backend images and returns the window to Unmapped.
func (s *Session) finishUnmap(w *Window) {
	s.releaseImages(w)
	w.State = StateUnmapped
}

// finishDestroy releases backend images and unlinks the node from the
// stack. The caller must drop all references to w after this returns.
func (s *Session) finishDestroy(w *Window) {
	s.releaseImages(w)
	s.Registry.UnlinkFromStack(w)
}

func (s *Session) releaseImages(w *Window) {
	if s.Backend == nil {
		return
	}
	if w.winImage != 0 {
		s.Backend.ReleaseImage(w.winImage)
		w.winImage = 0
	}
	// shadowImage is owned by Session.Shadows (windows with identical
	// shadow parameters share the same cached handle); releasing it here
	// directly would free an image another window still references. The
	// cache releases its own entries on Purge (redirection teardown).
	w.shadowImage = 0
}
