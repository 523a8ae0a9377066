// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"testing"
	"time"
)

func TestMapTransitionsUnmappedToMapping(t *testing.T) {
	s := testSession()
	w := s.Registry.AddWindow(1, 0)

	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)

	if w.State != StateMapping {
		t.Fatalf("expected state Mapping after map, got %v", w.State)
	}
	if w.MapState != MapStateViewable {
		t.Fatalf("expected MapStateViewable, got %v", w.MapState)
	}
	if w.Opacity != 0 {
		t.Fatalf("expected opacity to start at 0, got %v", w.Opacity)
	}
	if w.flags&FlagStaleImage == 0 {
		t.Fatalf("expected a freshly mapped window to need an image bind")
	}
}

func TestMapSkipFadesWhenUnredirected(t *testing.T) {
	s := testSession()
	w := s.Registry.AddWindow(1, 0)

	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, true)

	if w.State != StateMapped {
		t.Fatalf("expected immediate skip-fade to Mapped when unredirected, got %v", w.State)
	}
	if w.Opacity != w.OpacityTgt {
		t.Fatalf("expected opacity == opacity_tgt after skip-fade, got %v != %v", w.Opacity, w.OpacityTgt)
	}
}

func TestMapWhileUnmappingSkipFadesUnmapFirst(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	s.Unmap(w, false)
	if w.State != StateUnmapping {
		t.Fatalf("expected Unmapping, got %v", w.State)
	}

	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)

	if w.State != StateMapping {
		t.Fatalf("expected re-map to land in Mapping, got %v", w.State)
	}
}

func TestUnmapDestroyFalseGoesToUnmapping(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})

	s.Unmap(w, false)

	if w.State != StateUnmapping {
		t.Fatalf("expected Unmapping, got %v", w.State)
	}
	if w.OpacityTgt != 0 {
		t.Fatalf("expected target opacity 0, got %v", w.OpacityTgt)
	}
	if s.Registry.FindWindow(w.ID) == nil {
		t.Fatalf("expected window to remain in the hash while unmapping")
	}
}

func TestUnmapDestroyTrueRemovesFromHashImmediately(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})

	s.Unmap(w, true)

	if w.State != StateDestroying {
		t.Fatalf("expected Destroying, got %v", w.State)
	}
	if s.Registry.FindWindow(w.ID) != nil {
		t.Fatalf("expected window to be gone from the hash once destroying")
	}
	// Still reachable through the stack until fade-out finishes.
	if s.Registry.Top() != w {
		t.Fatalf("expected destroying window to remain in the stack")
	}
}

func TestFadeStepConvergesMappingToMapped(t *testing.T) {
	s := testSession()
	w := s.Registry.AddWindow(1, 0)
	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)
	w.OpacityTgt = 1

	finished := false
	finish := func(win *Window, newState WindowState) {
		if win == w && newState == StateMapped {
			finished = true
		}
	}

	now := time.Unix(0, 0)
	for i := 0; i < 100 && w.State != StateMapped; i++ {
		now = now.Add(10 * time.Millisecond)
		s.FadeStep(now, finish)
	}

	if w.State != StateMapped {
		t.Fatalf("expected convergence to Mapped, got %v", w.State)
	}
	if w.Opacity != w.OpacityTgt {
		t.Fatalf("expected opacity == opacity_tgt at Mapped, got %v != %v", w.Opacity, w.OpacityTgt)
	}
	if !finished {
		t.Fatalf("expected finish callback to fire on convergence")
	}
}

func TestFadeStepConvergesUnmappingToUnmappedAndReleasesImages(t *testing.T) {
	s := testSession()
	fb := newFakeBackend()
	s.Backend = fb
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	w.winImage = 5

	s.Unmap(w, false)

	now := time.Unix(0, 0)
	for i := 0; i < 100 && w.State != StateUnmapped; i++ {
		now = now.Add(10 * time.Millisecond)
		s.FadeStep(now, noopFinish)
	}

	if w.State != StateUnmapped {
		t.Fatalf("expected convergence to Unmapped, got %v", w.State)
	}
	if w.winImage != 0 {
		t.Fatalf("expected backend image released on finish-unmap")
	}
	if len(fb.released) != 1 {
		t.Fatalf("expected exactly one image released, got %d", len(fb.released))
	}
}

func TestFadeStepConvergesDestroyingAndUnlinksFromStack(t *testing.T) {
	s := testSession()
	s.Backend = newFakeBackend()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})

	s.Unmap(w, true)

	now := time.Unix(0, 0)
	for i := 0; i < 100 && w.State == StateDestroying; i++ {
		now = now.Add(10 * time.Millisecond)
		s.FadeStep(now, noopFinish)
	}

	if s.Registry.Top() != nil {
		t.Fatalf("expected the stack to be empty once the destroyed window's fade finishes")
	}
}

func TestOpacityNeverLeavesUnitRangeDuringFade(t *testing.T) {
	s := testSession()
	w := s.Registry.AddWindow(1, 0)
	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)
	w.OpacityTgt = 1

	now := time.Unix(0, 0)
	for i := 0; i < 200; i++ {
		now = now.Add(10 * time.Millisecond)
		s.FadeStep(now, noopFinish)
		if w.Opacity < 0 || w.Opacity > 1 {
			t.Fatalf("opacity left [0,1]: %v", w.Opacity)
		}
	}
}

// TestMapThenDestroyFadeOutScenario walks a full map/fade-in/destroy/
// fade-out cycle: fade_delta=10ms, fade_in_step=0.028, fade_out_step=0.03.
// Fading in needs ceil(1/0.028) = 36 ticks, so the window is fully opaque
// and Mapped 360ms after the map anchored the fade clock; fading out needs
// ceil(1/0.03) = 34 ticks, so 340ms after the destroy the record is gone.
func TestMapThenDestroyFadeOutScenario(t *testing.T) {
	s := testSession()
	s.Backend = newFakeBackend()
	s.Config.FadeDelta = 10
	s.Config.FadeOutStep = 0.03
	s.Config.FadeInStep = 0.028

	now := time.Unix(0, 0)
	s.Clock = func() time.Time { return now }

	w := s.Registry.AddWindow(1, 0)
	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)
	w.OpacityTgt = 1
	if !s.FadeTime.Equal(now) {
		t.Fatalf("expected map to anchor the fade clock, got %v", s.FadeTime)
	}

	now = now.Add(360 * time.Millisecond)
	s.FadeStep(now, noopFinish)

	if w.State != StateMapped {
		t.Fatalf("expected Mapped after 360ms of fade-in, got %v (opacity %v)", w.State, w.Opacity)
	}
	if w.Opacity != 1 {
		t.Fatalf("expected opacity 1 after fade-in converges, got %v", w.Opacity)
	}

	s.Unmap(w, true) // re-anchors the fade clock at the destroy instant
	now = now.Add(340 * time.Millisecond)
	s.FadeStep(now, noopFinish)

	if s.Registry.FindWindow(w.ID) != nil {
		t.Fatalf("expected destroyed window to be absent from the hash")
	}
	if s.Registry.Top() != nil {
		t.Fatalf("expected the stack to be empty once the destroy fade finishes")
	}
}

func TestConfigureMarksStaleImageOnResizeAndDamagesBothExtents(t *testing.T) {
	s := testSession()
	s.DamageRing.SetRedirected(true)
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	w.flags &^= FlagStaleImage // clear what Map set, to isolate Configure's effect

	s.Configure(w, Rect{0, 0, 80, 80}, 0, s.DamageRing)

	if w.flags&FlagStaleImage == 0 {
		t.Fatalf("expected resize to mark the image stale")
	}
	if s.DamageRing.Current().IsEmpty() {
		t.Fatalf("expected old and new extents to be damaged")
	}
}

func TestConfigureZeroSizeYieldsEmptyBoundingShape(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	w.FrameOpacity = 1 // isolate the bounding-shape effect from the unrelated effective-alpha guard

	s.Configure(w, Rect{0, 0, 0, 50}, 0, s.DamageRing)

	if !w.BoundingShape.IsEmpty() {
		t.Fatalf("expected empty bounding shape for zero-width geometry")
	}
	if s.computeToPaint(w) {
		t.Fatalf("expected to_paint=false for a window with an empty bounding shape")
	}
}

func TestPropertyChangedOpacityTriggersFadingWhenMapped(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})

	s.PropertyChanged(w, AtomOpacity, WindowInfo{HasOpacityProp: true, OpacityProp: 0x7FFFFFFF})

	if w.State != StateFading {
		t.Fatalf("expected opacity property change on a Mapped window to start Fading, got %v", w.State)
	}
}

func TestComptonShadowPropertyZeroDisablesShadow(t *testing.T) {
	s := testSession()
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	if !w.Shadow {
		t.Fatalf("expected shadow on by default for a normal window")
	}

	s.PropertyChanged(w, AtomComptonShadow, WindowInfo{HasShadowProp: true, ShadowProp: 0})

	if w.Shadow {
		t.Fatalf("expected _COMPTON_SHADOW=0 to force the shadow off")
	}
}

func TestRoundedCornersDetection(t *testing.T) {
	shape := NewRegionFromRects([]Rect{{0, 0, 100, 100}})
	if computeRoundedCorners(shape, 100, 100) {
		t.Fatalf("a full rectangle should not be detected as rounded")
	}

	notched := NewRegionFromRects([]Rect{
		{5, 0, 90, 100},
		{0, 5, 100, 90},
	})
	if !computeRoundedCorners(notched, 100, 100) {
		t.Fatalf("a notched-corner region should be detected as rounded")
	}
}

func TestFadeStepSkipsFadeForFadeDisabledType(t *testing.T) {
	s := testSession()
	s.Config.Wintype[WinTypeNormal] = WintypeOption{Shadow: true, Fade: false, Opacity: 1.0}
	w := s.Registry.AddWindow(1, 0)
	s.Map(w, WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}, false)

	s.FadeStep(time.Unix(0, 0), noopFinish)

	if w.State != StateMapped || w.Opacity != w.OpacityTgt {
		t.Fatalf("expected fade-disabled window to skip straight to Mapped, got %v opacity %v", w.State, w.Opacity)
	}
}

func TestSetActiveWindowFocusesGroupByLeader(t *testing.T) {
	s := testSession()
	s.Config.UseEwmhActiveWin = true
	main := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 100, 100})
	s.PropertyChanged(main, AtomClientLeader, WindowInfo{Leader: 1})
	dialog := mapOpaqueWindow(s, 2, 1, Rect{10, 10, 50, 50})
	s.PropertyChanged(dialog, AtomClientLeader, WindowInfo{Leader: 1})

	s.SetActiveWindow(1)

	if !main.Focused {
		t.Fatalf("expected the active window focused")
	}
	if !dialog.Focused {
		t.Fatalf("expected a window sharing the active leader to be focused")
	}
}
