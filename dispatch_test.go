// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"testing"

	"xcompositor/internal/xconn"
)

type fakeInfoFetcher struct {
	infos map[WindowID]WindowInfo
}

func (f *fakeInfoFetcher) Fetch(id WindowID) (WindowInfo, error) {
	return f.infos[id], nil
}

func newDispatcherTestSession() (*Session, *Dispatcher, *fakeInfoFetcher) {
	s := testSession()
	s.Backend = newFakeBackend()
	fetcher := &fakeInfoFetcher{infos: map[WindowID]WindowInfo{}}
	d := &Dispatcher{
		Session:       s,
		Atoms:         &AtomCache{toTracked: map[xconn.Atom]TrackedAtom{1: AtomOpacity}},
		Info:          fetcher,
		RootID:        0,
		SelectionAtom: 99,
	}
	return s, d, fetcher
}

func TestDispatchCreateAddsWindow(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	if s.Registry.FindWindow(1) == nil {
		t.Fatalf("expected window 1 to be added")
	}
}

func TestDispatchCreateIgnoresNonRootParent(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 42})
	if s.Registry.FindWindow(1) != nil {
		t.Fatalf("expected non-root-parented create to be ignored")
	}
}

func TestDispatchMapRunsStateMachine(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	fetcher.infos[1] = WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}
	s.Redirected = true

	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})

	w := s.Registry.FindWindow(1)
	if w == nil || w.State != StateMapping {
		t.Fatalf("expected window 1 in Mapping state, got %+v", w)
	}
}

func TestDispatchDestroyTransitionsToDestroying(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	fetcher.infos[1] = WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}
	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})

	d.Dispatch(xconn.Event{Kind: xconn.EventDestroy, Window: 1})
	if s.Registry.FindWindow(1) != nil {
		t.Fatalf("expected FindWindow to exclude a destroying window")
	}
}

func TestDispatchExposeBatchesUntilCountZero(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	s.DamageRing.SetRedirected(true)

	d.Dispatch(xconn.Event{Kind: xconn.EventExpose, X: 0, Y: 0, Width: 10, Height: 10, Count: 1})
	if !s.DamageRing.Current().IsEmpty() {
		t.Fatalf("expected no damage while Expose count is nonzero")
	}
	d.Dispatch(xconn.Event{Kind: xconn.EventExpose, X: 10, Y: 0, Width: 10, Height: 10, Count: 0})
	if s.DamageRing.Current().IsEmpty() {
		t.Fatalf("expected accumulated damage once Expose count reaches zero")
	}
}

func TestDispatchSelectionClearQuits(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	lost := false
	d.OnSelectionLost = func() { lost = true }
	d.Dispatch(xconn.Event{Kind: xconn.EventSelectionClear, Atom: 99})
	if !s.Quit || !lost {
		t.Fatalf("expected selection clear to quit and invoke OnSelectionLost")
	}
}

func TestDispatchXErrorSuppressedWhenIgnored(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	s.PushIgnore(5, "test")
	d.Dispatch(xconn.Event{Kind: xconn.EventXError, ErrorSequence: 5})
	if len(s.Ignore) != 0 {
		t.Fatalf("expected matched ignore entry to be purged")
	}
}

type fakeHooks struct {
	shapeSelected map[WindowID]bool
	damages       map[WindowID]bool
	subtracted    []WindowID
	stopped       []WindowID
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{shapeSelected: map[WindowID]bool{}, damages: map[WindowID]bool{}}
}

func (f *fakeHooks) SelectShapeEvents(id WindowID) error {
	f.shapeSelected[id] = true
	return nil
}

func (f *fakeHooks) CreateDamage(id WindowID) error {
	f.damages[id] = true
	return nil
}

func (f *fakeHooks) DestroyDamage(id WindowID) error {
	delete(f.damages, id)
	return nil
}

func (f *fakeHooks) SubtractDamage(id WindowID) error {
	f.subtracted = append(f.subtracted, id)
	return nil
}

func (f *fakeHooks) StopListening(id WindowID) error {
	f.stopped = append(f.stopped, id)
	return nil
}

type fakeScreens struct{ screens []Rect }

func (f *fakeScreens) XineramaScreens() []Rect { return f.screens }

func TestDispatchMapSubscribesShapeAndDamage(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	hooks := newFakeHooks()
	d.Hooks = hooks
	fetcher.infos[1] = WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}

	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})

	if !hooks.shapeSelected[1] || !hooks.damages[1] {
		t.Fatalf("expected map to subscribe shape events and create a damage handle")
	}
	w := s.Registry.FindWindow(1)
	if w == nil || !w.hasDamageHandle {
		t.Fatalf("expected window to record its damage handle")
	}
}

func TestDispatchUnmapDropsDamageAndListening(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	hooks := newFakeHooks()
	d.Hooks = hooks
	fetcher.infos[1] = WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}

	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})
	d.Dispatch(xconn.Event{Kind: xconn.EventUnmap, Window: 1})

	if hooks.damages[1] {
		t.Fatalf("expected unmap to destroy the damage handle")
	}
	if len(hooks.stopped) != 1 || hooks.stopped[0] != 1 {
		t.Fatalf("expected unmap to unsubscribe window events, got %v", hooks.stopped)
	}
	w := s.Registry.FindWindow(1)
	if w == nil || w.hasDamageHandle {
		t.Fatalf("expected hasDamageHandle cleared on unmap")
	}
}

func TestDispatchDamageSubtractsBeforeAccumulating(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	hooks := newFakeHooks()
	d.Hooks = hooks
	fetcher.infos[1] = WindowInfo{Geometry: Rect{10, 10, 50, 50}, Type: WinTypeNormal}
	s.DamageRing.SetRedirected(true)

	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})
	d.Dispatch(xconn.Event{Kind: xconn.EventDamage, DamageArea: 1, X: 0, Y: 0, Width: 5, Height: 5})

	if len(hooks.subtracted) != 1 || hooks.subtracted[0] != 1 {
		t.Fatalf("expected damage to be subtracted exactly once, got %v", hooks.subtracted)
	}
	w := s.Registry.FindWindow(1)
	if !w.everDamaged {
		t.Fatalf("expected ever_damaged set after first damage event")
	}
	if s.DamageRing.Current().IsEmpty() {
		t.Fatalf("expected damage accumulated in root coordinates")
	}
}

func TestDispatchPurgesIgnoreEntriesBySequence(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	s.PushIgnore(5, "test")
	s.PushIgnore(9, "test")

	d.Dispatch(xconn.Event{Kind: xconn.EventCirculate, Window: 99, Sequence: 7})

	if len(s.Ignore) != 1 || s.Ignore[0].Sequence != 9 {
		t.Fatalf("expected entries <= event sequence purged, got %+v", s.Ignore)
	}
}

func TestDispatchRootConfigureDamagesWholeScreen(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	s.DamageRing.SetRedirected(true)

	d.Dispatch(xconn.Event{Kind: xconn.EventConfigure, Window: 0, Width: 800, Height: 600})

	if s.RootWidth != 800 || s.RootHeight != 600 {
		t.Fatalf("expected root geometry updated, got %dx%d", s.RootWidth, s.RootHeight)
	}
	if s.DamageRing.Current().IsEmpty() {
		t.Fatalf("expected a full-screen repaint after a root resize")
	}
}

func TestDispatchScreenChangeRefreshesXinerama(t *testing.T) {
	s, d, _ := newDispatcherTestSession()
	d.Screens = &fakeScreens{screens: []Rect{{0, 0, 500, 500}, {500, 0, 500, 500}}}

	d.Dispatch(xconn.Event{Kind: xconn.EventRandRScreenChange, Width: 1000, Height: 500})

	if len(s.XineramaScreens) != 2 {
		t.Fatalf("expected 2 xinerama screens after the change, got %d", len(s.XineramaScreens))
	}
}

func TestDispatchRootActiveWindowUpdatesFocus(t *testing.T) {
	s, d, fetcher := newDispatcherTestSession()
	s.Config.UseEwmhActiveWin = true
	d.Atoms.toTracked[2] = AtomNetActiveWindow
	d.ActiveWindow = func() (WindowID, bool) { return 1, true }
	fetcher.infos[1] = WindowInfo{Geometry: Rect{0, 0, 50, 50}, Type: WinTypeNormal}

	d.Dispatch(xconn.Event{Kind: xconn.EventCreate, Window: 1, Parent: 0})
	d.Dispatch(xconn.Event{Kind: xconn.EventMap, Window: 1})
	d.Dispatch(xconn.Event{Kind: xconn.EventPropertyChange, Window: 0, Atom: 2})

	w := s.Registry.FindWindow(1)
	if !w.Focused {
		t.Fatalf("expected the EWMH active window to become focused")
	}
	if s.ActiveWindow != 1 {
		t.Fatalf("expected session active window 1, got %d", s.ActiveWindow)
	}
}
