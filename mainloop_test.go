// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"testing"
	"time"

	"xcompositor/internal/xconn"
)

func newTestMainLoop(t *testing.T) (*MainLoop, *Session, *fakeBackend) {
	t.Helper()
	s := testSession()
	fb := newFakeBackend()
	x := &fakeRedirector{}
	conn := xconn.NewFakeConn()
	conn.SetupInfo = xconn.Setup{Root: 1}
	atoms := &AtomCache{toTracked: map[xconn.Atom]TrackedAtom{}}
	d := &Dispatcher{Session: s, Atoms: atoms, RootID: 0}

	if _, err := s.StartRedirection(x, fb); err != nil {
		t.Fatalf("StartRedirection: %v", err)
	}

	m := &MainLoop{Session: s, Dispatcher: d, Conn: conn, Redirector: x, Backend: fb, events: make(chan xconn.Event, 8)}
	return m, s, fb
}

func TestTickPaintsWhenDamagePresent(t *testing.T) {
	m, s, fb := newTestMainLoop(t)
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 50, 50})
	w.winImage = 5
	s.DamageRing.AddDamage(NewRegionFromRect(Rect{0, 0, 50, 50}))

	if err := m.Tick(time.Unix(0, 0)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(fb.composed) == 0 {
		t.Fatalf("expected a frame to be composed when damage is pending")
	}
	if fb.age == 0 {
		t.Fatalf("expected Present to have been called, advancing buffer age")
	}
}

func TestTickSkipsPresentWhenNoDamage(t *testing.T) {
	m, _, fb := newTestMainLoop(t)
	// The first frame after redirection starts repaints the whole screen.
	if err := m.Tick(time.Unix(0, 0)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	presented := fb.age
	if err := m.Tick(time.Unix(0, 0)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if fb.age != presented {
		t.Fatalf("expected no Present when there is nothing to repaint")
	}
}

func TestTickStopsRedirectionOnFullscreenOpaque(t *testing.T) {
	m, s, _ := newTestMainLoop(t)
	s.Config.UnredirIfPossible = true
	mapOpaqueWindow(s, 1, 0, Rect{0, 0, 1000, 1000})

	if err := m.Tick(time.Unix(0, 0)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Redirected {
		t.Fatalf("expected redirection to stop for a fullscreen opaque window")
	}
}

func TestDrainXEventsDispatchesQueuedEvents(t *testing.T) {
	m, s, _ := newTestMainLoop(t)
	m.events <- xconn.Event{Kind: xconn.EventCreate, Window: 5, Parent: 0}

	m.drainPendingEvents()
	if s.Registry.FindWindow(5) == nil {
		t.Fatalf("expected queued create event to be dispatched and add a window")
	}
}

func TestTickUnredirDelayDefersStop(t *testing.T) {
	m, s, _ := newTestMainLoop(t)
	s.Config.UnredirIfPossible = true
	s.Config.UnredirIfPossibleDelay = 100
	mapOpaqueWindow(s, 1, 0, Rect{0, 0, 1000, 1000})

	t0 := time.Unix(0, 0)
	if err := m.Tick(t0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !s.Redirected {
		t.Fatalf("expected redirection to survive until the delay elapses")
	}
	if !s.UnredirDelayArmed {
		t.Fatalf("expected the unredir delay to be armed")
	}

	if err := m.Tick(t0.Add(150 * time.Millisecond)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Redirected {
		t.Fatalf("expected redirection stopped once the delay elapsed")
	}
}

func TestTickUnredirDelayResetByRedirectableFrame(t *testing.T) {
	m, s, _ := newTestMainLoop(t)
	s.Config.UnredirIfPossible = true
	s.Config.UnredirIfPossibleDelay = 100
	w := mapOpaqueWindow(s, 1, 0, Rect{0, 0, 1000, 1000})

	t0 := time.Unix(0, 0)
	if err := m.Tick(t0); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !s.UnredirDelayArmed {
		t.Fatalf("expected the unredir delay to be armed")
	}

	// The window shrinks: the frame no longer justifies unredirection, so
	// the armed delay must be dropped.
	s.Configure(w, Rect{0, 0, 500, 500}, 0, s.DamageRing)
	if err := m.Tick(t0.Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.UnredirDelayArmed {
		t.Fatalf("expected the delay disarmed by a frame that wants redirection")
	}
	if !s.Redirected {
		t.Fatalf("expected redirection kept")
	}
}
