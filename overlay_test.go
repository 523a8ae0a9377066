// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"testing"

	"xcompositor/internal/xconn"
)

type fakeOverlayManager struct {
	overlay       WindowID
	shaped        bool
	registration  WindowID
	ownedByOther  bool
	acquireCalled bool
}

func (f *fakeOverlayManager) OverlayWindow() (WindowID, error) {
	f.overlay = 100
	return f.overlay, nil
}

func (f *fakeOverlayManager) SetOverlayShapeEmpty(WindowID) error {
	f.shaped = true
	return nil
}

func (f *fakeOverlayManager) CreateRegistrationWindow() (WindowID, error) {
	f.registration = 101
	return f.registration, nil
}

func (f *fakeOverlayManager) AcquireSelection(screen int) (bool, error) {
	f.acquireCalled = true
	return f.ownedByOther, nil
}

func TestInitOverlaySucceeds(t *testing.T) {
	s := testSession()
	conn := xconn.NewFakeConn()
	conn.SetupInfo = xconn.Setup{Root: 1}
	atoms := &AtomCache{}
	mgr := &fakeOverlayManager{}

	if err := InitOverlay(s, conn, atoms, mgr, 0, 1234, "1.0.0"); err != nil {
		t.Fatalf("InitOverlay: %v", err)
	}
	if s.OverlayID != 100 || s.RegistrationID != 101 {
		t.Fatalf("expected overlay/registration ids recorded on session, got %d/%d", s.OverlayID, s.RegistrationID)
	}
	if !mgr.shaped || !mgr.acquireCalled {
		t.Fatalf("expected overlay shaped and selection acquisition attempted")
	}
	if len(conn.ChangedProperties) != 2 {
		t.Fatalf("expected 2 property writes (pid, version), got %d", len(conn.ChangedProperties))
	}
}

func TestInitOverlayFailsWhenSelectionOwnedByOther(t *testing.T) {
	s := testSession()
	conn := xconn.NewFakeConn()
	conn.SetupInfo = xconn.Setup{Root: 1}
	atoms := &AtomCache{}
	mgr := &fakeOverlayManager{ownedByOther: true}

	if err := InitOverlay(s, conn, atoms, mgr, 0, 1234, "1.0.0"); err == nil {
		t.Fatalf("expected error when selection is already owned")
	}
}
