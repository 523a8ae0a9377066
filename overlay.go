// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"encoding/binary"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"xcompositor/internal/xconn"
)

// rootEventMask is the root event selection: substructure, expose,
// structure, and property notifications.
const rootEventMask = uint32(xproto.EventMaskSubstructureNotify |
	xproto.EventMaskExposure |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskPropertyChange)

// OverlayManager is the set of Composite/XFixes-specific startup
// operations that don't fit xconn.Conn's narrower core-protocol surface
// (window creation, shape-empty, selection ownership). Injected so
// InitOverlay is testable without a live Composite/XFixes implementation.
type OverlayManager interface {
	// OverlayWindow returns the Composite overlay window for the screen.
	OverlayWindow() (WindowID, error)
	// SetOverlayShapeEmpty makes the overlay window click-through by
	// setting both its bounding and input XFixes regions empty.
	SetOverlayShapeEmpty(WindowID) error
	// CreateRegistrationWindow creates the 1x1 window the engine uses to
	// advertise itself (_NET_WM_PID, COMPTON_VERSION).
	CreateRegistrationWindow() (WindowID, error)
	// AcquireSelection takes ownership of _NET_WM_CM_S<screen>. ownedByOther
	// is true if another compositor already owns it, in which case no
	// ownership change is made.
	AcquireSelection(screen int) (ownedByOther bool, err error)
}

// InitOverlay runs the registration sequence: select root events, obtain
// and shape the overlay window, create the registration
// window, acquire the manager selection (exiting with a clear error if
// another compositor already owns it), and write _NET_WM_PID/
// COMPTON_VERSION. Extension version gating (Composite >= 0.2) happens one
// layer down, in xconn.Dial, since it's part of opening the connection.
func InitOverlay(s *Session, conn xconn.Conn, atoms *AtomCache, mgr OverlayManager, screen int, pid uint32, versionString string) error {
	root := conn.RootWindow()
	if err := conn.SelectInput(root, rootEventMask); err != nil {
		return fmt.Errorf("overlay: select root events: %w", err)
	}

	overlay, err := mgr.OverlayWindow()
	if err != nil {
		return fmt.Errorf("overlay: get composite overlay window: %w", err)
	}
	if err := mgr.SetOverlayShapeEmpty(overlay); err != nil {
		return fmt.Errorf("overlay: set overlay click-through shape: %w", err)
	}
	s.OverlayID = overlay

	reg, err := mgr.CreateRegistrationWindow()
	if err != nil {
		return fmt.Errorf("overlay: create registration window: %w", err)
	}
	s.RegistrationID = reg

	ownedByOther, err := mgr.AcquireSelection(screen)
	if err != nil {
		return fmt.Errorf("overlay: acquire manager selection: %w", err)
	}
	if ownedByOther {
		return fmt.Errorf("overlay: another compositor already owns _NET_WM_CM_S%d", screen)
	}

	pidAtom, err := atoms.pidAtom(conn)
	if err != nil {
		return err
	}
	versionAtom, err := atoms.versionAtom(conn)
	if err != nil {
		return err
	}

	pidBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(pidBytes, pid)
	if err := conn.ChangeProperty(xproto.Window(reg), pidAtom, pidBytes); err != nil {
		return fmt.Errorf("overlay: write _NET_WM_PID: %w", err)
	}
	if err := conn.ChangeProperty(xproto.Window(reg), versionAtom, []byte(versionString)); err != nil {
		return fmt.Errorf("overlay: write COMPTON_VERSION: %w", err)
	}
	return nil
}

func (c *AtomCache) pidAtom(conn xconn.Conn) (xconn.Atom, error) {
	if c.netWMPid != 0 {
		return c.netWMPid, nil
	}
	a, err := conn.InternAtom(AtomNetWMPid)
	if err != nil {
		return 0, err
	}
	c.netWMPid = a
	return a, nil
}

func (c *AtomCache) versionAtom(conn xconn.Conn) (xconn.Atom, error) {
	if c.comptonVersion != 0 {
		return c.comptonVersion, nil
	}
	a, err := conn.InternAtom(AtomComptonVersion)
	if err != nil {
		return 0, err
	}
	c.comptonVersion = a
	return a, nil
}
