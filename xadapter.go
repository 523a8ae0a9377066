// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"github.com/BurntSushi/xgb/xproto"

	"xcompositor/internal/xconn"
)

// connAdapter wraps an xconn.Conn (plus the backend it will hand pixmaps
// to) to satisfy OverlayManager and Redirector, translating between the
// root package's WindowID/Pixmap types and xconn's xproto-flavored ones.
// Kept as a thin adapter rather than widening xconn.Conn's own return types,
// so the transport package stays free of this package's domain types.
type connAdapter struct {
	conn    xconn.Conn
	backend Backend
}

func newConnAdapter(conn xconn.Conn, backend Backend) *connAdapter {
	return &connAdapter{conn: conn, backend: backend}
}

func (a *connAdapter) OverlayWindow() (WindowID, error) {
	w, err := a.conn.OverlayWindow()
	return WindowID(w), err
}

func (a *connAdapter) SetOverlayShapeEmpty(w WindowID) error {
	return a.conn.SetInputShapeEmpty(xproto.Window(w))
}

func (a *connAdapter) CreateRegistrationWindow() (WindowID, error) {
	w, err := a.conn.CreateRegistrationWindow()
	return WindowID(w), err
}

func (a *connAdapter) AcquireSelection(screen int) (bool, error) {
	return a.conn.AcquireSelection(screen)
}

func (a *connAdapter) RedirectSubwindows() error   { return a.conn.RedirectSubwindows() }
func (a *connAdapter) UnredirectSubwindows() error { return a.conn.UnredirectSubwindows() }

func (a *connAdapter) MapOverlay() error {
	w, err := a.conn.OverlayWindow()
	if err != nil {
		return err
	}
	return a.conn.MapWindow(w)
}

func (a *connAdapter) UnmapOverlay() error {
	w, err := a.conn.OverlayWindow()
	if err != nil {
		return err
	}
	return a.conn.UnmapWindow(w)
}

func (a *connAdapter) SelectShapeEvents(id WindowID) error {
	return a.conn.SelectShapeEvents(xproto.Window(id))
}

func (a *connAdapter) CreateDamage(id WindowID) error {
	return a.conn.CreateDamage(xproto.Window(id))
}

func (a *connAdapter) DestroyDamage(id WindowID) error {
	return a.conn.DestroyDamage(xproto.Window(id))
}

func (a *connAdapter) SubtractDamage(id WindowID) error {
	return a.conn.SubtractDamage(xproto.Window(id))
}

// StopListening clears the window's event mask, unsubscribing from its
// X events on unmap.
func (a *connAdapter) StopListening(id WindowID) error {
	return a.conn.SelectInput(xproto.Window(id), 0)
}

// XineramaScreens swallows errors into "no per-head layout"; Xinerama is an
// optional extension and a single-region fallback is always
// correct, just less precise for shadow cropping.
func (a *connAdapter) XineramaScreens() []Rect {
	screens, err := a.conn.XineramaScreens()
	if err != nil {
		return nil
	}
	out := make([]Rect, len(screens))
	for i, s := range screens {
		out[i] = Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
	}
	return out
}

// BindRootTile implements Redirector.BindRootTile by naming root's own
// backing pixmap through Composite and binding it via the backend, the
// same two-step bind every window goes through.
func (a *connAdapter) BindRootTile() (ImageHandle, error) {
	root := a.conn.RootWindow()
	pix, err := a.conn.BindWindowPixmap(root)
	if err != nil {
		return 0, err
	}
	return a.backend.BindPixmap(Pixmap(pix), 0, true)
}
