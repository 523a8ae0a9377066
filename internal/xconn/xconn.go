// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

// Package xconn is the narrow X11 transport boundary the engine talks
// through. It exists so the engine core (package main) can be driven by
// tests without a live display: the interface exposes exactly the
// requests and events the engine consumes, nothing more. The production
// implementation wraps github.com/BurntSushi/xgb and its extension
// subpackages.
package xconn

import (
	"github.com/BurntSushi/xgb/xproto"
)

// Atom is a resolved X atom value.
type Atom = xproto.Atom

// Window is an X window id, aliased so callers that only hold a Conn don't
// need their own xproto import.
type Window = xproto.Window

// Event is the engine-facing decoding of one raw X(GB) event or error, the
// shape the dispatcher (dispatch.go) consumes. Kind says which of the
// fields below are meaningful for this event.
type Event struct {
	Kind EventKind

	// Sequence is the X request sequence number the event was stamped
	// with; the dispatcher purges ignore-list entries up to it before
	// acting.
	Sequence uint16

	Window      xproto.Window
	Parent      xproto.Window
	AboveOrNone xproto.Window // 0 means "move to bottom/top", context-dependent
	X, Y        int32
	Width, Height int32
	BorderWidth int32
	OverrideRedirect bool

	Atom Atom

	Count int // Expose's "more coming" counter

	ToBottom bool // CirculateNotify: placed on bottom rather than top

	ErrorSequence uint16
	ErrorText     string

	DamageArea xproto.Window // damage extension reports against this drawable
}

// EventKind enumerates the X event types the dispatcher maps to engine
// actions.
type EventKind int

const (
	EventCreate EventKind = iota
	EventDestroy
	EventMap
	EventUnmap
	EventReparent
	EventConfigure
	EventCirculate
	EventExpose
	EventPropertyChange
	EventDamage
	EventShape
	EventRandRScreenChange
	EventSelectionClear
	EventXError
)

// Conn is the capability set the engine core needs from a live X
// connection. The real implementation (impl.go) backs it with
// github.com/BurntSushi/xgb; fake.go in this package provides the recording
// fake that this package's tests and the root package's own tests use.
type Conn interface {
	Setup() Setup
	RootWindow() xproto.Window

	// NextEvent blocks until one event/error is available and returns its
	// engine-facing decoding. Implementations must never block past a
	// connection close; the main loop treats a (Event{}, false) return as
	// "connection closed".
	NextEvent() (Event, bool)

	// Sequence returns the sequence number the next request issued on this
	// connection will receive — used by callers that need to register an
	// ignore-sequence entry before the request's possible error arrives.
	Sequence() uint16

	// Sync flushes queued requests and waits for the round trip to
	// complete — the main loop's prepare hook calls this
	// before sleeping so that replies already buffered by the X library
	// get drained without needing the socket to report readable again.
	Sync() error

	InternAtom(name string) (Atom, error)
	GetProperty(w xproto.Window, atom Atom) ([]byte, error)
	ChangeProperty(w xproto.Window, atom Atom, data []byte) error

	QueryTree(w xproto.Window) (parent xproto.Window, children []xproto.Window, err error)
	GetGeometry(w xproto.Window) (x, y int32, width, height int32, borderWidth int32, err error)

	// GetWindowAttributes reports the bits of xproto.GetWindowAttributes
	// the state machine needs to classify a freshly-created window
	//: its class
	// (InputOutput/InputOnly), map state, override-redirect flag, and
	// visual id.
	GetWindowAttributes(w xproto.Window) (class uint8, mapState uint8, overrideRedirect bool, visual uint32, err error)

	// GrabServer/UngrabServer bracket the initial window enumeration at
	// startup.
	GrabServer() error
	UngrabServer() error

	SelectInput(w xproto.Window, eventMask uint32) error
	MapWindow(w xproto.Window) error
	UnmapWindow(w xproto.Window) error
	Close() error

	// RedirectSubwindows/UnredirectSubwindows drive Composite's manual
	// redirection of every subwindow of root.
	RedirectSubwindows() error
	UnredirectSubwindows() error

	// OverlayWindow returns the Composite overlay window, creating it on
	// first call.
	OverlayWindow() (xproto.Window, error)
	// SetInputShapeEmpty makes w click-through by emptying its XFixes
	// bounding and input regions.
	SetInputShapeEmpty(w xproto.Window) error

	// CreateRegistrationWindow creates the 1x1 unmapped window the engine
	// advertises itself on.
	CreateRegistrationWindow() (xproto.Window, error)
	// AcquireSelection takes ownership of _NET_WM_CM_S<screen>; ownedByOther
	// is true if another compositor already holds it.
	AcquireSelection(screen int) (ownedByOther bool, err error)

	// BindWindowPixmap names the backing pixmap of w via Composite
	// (NameWindowPixmap), the first step of binding its backend image.
	BindWindowPixmap(w xproto.Window) (Pixmap, error)

	// SelectShapeEvents subscribes to ShapeNotify for w.
	SelectShapeEvents(w xproto.Window) error
	// BoundingShapeRects reads back w's Shape-extension bounding region.
	// shaped is false for an ordinary rectangular window, in which case
	// rects is nil and the caller falls back to the plain geometry rect.
	BoundingShapeRects(w xproto.Window) (rects []ShapeRect, shaped bool, err error)

	// CreateDamage/DestroyDamage manage the per-window X Damage handle
	// whose NotifyEvents drive repaint; SubtractDamage acknowledges
	// reported damage so the server can accumulate more.
	CreateDamage(w xproto.Window) error
	DestroyDamage(w xproto.Window) error
	SubtractDamage(w xproto.Window) error

	// XineramaScreens reports the per-head screen rectangles, used for
	// shadow cropping. Returns an
	// error when the extension is unavailable.
	XineramaScreens() ([]ShapeRect, error)
}

// ShapeRect is one rectangle of a Shape bounding region or a Xinerama
// screen, in the transport's own terms so package main keeps its Region
// type to itself.
type ShapeRect struct {
	X, Y int32
	W, H int32
}

// Pixmap is an opaque X pixmap id, named via Composite's
// NameWindowPixmap and handed to a Backend's BindPixmap.
type Pixmap = xproto.Pixmap

// Setup mirrors the fields of the engine's interest from xproto.SetupInfo.
type Setup struct {
	Root          xproto.Window
	RootWidth     int32
	RootHeight    int32
	ScreenNumber  int
}
