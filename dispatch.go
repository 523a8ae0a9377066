// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"log"

	"xcompositor/internal/xconn"
)

// WindowInfoFetcher gathers the fresh X state a map/create/reparent
// transition needs. Kept as an injected interface, like Rebinder and
// ParentOf, so Dispatcher is drivable in tests against xconn.FakeConn
// without a live display.
type WindowInfoFetcher interface {
	Fetch(id WindowID) (WindowInfo, error)
}

// ShapeFetcher re-queries a window's bounding shape (ShapeNotify handling,
// see handleShape).
type ShapeFetcher interface {
	BoundingShape(id WindowID) *Region
}

// WindowHooks is the per-window X housekeeping a map/unmap transition
// drives beyond the state machine itself: shape-event subscription and
// the Damage handle lifecycle. All methods are best-effort; a nil Hooks
// disables them (tests that only exercise the state machine don't wire
// one).
type WindowHooks interface {
	SelectShapeEvents(id WindowID) error
	CreateDamage(id WindowID) error
	DestroyDamage(id WindowID) error
	SubtractDamage(id WindowID) error
	StopListening(id WindowID) error
}

// ScreenFetcher re-queries the Xinerama screen layout after a RandR screen
// change.
type ScreenFetcher interface {
	XineramaScreens() []Rect
}

// Dispatcher maps one decoded xconn.Event to the corresponding Session
// action, one handler per event type. It holds no
// connection state of its own beyond the lookups it needs to resolve
// window/atom identities back to engine types.
type Dispatcher struct {
	Session *Session
	Atoms   *AtomCache

	Info    WindowInfoFetcher
	Shape   ShapeFetcher
	Hooks   WindowHooks
	Screens ScreenFetcher

	// ActiveWindow reads root's _NET_ACTIVE_WINDOW; only consulted when
	// the config opts into EWMH focus tracking. Parents resolves the X
	// parent chain so an active-window id naming a deep client window can
	// be walked up to its tracked toplevel.
	ActiveWindow func() (WindowID, bool)
	Parents      ParentOf

	// RootID and SelectionAtom identify the events that need special
	// handling: root-geometry changes and selection loss.
	RootID        WindowID
	SelectionAtom xconn.Atom

	// exposePending accumulates Expose rectangles until count==0.
	exposePending *Region

	// OnSelectionLost is called once, when another compositor claims the
	// manager selection; the main loop wires
	// this to set Session.Quit and its own exit code.
	OnSelectionLost func()
}

// Dispatch routes one event to its handler: each handler first purges ignore
// entries <= the event's sequence, then performs exactly the action listed
// for that event kind.
func (d *Dispatcher) Dispatch(ev xconn.Event) {
	if ev.Kind == xconn.EventXError {
		if !d.Session.ShouldIgnoreError(ev.ErrorSequence) {
			log.Printf("X error (seq %d): %s\n", ev.ErrorSequence, ev.ErrorText)
		}
		return
	}

	d.Session.PurgeIgnore(ev.Sequence)

	switch ev.Kind {
	case xconn.EventCreate:
		d.handleCreate(ev)
	case xconn.EventDestroy:
		d.handleDestroy(ev)
	case xconn.EventMap:
		d.handleMap(ev)
	case xconn.EventUnmap:
		d.handleUnmap(ev)
	case xconn.EventReparent:
		d.handleReparent(ev)
	case xconn.EventConfigure:
		d.handleConfigure(ev)
	case xconn.EventCirculate:
		d.handleCirculate(ev)
	case xconn.EventExpose:
		d.handleExpose(ev)
	case xconn.EventPropertyChange:
		d.handlePropertyChange(ev)
	case xconn.EventDamage:
		d.handleDamage(ev)
	case xconn.EventShape:
		d.handleShape(ev)
	case xconn.EventRandRScreenChange:
		d.handleScreenChange(ev)
	case xconn.EventSelectionClear:
		d.handleSelectionClear(ev)
	}
}

func (d *Dispatcher) handleCreate(ev xconn.Event) {
	if WindowID(ev.Parent) != d.RootID {
		return
	}
	d.Session.Registry.AddWindow(WindowID(ev.Window), 0)
}

func (d *Dispatcher) handleDestroy(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	d.dropWindowHooks(w)
	d.Session.Unmap(w, true)
}

func (d *Dispatcher) handleMap(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		w = d.Session.Registry.AddWindow(WindowID(ev.Window), 0)
	}
	info, err := d.fetchInfo(w.ID)
	if err != nil {
		log.Printf("map %d: fetch window info: %v\n", w.ID, err)
		return
	}
	if d.Shape != nil {
		info.BoundingShape = d.Shape.BoundingShape(w.ID)
	}
	d.Session.Map(w, info, !d.Session.Redirected)

	if d.Hooks != nil {
		// Shape events and the Damage handle are per-window server
		// subscriptions that only make sense while the window is viewable;
		// the unmap path tears both down again.
		if err := d.Hooks.SelectShapeEvents(w.ID); err != nil {
			log.Printf("map %d: select shape events: %v\n", w.ID, err)
		}
		if err := d.Hooks.CreateDamage(w.ID); err != nil {
			log.Printf("map %d: create damage: %v\n", w.ID, err)
		} else {
			w.hasDamageHandle = true
		}
	}
}

func (d *Dispatcher) handleUnmap(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	d.dropWindowHooks(w)
	d.Session.Unmap(w, false)
}

// dropWindowHooks releases the per-window server subscriptions before an
// unmap/destroy transition: the Damage handle and the event selection.
func (d *Dispatcher) dropWindowHooks(w *Window) {
	if d.Hooks == nil {
		return
	}
	if w.hasDamageHandle {
		if err := d.Hooks.DestroyDamage(w.ID); err != nil {
			log.Printf("unmap %d: destroy damage: %v\n", w.ID, err)
		}
		w.hasDamageHandle = false
	}
	if err := d.Hooks.StopListening(w.ID); err != nil {
		log.Printf("unmap %d: stop listening: %v\n", w.ID, err)
	}
}

// handleReparent: a reparent onto root behaves like a late add_window;
// anything else destroys the record. Whether fade state should survive a
// destroy-and-re-add is ambiguous territory, so no preservation rule is
// attempted.
func (d *Dispatcher) handleReparent(ev xconn.Event) {
	if WindowID(ev.Parent) == d.RootID {
		d.Session.Registry.AddWindow(WindowID(ev.Window), 0)
		return
	}
	if w := d.Session.Registry.FindWindow(WindowID(ev.Window)); w != nil {
		d.dropWindowHooks(w)
		d.Session.Unmap(w, true)
	}
	// The reparented window may be a WM client landing under a frame we
	// already track (its WM_STATE arriving after the frame's map); re-scan
	// that toplevel's subtree so its client-window resolution catches up.
	if d.Info != nil {
		if top := d.Session.Registry.FindWindow(WindowID(ev.Parent)); top != nil {
			if info, err := d.Info.Fetch(top.ID); err == nil {
				top.ClientID = info.ClientID
			}
		}
	}
}

func (d *Dispatcher) handleConfigure(ev xconn.Event) {
	if WindowID(ev.Window) == d.RootID {
		d.Session.RootWidth = ev.Width
		d.Session.RootHeight = ev.Height
		d.Session.ScreenRegion = NewRegionFromRect(Rect{0, 0, ev.Width, ev.Height})
		if rc, ok := d.Session.Backend.(RootChanger); ok {
			if err := rc.RootChange(ev.Width, ev.Height); err != nil {
				log.Printf("root change failed: %v\n", err)
			}
		} else if d.Session.Backend != nil {
			log.Printf("backend cannot adapt to root resize, reinitialization required\n")
		}
		d.Session.DamageRing.AddDamage(d.Session.ScreenRegion)
		return
	}
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	d.Session.Configure(w, Rect{ev.X, ev.Y, ev.Width, ev.Height}, ev.BorderWidth, d.Session.DamageRing)
	d.Session.Registry.RestackAbove(w, WindowID(ev.AboveOrNone))
}

func (d *Dispatcher) handleCirculate(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	if ev.ToBottom {
		d.Session.Registry.RestackBottom(w)
		return
	}
	d.Session.Registry.Restack(w, 0)
}

func (d *Dispatcher) handleExpose(ev xconn.Event) {
	r := NewRegionFromRect(Rect{ev.X, ev.Y, ev.Width, ev.Height})
	if d.exposePending == nil {
		d.exposePending = emptyRegion
	}
	d.exposePending = Union(d.exposePending, r)
	if ev.Count != 0 {
		return
	}
	d.Session.DamageRing.AddDamage(d.exposePending)
	d.exposePending = emptyRegion
}

func (d *Dispatcher) handlePropertyChange(ev xconn.Event) {
	tracked, ok := d.Atoms.Tracked(ev.Atom)
	if !ok {
		return
	}
	if WindowID(ev.Window) == d.RootID {
		switch {
		case wallpaperAtom(tracked):
			// The background pixmap changed: everything painted from the
			// root tile is stale.
			d.Session.DamageRing.AddDamage(d.Session.ScreenRegion)
		case tracked == AtomNetActiveWindow && d.Session.Config.UseEwmhActiveWin:
			if d.ActiveWindow != nil {
				if id, ok := d.ActiveWindow(); ok {
					if d.Session.Registry.FindWindow(id) == nil && d.Parents != nil {
						if top := d.Session.Registry.FindToplevel2(id, d.Parents); top != nil {
							id = top.ID
						}
					}
					d.Session.SetActiveWindow(id)
				}
			}
		}
		return
	}
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	info, err := d.fetchInfo(w.ID)
	if err != nil {
		log.Printf("property change on %d: fetch window info: %v\n", w.ID, err)
		return
	}
	d.Session.PropertyChanged(w, tracked, info)
}

// handleDamage subtracts the damage from X (acknowledging it so the
// server can accumulate more), translates it to root coordinates,
// accumulates it, marks ever_damaged, and removes the part already covered
// by the window's own prev_trans ignore region (painting it again would be
// wasted work, since it's occluded).
func (d *Dispatcher) handleDamage(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.DamageArea))
	if w == nil {
		return
	}
	if d.Hooks != nil && w.hasDamageHandle {
		if err := d.Hooks.SubtractDamage(w.ID); err != nil {
			log.Printf("damage %d: subtract: %v\n", w.ID, err)
		}
	}
	area := NewRegionFromRect(Rect{ev.X + w.Geometry.X, ev.Y + w.Geometry.Y, ev.Width, ev.Height})
	area = Subtract(area, w.prevTrans.regIgnoreOrEmpty())
	w.everDamaged = true
	d.Session.DamageRing.AddDamage(area)
}

func (d *Dispatcher) handleShape(ev xconn.Event) {
	w := d.Session.Registry.FindWindow(WindowID(ev.Window))
	if w == nil {
		return
	}
	old := w.rootBoundingShape()
	if d.Shape != nil {
		w.BoundingShape = d.Shape.BoundingShape(w.ID)
	}
	newShape := w.rootBoundingShape()
	if configDetectRounded(d.Session) {
		w.RoundedCorners = computeRoundedCorners(w.BoundingShape, w.widthb(), w.heightb())
	}
	d.Session.DamageRing.AddDamage(Union(old, newShape))
	w.regIgnoreValid = false
}

// configDetectRounded is a tiny indirection purely so handleShape reads
// left to right without a long field chain; not exported, not meant to be
// anything more than that.
func configDetectRounded(s *Session) bool { return s.Config.DetectRoundedCorners }

func (d *Dispatcher) handleScreenChange(ev xconn.Event) {
	d.Session.RootWidth = ev.Width
	d.Session.RootHeight = ev.Height
	d.Session.ScreenRegion = NewRegionFromRect(Rect{0, 0, ev.Width, ev.Height})
	if d.Screens != nil {
		d.Session.XineramaScreens = nil
		for _, r := range d.Screens.XineramaScreens() {
			d.Session.XineramaScreens = append(d.Session.XineramaScreens, NewRegionFromRect(r))
		}
	}
	d.Session.DamageRing.AddDamage(d.Session.ScreenRegion)
}

func (d *Dispatcher) handleSelectionClear(ev xconn.Event) {
	if ev.Atom != d.SelectionAtom {
		return
	}
	log.Printf("compositor selection lost, another compositor is running\n")
	d.Session.Quit = true
	if d.OnSelectionLost != nil {
		d.OnSelectionLost()
	}
}

func (d *Dispatcher) fetchInfo(id WindowID) (WindowInfo, error) {
	if d.Info == nil {
		return WindowInfo{}, nil
	}
	return d.Info.Fetch(id)
}
