// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package xconn

import "github.com/BurntSushi/xgb/xproto"

// FakeConn is a recording, in-memory Conn used by engine tests that need to
// drive the dispatcher/main loop without a live display — the same role
// fakeBackend plays for the Backend interface in the root package's tests.
type FakeConn struct {
	SetupInfo Setup

	Events []Event // queued events, consumed in order by NextEvent

	Atoms map[string]Atom
	nextAtom Atom

	Properties map[atomKey][]byte

	Parents    map[xproto.Window]xproto.Window
	Children   map[xproto.Window][]xproto.Window
	Geoms      map[xproto.Window]geom
	Attributes map[xproto.Window]attrs

	ShapeRects map[xproto.Window][]ShapeRect // present => window is shaped
	Xinerama   []ShapeRect

	ShapeEventWindows map[xproto.Window]bool
	Damages           map[xproto.Window]bool
	Subtracted        []xproto.Window
	GrabCount         int

	ChangedProperties []ChangePropertyCall
	SelectedInputs    map[xproto.Window]uint32
	Closed            bool

	Redirected      bool
	Overlay         xproto.Window
	NextRegistration xproto.Window
	SelectionOwned  bool
	NextPixmap      Pixmap

	seq uint16
}

type atomKey struct {
	w xproto.Window
	a Atom
}

type geom struct{ x, y, w, h, bw int32 }

type attrs struct {
	class            uint8
	mapState         uint8
	overrideRedirect bool
	visual           uint32
}

// SetAttributes seeds GetWindowAttributes results for a window.
func (f *FakeConn) SetAttributes(w xproto.Window, class, mapState uint8, overrideRedirect bool, visual uint32) {
	f.Attributes[w] = attrs{class: class, mapState: mapState, overrideRedirect: overrideRedirect, visual: visual}
}

// SetGeometry seeds GetGeometry results for a window.
func (f *FakeConn) SetGeometry(w xproto.Window, x, y, width, height, borderWidth int32) {
	f.Geoms[w] = geom{x: x, y: y, w: width, h: height, bw: borderWidth}
}

// ChangePropertyCall records one ChangeProperty invocation for assertions.
type ChangePropertyCall struct {
	Window xproto.Window
	Atom   Atom
	Data   []byte
}

// NewFakeConn returns an empty fake ready to be populated by a test.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		Atoms:      make(map[string]Atom),
		Properties: make(map[atomKey][]byte),
		Parents:    make(map[xproto.Window]xproto.Window),
		Children:   make(map[xproto.Window][]xproto.Window),
		Geoms:      make(map[xproto.Window]geom),
		Attributes: make(map[xproto.Window]attrs),
		SelectedInputs: make(map[xproto.Window]uint32),
		ShapeRects:        make(map[xproto.Window][]ShapeRect),
		ShapeEventWindows: make(map[xproto.Window]bool),
		Damages:           make(map[xproto.Window]bool),
	}
}

func (f *FakeConn) Setup() Setup          { return f.SetupInfo }
func (f *FakeConn) RootWindow() xproto.Window { return f.SetupInfo.Root }

func (f *FakeConn) NextEvent() (Event, bool) {
	if len(f.Events) == 0 {
		return Event{}, false
	}
	e := f.Events[0]
	f.Events = f.Events[1:]
	return e, true
}

func (f *FakeConn) Sequence() uint16 {
	f.seq++
	return f.seq
}

func (f *FakeConn) Sync() error { return nil }

func (f *FakeConn) InternAtom(name string) (Atom, error) {
	if a, ok := f.Atoms[name]; ok {
		return a, nil
	}
	f.nextAtom++
	f.Atoms[name] = f.nextAtom
	return f.nextAtom, nil
}

func (f *FakeConn) GetProperty(w xproto.Window, atom Atom) ([]byte, error) {
	return f.Properties[atomKey{w, atom}], nil
}

func (f *FakeConn) ChangeProperty(w xproto.Window, atom Atom, data []byte) error {
	f.Properties[atomKey{w, atom}] = data
	f.ChangedProperties = append(f.ChangedProperties, ChangePropertyCall{w, atom, data})
	return nil
}

func (f *FakeConn) QueryTree(w xproto.Window) (xproto.Window, []xproto.Window, error) {
	return f.Parents[w], f.Children[w], nil
}

func (f *FakeConn) GetGeometry(w xproto.Window) (int32, int32, int32, int32, int32, error) {
	g := f.Geoms[w]
	return g.x, g.y, g.w, g.h, g.bw, nil
}

func (f *FakeConn) SelectInput(w xproto.Window, eventMask uint32) error {
	f.SelectedInputs[w] = eventMask
	return nil
}

func (f *FakeConn) GetWindowAttributes(w xproto.Window) (uint8, uint8, bool, uint32, error) {
	a := f.Attributes[w]
	return a.class, a.mapState, a.overrideRedirect, a.visual, nil
}

func (f *FakeConn) GrabServer() error {
	f.GrabCount++
	return nil
}

func (f *FakeConn) UngrabServer() error {
	f.GrabCount--
	return nil
}

func (f *FakeConn) MapWindow(xproto.Window) error   { return nil }
func (f *FakeConn) UnmapWindow(xproto.Window) error { return nil }

func (f *FakeConn) Close() error {
	f.Closed = true
	return nil
}

func (f *FakeConn) RedirectSubwindows() error {
	f.Redirected = true
	return nil
}

func (f *FakeConn) UnredirectSubwindows() error {
	f.Redirected = false
	return nil
}

func (f *FakeConn) OverlayWindow() (xproto.Window, error) {
	if f.Overlay == 0 {
		f.Overlay = 1000
	}
	return f.Overlay, nil
}

func (f *FakeConn) SetInputShapeEmpty(xproto.Window) error { return nil }

func (f *FakeConn) CreateRegistrationWindow() (xproto.Window, error) {
	if f.NextRegistration == 0 {
		f.NextRegistration = 1001
	}
	return f.NextRegistration, nil
}

func (f *FakeConn) AcquireSelection(screen int) (bool, error) {
	if f.SelectionOwned {
		return true, nil
	}
	f.SelectionOwned = true
	return false, nil
}

func (f *FakeConn) BindWindowPixmap(xproto.Window) (Pixmap, error) {
	f.NextPixmap++
	return f.NextPixmap, nil
}

func (f *FakeConn) SelectShapeEvents(w xproto.Window) error {
	f.ShapeEventWindows[w] = true
	return nil
}

func (f *FakeConn) BoundingShapeRects(w xproto.Window) ([]ShapeRect, bool, error) {
	rects, ok := f.ShapeRects[w]
	return rects, ok, nil
}

func (f *FakeConn) CreateDamage(w xproto.Window) error {
	f.Damages[w] = true
	return nil
}

func (f *FakeConn) DestroyDamage(w xproto.Window) error {
	delete(f.Damages, w)
	return nil
}

func (f *FakeConn) SubtractDamage(w xproto.Window) error {
	f.Subtracted = append(f.Subtracted, w)
	return nil
}

func (f *FakeConn) XineramaScreens() ([]ShapeRect, error) {
	return f.Xinerama, nil
}
