// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package xconn

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/blang/semver/v4"
)

// minComposite is the hard floor: Composite >= 0.2 is required.
var minComposite = semver.MustParse("0.2.0")

// realConn is the production Conn, backing every request with
// github.com/BurntSushi/xgb and its extension subpackages.
type realConn struct {
	x      *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
	root   xproto.Window

	// damages maps each tracked window to its Damage handle so
	// SubtractDamage/DestroyDamage can find it again.
	damages map[xproto.Window]damage.Damage
}

// Dial opens the X display named by displayName ("" means $DISPLAY) and
// verifies every required extension, failing fast if Composite is missing
// or too old.
func Dial(displayName string) (Conn, error) {
	x, err := xgb.NewConnDisplay(displayName)
	if err != nil {
		return nil, fmt.Errorf("xconn: open display: %w", err)
	}

	if err := damage.Init(x); err != nil {
		x.Close()
		return nil, fmt.Errorf("xconn: damage extension: %w", err)
	}
	if err := xfixes.Init(x); err != nil {
		x.Close()
		return nil, fmt.Errorf("xconn: xfixes extension: %w", err)
	}
	if err := composite.Init(x); err != nil {
		x.Close()
		return nil, fmt.Errorf("xconn: composite extension: %w", err)
	}
	if err := shape.Init(x); err != nil {
		x.Close()
		return nil, fmt.Errorf("xconn: shape extension: %w", err)
	}
	// RandR and Xinerama are optional; failure to init is
	// logged by the caller, not fatal, so errors are swallowed here.
	_ = randr.Init(x)
	_ = xinerama.Init(x)

	ver, err := composite.QueryVersion(x, 0, 2).Reply()
	if err != nil {
		x.Close()
		return nil, fmt.Errorf("xconn: composite query version: %w", err)
	}
	got := semver.Version{Major: uint64(ver.MajorVersion), Minor: uint64(ver.MinorVersion)}
	if got.LT(minComposite) {
		x.Close()
		return nil, fmt.Errorf("xconn: composite extension %s is older than required %s", got, minComposite)
	}

	setup := xproto.Setup(x)
	screen := setup.DefaultScreen(x)

	return &realConn{x: x, setup: setup, screen: screen, root: screen.Root,
		damages: make(map[xproto.Window]damage.Damage)}, nil
}

func (c *realConn) Setup() Setup {
	return Setup{
		Root:         c.screen.Root,
		RootWidth:    int32(c.screen.WidthInPixels),
		RootHeight:   int32(c.screen.HeightInPixels),
		ScreenNumber: 0,
	}
}

func (c *realConn) RootWindow() xproto.Window { return c.root }

// NextEvent adapts xgb's combined event/error channel to Event. xgb delivers
// protocol errors interleaved with events on the same WaitForEvent call;
// this is where the split into EventXError happens.
func (c *realConn) NextEvent() (Event, bool) {
	for {
		ev, xerr := c.x.WaitForEvent()
		if ev == nil && xerr == nil {
			return Event{}, false
		}
		if xerr != nil {
			return decodeError(xerr), true
		}
		e, ok := decodeEvent(ev)
		if !ok {
			continue // uninteresting event type, keep waiting
		}
		return e, true
	}
}

func (c *realConn) Sequence() uint16 {
	// xgb assigns sequence numbers as requests are written; NoOperation is
	// the cheapest request that consumes exactly one, so the number its
	// cookie carries plus one is what the caller's *next real* request will
	// receive, provided nothing else is issued in between.
	cookie := xproto.NoOperationChecked(c.x)
	return cookie.Sequence + 1
}

func (c *realConn) Sync() error {
	_, err := xproto.GetInputFocus(c.x).Reply()
	return err
}

func (c *realConn) InternAtom(name string) (Atom, error) {
	reply, err := xproto.InternAtom(c.x, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func (c *realConn) GetProperty(w xproto.Window, atom Atom) ([]byte, error) {
	reply, err := xproto.GetProperty(c.x, false, w, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *realConn) ChangeProperty(w xproto.Window, atom Atom, data []byte) error {
	return xproto.ChangePropertyChecked(c.x, xproto.PropModeReplace, w, atom,
		xproto.AtomCardinal, 8, uint32(len(data)), data).Check()
}

func (c *realConn) QueryTree(w xproto.Window) (xproto.Window, []xproto.Window, error) {
	reply, err := xproto.QueryTree(c.x, w).Reply()
	if err != nil {
		return 0, nil, err
	}
	return reply.Parent, reply.Children, nil
}

func (c *realConn) GetGeometry(w xproto.Window) (int32, int32, int32, int32, int32, error) {
	d := xproto.Drawable(w)
	reply, err := xproto.GetGeometry(c.x, d).Reply()
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	return int32(reply.X), int32(reply.Y), int32(reply.Width), int32(reply.Height), int32(reply.BorderWidth), nil
}

func (c *realConn) SelectInput(w xproto.Window, eventMask uint32) error {
	return xproto.ChangeWindowAttributesChecked(c.x, w, xproto.CwEventMask, []uint32{eventMask}).Check()
}

func (c *realConn) GetWindowAttributes(w xproto.Window) (uint8, uint8, bool, uint32, error) {
	reply, err := xproto.GetWindowAttributes(c.x, w).Reply()
	if err != nil {
		return 0, 0, false, 0, err
	}
	return uint8(reply.Class), uint8(reply.MapState), reply.OverrideRedirect, uint32(reply.Visual), nil
}

func (c *realConn) GrabServer() error {
	return xproto.GrabServerChecked(c.x).Check()
}

func (c *realConn) UngrabServer() error {
	return xproto.UngrabServerChecked(c.x).Check()
}

func (c *realConn) MapWindow(w xproto.Window) error {
	return xproto.MapWindowChecked(c.x, w).Check()
}

func (c *realConn) UnmapWindow(w xproto.Window) error {
	return xproto.UnmapWindowChecked(c.x, w).Check()
}

func (c *realConn) Close() error {
	c.x.Close()
	return nil
}

// RedirectSubwindows asks Composite to
// divert every subwindow of root into off-screen storage, manually (the
// engine reads pixmaps itself rather than letting the server auto-composite
// them).
func (c *realConn) RedirectSubwindows() error {
	return composite.RedirectSubwindowsChecked(c.x, c.root, composite.RedirectManual).Check()
}

func (c *realConn) UnredirectSubwindows() error {
	return composite.UnredirectSubwindowsChecked(c.x, c.root, composite.RedirectManual).Check()
}

func (c *realConn) OverlayWindow() (xproto.Window, error) {
	reply, err := composite.GetOverlayWindow(c.x, c.root).Reply()
	if err != nil {
		return 0, err
	}
	return reply.OverlayWin, nil
}

// SetInputShapeEmpty makes the overlay click-through: an empty XFixes
// region applied as both the bounding and input shape means the window
// occupies no space for event delivery or painting purposes.
func (c *realConn) SetInputShapeEmpty(w xproto.Window) error {
	regionID, err := xfixes.NewRegionId(c.x)
	if err != nil {
		return err
	}
	if err := xfixes.CreateRegionChecked(c.x, regionID, nil).Check(); err != nil {
		return err
	}
	if err := xfixes.SetWindowShapeRegionChecked(c.x, w, shape.SkBounding, 0, 0, regionID).Check(); err != nil {
		return err
	}
	return xfixes.SetWindowShapeRegionChecked(c.x, w, shape.SkInput, 0, 0, regionID).Check()
}

func (c *realConn) CreateRegistrationWindow() (xproto.Window, error) {
	win, err := xproto.NewWindowId(c.x)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(c.x, c.screen.RootDepth, win, c.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, c.screen.RootVisual, 0, nil).Check()
	if err != nil {
		return 0, err
	}
	return win, nil
}

// AcquireSelection claims _NET_WM_CM_S<screen> via
// a 1x1 window, checking whether another compositor already owns it first.
func (c *realConn) AcquireSelection(screen int) (bool, error) {
	name := fmt.Sprintf("%s%d", "_NET_WM_CM_S", screen)
	atom, err := c.InternAtom(name)
	if err != nil {
		return false, err
	}
	current, err := xproto.GetSelectionOwner(c.x, atom).Reply()
	if err != nil {
		return false, err
	}
	if current.Owner != 0 {
		return true, nil
	}
	owner, err := xproto.NewWindowId(c.x)
	if err != nil {
		return false, err
	}
	if err := xproto.CreateWindowChecked(c.x, c.screen.RootDepth, owner, c.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, c.screen.RootVisual, 0, nil).Check(); err != nil {
		return false, err
	}
	if err := xproto.SetSelectionOwnerChecked(c.x, owner, atom, xproto.TimeCurrentTime).Check(); err != nil {
		return false, err
	}
	return false, nil
}

// BindWindowPixmap asks Composite to name the window's backing pixmap so
// the backend can bind it into an image.
func (c *realConn) BindWindowPixmap(w xproto.Window) (Pixmap, error) {
	pix, err := xproto.NewPixmapId(c.x)
	if err != nil {
		return 0, err
	}
	if err := composite.NameWindowPixmapChecked(c.x, w, pix).Check(); err != nil {
		return 0, err
	}
	return pix, nil
}

func (c *realConn) SelectShapeEvents(w xproto.Window) error {
	return shape.SelectInputChecked(c.x, w, true).Check()
}

// BoundingShapeRects reads back the Shape bounding region. QueryExtents
// first: most windows are not shaped, and for those the rectangle fetch is
// skipped entirely.
func (c *realConn) BoundingShapeRects(w xproto.Window) ([]ShapeRect, bool, error) {
	ext, err := shape.QueryExtents(c.x, w).Reply()
	if err != nil {
		return nil, false, err
	}
	if !ext.BoundingShaped {
		return nil, false, nil
	}
	reply, err := shape.GetRectangles(c.x, w, shape.SkBounding).Reply()
	if err != nil {
		return nil, false, err
	}
	rects := make([]ShapeRect, len(reply.Rectangles))
	for i, r := range reply.Rectangles {
		rects[i] = ShapeRect{X: int32(r.X), Y: int32(r.Y), W: int32(r.Width), H: int32(r.Height)}
	}
	return rects, true, nil
}

func (c *realConn) CreateDamage(w xproto.Window) error {
	if _, ok := c.damages[w]; ok {
		return nil
	}
	id, err := damage.NewDamageId(c.x)
	if err != nil {
		return err
	}
	if err := damage.CreateChecked(c.x, id, xproto.Drawable(w), damage.ReportLevelNonEmpty).Check(); err != nil {
		return err
	}
	c.damages[w] = id
	return nil
}

func (c *realConn) DestroyDamage(w xproto.Window) error {
	id, ok := c.damages[w]
	if !ok {
		return nil
	}
	delete(c.damages, w)
	return damage.DestroyChecked(c.x, id).Check()
}

func (c *realConn) SubtractDamage(w xproto.Window) error {
	id, ok := c.damages[w]
	if !ok {
		return nil
	}
	return damage.SubtractChecked(c.x, id, xfixes.Region(0), xfixes.Region(0)).Check()
}

func (c *realConn) XineramaScreens() ([]ShapeRect, error) {
	reply, err := xinerama.QueryScreens(c.x).Reply()
	if err != nil {
		return nil, err
	}
	out := make([]ShapeRect, len(reply.ScreenInfo))
	for i, s := range reply.ScreenInfo {
		out[i] = ShapeRect{X: int32(s.XOrg), Y: int32(s.YOrg), W: int32(s.Width), H: int32(s.Height)}
	}
	return out, nil
}

func decodeEvent(ev xgb.Event) (Event, bool) {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return Event{Kind: EventCreate, Sequence: e.Sequence, Window: e.Window, Parent: e.Parent,
			X: int32(e.X), Y: int32(e.Y), Width: int32(e.Width), Height: int32(e.Height),
			BorderWidth: int32(e.BorderWidth), OverrideRedirect: e.OverrideRedirect}, true
	case xproto.DestroyNotifyEvent:
		return Event{Kind: EventDestroy, Sequence: e.Sequence, Window: e.Window}, true
	case xproto.MapNotifyEvent:
		return Event{Kind: EventMap, Sequence: e.Sequence, Window: e.Window, OverrideRedirect: e.OverrideRedirect}, true
	case xproto.UnmapNotifyEvent:
		return Event{Kind: EventUnmap, Sequence: e.Sequence, Window: e.Window}, true
	case xproto.ReparentNotifyEvent:
		return Event{Kind: EventReparent, Sequence: e.Sequence, Window: e.Window, Parent: e.Parent,
			OverrideRedirect: e.OverrideRedirect}, true
	case xproto.ConfigureNotifyEvent:
		return Event{Kind: EventConfigure, Sequence: e.Sequence, Window: e.Window, AboveOrNone: e.AboveSibling,
			X: int32(e.X), Y: int32(e.Y), Width: int32(e.Width), Height: int32(e.Height),
			BorderWidth: int32(e.BorderWidth), OverrideRedirect: e.OverrideRedirect}, true
	case xproto.CirculateNotifyEvent:
		return Event{Kind: EventCirculate, Sequence: e.Sequence, Window: e.Window,
			ToBottom: e.Place == xproto.PlaceOnBottom}, true
	case xproto.ExposeEvent:
		return Event{Kind: EventExpose, Sequence: e.Sequence, Window: e.Window,
			X: int32(e.X), Y: int32(e.Y), Width: int32(e.Width), Height: int32(e.Height),
			Count: int(e.Count)}, true
	case xproto.PropertyNotifyEvent:
		return Event{Kind: EventPropertyChange, Sequence: e.Sequence, Window: e.Window, Atom: e.Atom}, true
	case xproto.SelectionClearEvent:
		return Event{Kind: EventSelectionClear, Sequence: e.Sequence, Window: e.Owner, Atom: e.Selection}, true
	case damage.NotifyEvent:
		return Event{Kind: EventDamage, Sequence: e.Sequence, DamageArea: xproto.Window(e.Drawable),
			X: int32(e.Area.X), Y: int32(e.Area.Y), Width: int32(e.Area.Width), Height: int32(e.Area.Height)}, true
	case shape.NotifyEvent:
		return Event{Kind: EventShape, Sequence: e.Sequence, Window: e.AffectedWindow,
			X: int32(e.ExtentsX), Y: int32(e.ExtentsY),
			Width: int32(e.ExtentsWidth), Height: int32(e.ExtentsHeight)}, true
	case randr.ScreenChangeNotifyEvent:
		return Event{Kind: EventRandRScreenChange, Sequence: e.Sequence, Window: e.Root,
			Width: int32(e.Width), Height: int32(e.Height)}, true
	default:
		return Event{}, false
	}
}

func decodeError(xerr xgb.Error) Event {
	seq, text := uint16(0), xerr.Error()
	if be, ok := xerr.(interface{ SequenceId() uint16 }); ok {
		seq = be.SequenceId()
	}
	return Event{Kind: EventXError, ErrorSequence: seq, ErrorText: text}
}
