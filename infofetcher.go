// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"encoding/binary"

	"github.com/BurntSushi/xgb/xproto"

	"xcompositor/internal/xconn"
)

// X11 window class and map-state values (xproto.ClassInputOutput etc.),
// kept as local constants so the raw attribute bytes GetWindowAttributes
// returns can be converted without reaching back into xproto's enums.
const (
	xClassInputOutput = 1
	xClassInputOnly   = 2

	xMapStateUnmapped   = 0
	xMapStateUnviewable = 1
	xMapStateViewable   = 2
)

// xWindowInfoFetcher implements WindowInfoFetcher (dispatch.go) against a
// live xconn.Conn: both the dispatcher's MapNotify/ReparentNotify handling
// and its PropertyChanged handling need a freshly-read
// bundle of window state, so Fetch re-reads geometry, attributes, and
// every tracked property on each call rather than trying to read only the
// one property that changed — the same "just requery everything relevant"
// simplicity compton's property handlers use.
type xWindowInfoFetcher struct {
	conn  xconn.Conn
	atoms *AtomCache
}

func newXWindowInfoFetcher(conn xconn.Conn, atoms *AtomCache) *xWindowInfoFetcher {
	return &xWindowInfoFetcher{conn: conn, atoms: atoms}
}

func (f *xWindowInfoFetcher) Fetch(id WindowID) (WindowInfo, error) {
	w := xproto.Window(id)
	x, y, width, height, bw, err := f.conn.GetGeometry(w)
	if err != nil {
		return WindowInfo{}, err
	}
	class, mapState, overrideRedir, visual, err := f.conn.GetWindowAttributes(w)
	if err != nil {
		return WindowInfo{}, err
	}
	wc := ClassInputOutput
	if class == xClassInputOnly {
		wc = ClassInputOnly
	}
	ms := MapStateUnmapped
	switch mapState {
	case xMapStateUnviewable:
		ms = MapStateUnviewable
	case xMapStateViewable:
		ms = MapStateViewable
	}

	info := WindowInfo{
		Geometry:      Rect{X: x, Y: y, W: width, H: height},
		BorderWidth:   bw,
		ClientID:      f.findClientWindow(w),
		Class:         wc,
		MapState:      ms,
		Visual:        visual,
		OverrideRedir: overrideRedir,
		Type:          WinTypeUnknown,
	}

	info.Type = f.atoms.WindowType(decodeAtomList(f.getProp(w, AtomWindowType)))

	if v, ok := decodeCardinal32(f.getProp(w, AtomOpacity)); ok {
		info.HasOpacityProp = true
		info.OpacityProp = v
	}

	if ext := f.getProp(w, AtomFrameExtents); len(ext) >= 16 {
		info.FrameExtents = FrameExtents{
			Left:   int32(binary.LittleEndian.Uint32(ext[0:4])),
			Right:  int32(binary.LittleEndian.Uint32(ext[4:8])),
			Top:    int32(binary.LittleEndian.Uint32(ext[8:12])),
			Bottom: int32(binary.LittleEndian.Uint32(ext[12:16])),
		}
	}

	if v, ok := decodeCardinal32(f.getProp(w, AtomComptonShadow)); ok {
		info.HasShadowProp = true
		info.ShadowProp = v
	}

	// Leader resolution: WM_CLIENT_LEADER is preferred, WM_TRANSIENT_FOR
	// is the fallback when no client leader is set (compton's
	// win_get_leader precedence).
	if v, ok := decodeCardinal32(f.getProp(w, AtomClientLeader)); ok && v != 0 {
		info.Leader = WindowID(v)
	} else if v, ok := decodeCardinal32(f.getProp(w, AtomTransientFor)); ok {
		info.Leader = WindowID(v)
	}

	return info, nil
}

// findClientWindow locates the WM-client child of a toplevel: the first
// window in a breadth-first walk of the subtree carrying WM_STATE, or the
// toplevel itself when no child has one yet (the ICCCM client-window walk
// from compton's find_client_win; reparenting WMs hang
// the real client one or more frames below their decoration frame).
func (f *xWindowInfoFetcher) findClientWindow(w xproto.Window) WindowID {
	if len(f.getProp(w, AtomWMState)) > 0 {
		return WindowID(w)
	}
	queue := []xproto.Window{w}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		_, children, err := f.conn.QueryTree(cur)
		if err != nil {
			break
		}
		for _, child := range children {
			if len(f.getProp(child, AtomWMState)) > 0 {
				return WindowID(child)
			}
			queue = append(queue, child)
		}
	}
	return WindowID(w)
}

// getProp resolves a tracked atom to its interned id and fetches its raw
// property bytes, swallowing a missing/unset property as "no bytes" rather
// than an error — PropertyChanged only cares about the atoms it tracks,
// and most windows don't set most of them.
func (f *xWindowInfoFetcher) getProp(w xproto.Window, t TrackedAtom) []byte {
	a, ok := f.atoms.byTracked[t]
	if !ok {
		return nil
	}
	data, err := f.conn.GetProperty(w, a)
	if err != nil {
		return nil
	}
	return data
}

func decodeAtomList(data []byte) []xconn.Atom {
	n := len(data) / 4
	out := make([]xconn.Atom, n)
	for i := 0; i < n; i++ {
		out[i] = xconn.Atom(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func decodeCardinal32(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}

// xShapeFetcher implements ShapeFetcher (dispatch.go) against a live
// xconn.Conn: it reads the Shape extension's bounding rectangles back and
// translates them by the border width. An unshaped window returns nil, the
// same fallback statemachine.go uses (plain geometry rectangle).
type xShapeFetcher struct {
	conn xconn.Conn
}

func newXShapeFetcher(conn xconn.Conn) *xShapeFetcher {
	return &xShapeFetcher{conn: conn}
}

func (f *xShapeFetcher) BoundingShape(id WindowID) *Region {
	w := xproto.Window(id)
	rects, shaped, err := f.conn.BoundingShapeRects(w)
	if err != nil || !shaped {
		return nil
	}
	_, _, _, _, bw, err := f.conn.GetGeometry(w)
	if err != nil {
		bw = 0
	}
	out := make([]Rect, 0, len(rects))
	for _, r := range rects {
		out = append(out, Rect{X: r.X + bw, Y: r.Y + bw, W: r.W, H: r.H})
	}
	return NewRegionFromRects(out)
}
