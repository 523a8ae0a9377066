// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// TrackedAtom enumerates the EWMH/ICCCM/compton-private properties the
// engine reacts to on PropertyNotify. The X atom ->
// TrackedAtom resolution lives in AtomCache.Tracked (atomcache.go), which
// knows the live xproto.Atom values and which the dispatcher consults; the
// state machine only ever sees this
// closed enum so it stays testable without an atom cache.
type TrackedAtom int

const (
	AtomWindowType TrackedAtom = iota
	AtomOpacity
	AtomFrameExtents
	AtomClass
	AtomName
	AtomRole
	AtomTransientFor
	AtomClientLeader
	AtomComptonShadow
	AtomWMState
	AtomNetActiveWindow
	AtomRootPixmap
	AtomESetRootPixmap
	AtomXSetRootID
)

// AtomNames is the canonical EWMH/ICCCM atom name for each TrackedAtom,
// used by the atom cache (atomcache.go) to intern them once at startup —
// the same "name once, use xproto.Atom thereafter" idiom ICCCM property
// getters rely on.
var AtomNames = map[TrackedAtom]string{
	AtomWindowType:    "_NET_WM_WINDOW_TYPE",
	AtomOpacity:       "_NET_WM_WINDOW_OPACITY",
	AtomFrameExtents:  "_NET_FRAME_EXTENTS",
	AtomClass:         "WM_CLASS",
	AtomName:          "WM_NAME",
	AtomRole:          "WM_WINDOW_ROLE",
	AtomTransientFor:  "WM_TRANSIENT_FOR",
	AtomClientLeader:  "WM_CLIENT_LEADER",
	AtomComptonShadow: "_COMPTON_SHADOW",
	AtomWMState:       "WM_STATE",
	AtomNetActiveWindow: "_NET_ACTIVE_WINDOW",

	// Wallpaper atoms, tracked on root only: a change to any of them means
	// the background pixmap was swapped and the whole root is stale.
	AtomRootPixmap:     "_XROOTPMAP_ID",
	AtomESetRootPixmap: "ESETROOT_PMAP_ID",
	AtomXSetRootID:     "_XSETROOT_ID",
}

// wallpaperAtom reports whether a tracked atom names the root background
// pixmap.
func wallpaperAtom(t TrackedAtom) bool {
	switch t {
	case AtomRootPixmap, AtomESetRootPixmap, AtomXSetRootID:
		return true
	default:
		return false
	}
}

// WindowTypeAtomNames maps the _NET_WM_WINDOW_TYPE atom suffixes to the
// engine's WindowType enum.
var WindowTypeAtomNames = map[string]WindowType{
	"_NET_WM_WINDOW_TYPE_DESKTOP":       WinTypeDesktop,
	"_NET_WM_WINDOW_TYPE_DOCK":          WinTypeDock,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":       WinTypeToolbar,
	"_NET_WM_WINDOW_TYPE_MENU":          WinTypeMenu,
	"_NET_WM_WINDOW_TYPE_UTILITY":       WinTypeUtility,
	"_NET_WM_WINDOW_TYPE_SPLASH":        WinTypeSplash,
	"_NET_WM_WINDOW_TYPE_DIALOG":        WinTypeDialog,
	"_NET_WM_WINDOW_TYPE_NORMAL":        WinTypeNormal,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": WinTypeDropdownMenu,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    WinTypePopupMenu,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":       WinTypeTooltip,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  WinTypeNotify,
	"_NET_WM_WINDOW_TYPE_COMBO":         WinTypeCombo,
	"_NET_WM_WINDOW_TYPE_DND":           WinTypeDnd,
}

// Atoms written on the 1x1 registration window at startup, plus the
// manager-selection prefix (_NET_WM_CM_S<screen>).
const (
	AtomNetWMPid        = "_NET_WM_PID"
	AtomComptonVersion  = "COMPTON_VERSION"
	selectionAtomPrefix = "_NET_WM_CM_S"
)
