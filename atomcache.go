// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"

	"xcompositor/internal/xconn"
)

// AtomCache interns the fixed set of atoms the engine cares about
// (AtomNames, WindowTypeAtomNames, the registration atoms) exactly once at
// startup, the same "name once, use the integer thereafter" ICCCM idiom,
// so the dispatcher never round-trips InternAtom per event.
type AtomCache struct {
	byTracked map[TrackedAtom]xconn.Atom
	toTracked map[xconn.Atom]TrackedAtom

	byWinType map[xconn.Atom]WindowType

	netWMPid       xconn.Atom
	comptonVersion xconn.Atom
}

// NewAtomCache interns every atom the engine reads or writes.
func NewAtomCache(conn xconn.Conn) (*AtomCache, error) {
	c := &AtomCache{
		byTracked: make(map[TrackedAtom]xconn.Atom, len(AtomNames)),
		toTracked: make(map[xconn.Atom]TrackedAtom, len(AtomNames)),
		byWinType: make(map[xconn.Atom]WindowType, len(WindowTypeAtomNames)),
	}
	for tracked, name := range AtomNames {
		a, err := conn.InternAtom(name)
		if err != nil {
			return nil, fmt.Errorf("atomcache: intern %s: %w", name, err)
		}
		c.byTracked[tracked] = a
		c.toTracked[a] = tracked
	}
	for name, wt := range WindowTypeAtomNames {
		a, err := conn.InternAtom(name)
		if err != nil {
			return nil, fmt.Errorf("atomcache: intern %s: %w", name, err)
		}
		c.byWinType[a] = wt
	}
	var err error
	if c.netWMPid, err = conn.InternAtom(AtomNetWMPid); err != nil {
		return nil, err
	}
	if c.comptonVersion, err = conn.InternAtom(AtomComptonVersion); err != nil {
		return nil, err
	}
	return c, nil
}

// Tracked resolves a raw X atom to the engine's closed TrackedAtom enum; ok
// is false for atoms the engine doesn't react to.
func (c *AtomCache) Tracked(a xconn.Atom) (TrackedAtom, bool) {
	t, ok := c.toTracked[a]
	return t, ok
}

// WindowType resolves one entry of a _NET_WM_WINDOW_TYPE atom list; the
// first recognized atom wins, matching compton's win_get_type (falls back
// to WinTypeUnknown; no caller derives a Dialog or Normal default from
// WM_TRANSIENT_FOR, so the window keeps WinTypeUnknown).
func (c *AtomCache) WindowType(atoms []xconn.Atom) WindowType {
	for _, a := range atoms {
		if wt, ok := c.byWinType[a]; ok {
			return wt
		}
	}
	return WinTypeUnknown
}
