// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import "log"

// Registry is the window hash plus the bottom-to-top stack: a
// doubly-linked list (Window.above/below) for O(1) restack, with a
// parallel map for O(1) id lookup. The stack must support mid-list
// insertion and removal without shifting everything else, hence the
// intrusive list rather than a slice.
type Registry struct {
	byID  map[WindowID]*Window
	top   *Window // highest window, nil if empty
	bottom *Window // lowest window, nil if empty
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[WindowID]*Window)}
}

// AddWindow inserts a new Unmapped window above the window with id prevID
// (or at the bottom if prevID is 0). It is idempotent: silently does
// nothing if id is already present. It is the caller's
// responsibility to have already filtered out Unviewable windows and the
// overlay window id before calling this.
func (r *Registry) AddWindow(id WindowID, prevID WindowID) *Window {
	if _, ok := r.byID[id]; ok {
		return r.byID[id]
	}
	w := &Window{ID: id, State: StateUnmapped, regIgnoreValid: true}
	r.byID[id] = w

	if prevID == 0 {
		r.linkAtBottom(w)
		return w
	}
	above, ok := r.byID[prevID]
	if !ok {
		log.Printf("add_window: prev id %d unknown, inserting at bottom\n", prevID)
		r.linkAtBottom(w)
		return w
	}
	r.linkAbove(w, above)
	return w
}

func (r *Registry) linkAtBottom(w *Window) {
	w.below = nil
	w.above = r.bottom
	if r.bottom != nil {
		r.bottom.below = w
	}
	r.bottom = w
	if r.top == nil {
		r.top = w
	}
}

// linkBelow inserts w directly below `above` in the stack, making `above`
// w's upward neighbor.
func (r *Registry) linkBelow(w, above *Window) {
	prev := above.below
	w.above = above
	w.below = prev
	above.below = w
	if prev != nil {
		prev.above = w
	} else {
		r.bottom = w
	}
}

// linkAbove inserts w directly above `above` in the stack.
func (r *Registry) linkAbove(w, above *Window) {
	next := above.above // the window currently above `above`
	w.below = above
	w.above = next
	above.above = w
	if next != nil {
		next.below = w
	} else {
		r.top = w
	}
}

func (r *Registry) unlink(w *Window) {
	if w.above != nil {
		w.above.below = w.below
	} else {
		r.top = w.below
	}
	if w.below != nil {
		w.below.above = w.above
	} else {
		r.bottom = w.above
	}
	w.above, w.below = nil, nil
}

// FindWindow returns the record for id if present and not Destroying.
func (r *Registry) FindWindow(id WindowID) *Window {
	w, ok := r.byID[id]
	if !ok || w.State == StateDestroying {
		return nil
	}
	return w
}

// Remove removes id from the hash (invariant: id ∉ hash iff state ==
// Destroying) but leaves the stack node intact so it can still be painted
// while it fades out.
func (r *Registry) Remove(id WindowID) {
	delete(r.byID, id)
}

// UnlinkFromStack physically removes a destroyed window's node from the
// stack; called once its fade-out finishes.
func (r *Registry) UnlinkFromStack(w *Window) {
	r.unlink(w)
}

// FindToplevel linearly scans the registry for the window whose ClientID
// matches clientID (deliberately a linear scan, not an index — client ids
// are rare to look up compared to window ids).
func (r *Registry) FindToplevel(clientID WindowID) *Window {
	for w := r.top; w != nil; w = w.below {
		if w.ClientID == clientID {
			return w
		}
	}
	return nil
}

// ParentOf resolves the X parent chain one level; supplied by the X
// transport since the registry has no connection of its own.
type ParentOf func(id WindowID) (parent WindowID, ok bool)

// FindToplevel2 walks the X parent chain starting at anyID until a known
// window is found.
func (r *Registry) FindToplevel2(anyID WindowID, parentOf ParentOf) *Window {
	id := anyID
	for {
		if w := r.FindWindow(id); w != nil {
			return w
		}
		parent, ok := parentOf(id)
		if !ok || parent == id {
			return nil
		}
		id = parent
	}
}

// Restack moves w so its upward neighbor has id newAboveID (0 means "move
// to top"). Restacking w against its current upward neighbor is a no-op.
// If newAboveID names an unknown or Destroying window, the move is
// rejected and logged.
func (r *Registry) Restack(w *Window, newAboveID WindowID) {
	if newAboveID != 0 {
		above, ok := r.byID[newAboveID]
		if !ok || above.State == StateDestroying {
			log.Printf("restack: target above-id %d unknown or destroying, ignoring\n", newAboveID)
			return
		}
		if above == w || w.above == above {
			return
		}
		r.invalidateAround(w)
		r.unlink(w)
		r.linkBelow(w, above)
		r.invalidateAround(w)
		return
	}
	if w == r.top {
		return
	}
	r.invalidateAround(w)
	r.unlink(w)
	w.below = r.top
	w.above = nil
	if r.top != nil {
		r.top.above = w
	}
	r.top = w
	if r.bottom == nil {
		r.bottom = w
	}
	r.invalidateAround(w)
}

// RestackAbove places w immediately above the sibling with id sibID — the
// X ConfigureNotify above-sibling convention, where sibID 0 ("None") means
// the window sank to the bottom of the stack.
func (r *Registry) RestackAbove(w *Window, sibID WindowID) {
	if sibID == 0 {
		r.RestackBottom(w)
		return
	}
	sib, ok := r.byID[sibID]
	if !ok || sib.State == StateDestroying {
		log.Printf("restack: above-sibling %d unknown or destroying, ignoring\n", sibID)
		return
	}
	if sib == w || sib.above == w {
		return
	}
	r.invalidateAround(w)
	r.unlink(w)
	r.linkAbove(w, sib)
	r.invalidateAround(w)
}

// RestackBottom moves w to the bottom of the stack (CirculateNotify with
// PlaceOnBottom).
func (r *Registry) RestackBottom(w *Window) {
	if w == r.bottom {
		return
	}
	r.invalidateAround(w)
	r.unlink(w)
	r.linkAtBottom(w)
	r.invalidateAround(w)
}

// invalidateAround drops reg_ignore_valid for w and everything below it:
// a restack can change which windows are "above" any given window, so the
// ignore cache of the moved window and everything beneath its old and new
// position must be recomputed.
func (r *Registry) invalidateAround(w *Window) {
	for n := w; n != nil; n = n.below {
		n.regIgnoreValid = false
	}
}

// Bottom returns the lowest window in the stack, or nil if empty.
func (r *Registry) Bottom() *Window { return r.bottom }

// Top returns the highest window in the stack, or nil if empty.
func (r *Registry) Top() *Window { return r.top }

// TopDown calls fn for every window from top to bottom, stopping early if
// fn returns false.
func (r *Registry) TopDown(fn func(*Window) bool) {
	for w := r.top; w != nil; w = w.below {
		if !fn(w) {
			return
		}
	}
}

// BottomUp calls fn for every window from bottom to top, stopping early if
// fn returns false.
func (r *Registry) BottomUp(fn func(*Window) bool) {
	for w := r.bottom; w != nil; w = w.above {
		if !fn(w) {
			return
		}
	}
}
