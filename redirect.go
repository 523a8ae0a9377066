// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"log"
)

// Redirector is the set of X-facing operations the redirection controller
// needs beyond what Session/Registry already model: asking the server to
// redirect or release subwindow rendering, and mapping/unmapping the
// overlay window. Kept as an injected interface (mirroring Rebinder,
// ParentOf, WindowInfoFetcher) so start/stop are unit-testable against a
// fake instead of a live composite extension.
type Redirector interface {
	RedirectSubwindows() error
	UnredirectSubwindows() error
	MapOverlay() error
	UnmapOverlay() error
	BindRootTile() (ImageHandle, error)
}

// StartRedirection begins compositing: map the overlay, redirect all
// subwindows of root, size the damage ring to the backend's buffer depth,
// build the shadow cache, and bind the root tile. On any step's
// failure it unredirects and unmaps the overlay again, leaves the damage
// ring refusing damage, and returns the error; the caller
// (main loop / dispatcher) treats a non-nil error as "stay unredirected".
func (s *Session) StartRedirection(x Redirector, backend Backend) (ImageHandle, error) {
	if s.Redirected {
		return 0, nil
	}
	if err := x.MapOverlay(); err != nil {
		return 0, fmt.Errorf("redirect: map overlay: %w", err)
	}
	if err := x.RedirectSubwindows(); err != nil {
		x.UnmapOverlay()
		return 0, fmt.Errorf("redirect: redirect subwindows: %w", err)
	}

	s.Backend = backend
	n := backend.MaxBufferAge()
	if n < 1 {
		n = 1
	}
	s.DamageRing = NewDamageRing(n)

	shadows, err := NewShadowCache(backend, 64)
	if err != nil {
		x.UnredirectSubwindows()
		x.UnmapOverlay()
		return 0, fmt.Errorf("redirect: shadow cache: %w", err)
	}
	s.Shadows = shadows

	rootTile, err := x.BindRootTile()
	if err != nil {
		x.UnredirectSubwindows()
		x.UnmapOverlay()
		return 0, fmt.Errorf("redirect: bind root tile: %w", err)
	}

	s.Redirected = true
	s.DamageRing.SetRedirected(true)
	s.DamageRing.AddDamage(s.ScreenRegion)
	return rootTile, nil
}

// StopRedirection ends compositing: release every live window's backend
// images, skip-fade them (nothing will render again
// until redirection restarts), ask X to unredirect, unmap the overlay, and
// drop the damage ring.
func (s *Session) StopRedirection(x Redirector) {
	if !s.Redirected {
		return
	}
	s.Registry.TopDown(func(w *Window) bool {
		s.releaseImages(w)
		w.Opacity = w.OpacityTgt
		if w.State.transient() {
			s.convergeFade(w, func(*Window, WindowState) {})
		}
		return true
	})
	if s.Shadows != nil {
		s.Shadows.Purge()
		s.Shadows = nil
	}

	if err := x.UnredirectSubwindows(); err != nil {
		log.Printf("stop redirection: unredirect subwindows: %v\n", err)
	}
	if err := x.UnmapOverlay(); err != nil {
		log.Printf("stop redirection: unmap overlay: %v\n", err)
	}

	if s.Backend != nil {
		s.Backend.Deinit()
		s.Backend = nil
	}
	s.Redirected = false
	s.DamageRing = NewDamageRing(1)
}
