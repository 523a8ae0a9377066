// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"xcompositor/internal/xconn"
)

var version = "unknown" // overridden at build time via -ldflags

func main() {
	opt := parseCLIOpts()

	if opt.verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	log.Printf("xcompositor starting. Version: %s\n", version)

	if opt.dumpConfig {
		cfg := DefaultConfig()
		data, err := EncodeConfigFixture(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "couldn't encode default config: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	if opt.pidFile != "" {
		if err := os.WriteFile(opt.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "xcompositor: write pid file: %v\n", err)
			os.Exit(1)
		}
	}

	for {
		reset, exitCode := run(opt)
		if !reset {
			if opt.pidFile != "" {
				os.Remove(opt.pidFile)
			}
			os.Exit(exitCode)
		}
		log.Printf("reset requested, reinitializing\n")
	}
}

// run opens a display, registers as the compositing manager, and drives the
// main loop to completion. It returns (true, 0) when Session.Reset was
// requested (SIGUSR1) so main can tear down and start over, and
// (false, exitCode) on a clean quit or a fatal startup failure.
func run(opt CLIOpts) (reset bool, exitCode int) {
	conn, err := xconn.Dial(opt.display)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcompositor: %v\n", err)
		return false, 1
	}
	defer conn.Close()

	cfg := DefaultConfig()
	if opt.unredirIfPossible {
		cfg.UnredirIfPossible = true
	}

	setup := conn.Setup()
	s := NewSession(cfg)
	s.RootWidth, s.RootHeight = setup.RootWidth, setup.RootHeight
	s.ScreenRegion = NewRegionFromRect(Rect{X: 0, Y: 0, W: setup.RootWidth, H: setup.RootHeight})

	atoms, err := NewAtomCache(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcompositor: %v\n", err)
		return false, 1
	}

	backend := NewNullBackend()
	adapter := newConnAdapter(conn, backend)

	if err := InitOverlay(s, conn, atoms, adapter, setup.ScreenNumber, uint32(os.Getpid()), "xcompositor "+version); err != nil {
		fmt.Fprintf(os.Stderr, "xcompositor: %v\n", err)
		return false, 1
	}

	selectionAtom, err := conn.InternAtom(fmt.Sprintf("%s%d", selectionAtomPrefix, setup.ScreenNumber))
	if err != nil {
		fmt.Fprintf(os.Stderr, "xcompositor: %v\n", err)
		return false, 1
	}

	selectionLost := false
	d := &Dispatcher{
		Session:       s,
		Atoms:         atoms,
		Info:          newXWindowInfoFetcher(conn, atoms),
		Shape:         newXShapeFetcher(conn),
		Hooks:         adapter,
		Screens:       adapter,
		RootID:        WindowID(setup.Root),
		SelectionAtom: selectionAtom,
		ActiveWindow: func() (WindowID, bool) {
			a, ok := atoms.byTracked[AtomNetActiveWindow]
			if !ok {
				return 0, false
			}
			data, err := conn.GetProperty(setup.Root, a)
			if err != nil {
				return 0, false
			}
			v, ok := decodeCardinal32(data)
			return WindowID(v), ok
		},
		Parents: func(id WindowID) (WindowID, bool) {
			parent, _, err := conn.QueryTree(xconn.Window(id))
			if err != nil || parent == 0 {
				return 0, false
			}
			return WindowID(parent), true
		},
		OnSelectionLost: func() {
			log.Printf("manager selection lost, shutting down\n")
			selectionLost = true
		},
	}

	for _, r := range adapter.XineramaScreens() {
		s.XineramaScreens = append(s.XineramaScreens, NewRegionFromRect(r))
	}

	if _, err := s.StartRedirection(adapter, backend); err != nil {
		fmt.Fprintf(os.Stderr, "xcompositor: initial redirection failed: %v\n", err)
		return false, 1
	}

	if err := scanExistingWindows(s, conn, d); err != nil {
		log.Printf("initial window scan: %v\n", err)
	}

	loop := NewMainLoop(s, d, conn, adapter, backend)
	if err := loop.Run(); err != nil {
		log.Printf("main loop exited with error: %v\n", err)
	}

	s.StopRedirection(adapter)
	backend.Deinit()
	if selectionLost {
		return false, 1
	}
	return s.Reset, 0
}

// scanExistingWindows enumerates the toplevels that already exist when
// the compositor starts, under the only server grab the engine ever
// takes: without the grab, a window mapped between QueryTree and the
// per-window fetches would be missed by both the scan and the event
// stream.
func scanExistingWindows(s *Session, conn xconn.Conn, d *Dispatcher) error {
	if err := conn.GrabServer(); err != nil {
		return fmt.Errorf("grab server: %w", err)
	}
	defer func() {
		if err := conn.UngrabServer(); err != nil {
			log.Printf("ungrab server: %v\n", err)
		}
	}()

	_, children, err := conn.QueryTree(conn.RootWindow())
	if err != nil {
		return fmt.Errorf("query tree: %w", err)
	}
	prev := WindowID(0) // QueryTree returns children bottom-to-top
	for _, child := range children {
		id := WindowID(child)
		if id == s.OverlayID || id == s.RegistrationID {
			continue
		}
		info, err := d.Info.Fetch(id)
		if err != nil {
			log.Printf("scan %d: fetch window info: %v\n", id, err)
			continue
		}
		w := s.Registry.AddWindow(id, prev)
		prev = id
		if info.MapState != MapStateViewable {
			continue
		}
		if d.Shape != nil {
			info.BoundingShape = d.Shape.BoundingShape(id)
		}
		s.Map(w, info, !s.Redirected)
		if d.Hooks != nil {
			if err := d.Hooks.SelectShapeEvents(id); err != nil {
				log.Printf("scan %d: select shape events: %v\n", id, err)
			}
			if err := d.Hooks.CreateDamage(id); err != nil {
				log.Printf("scan %d: create damage: %v\n", id, err)
			} else {
				w.hasDamageHandle = true
			}
		}
	}
	return nil
}
