// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xcompositor/internal/xconn"
)

// MainLoop is the single-threaded cooperative scheduler over X events,
// timers, and signals. xconn.Conn.NextEvent blocks on the underlying
// socket, so a dedicated goroutine drains it into a channel and Run's
// select multiplexes that channel against signals and the fade timer.
// Everything Run delegates to is plain Go and independently testable, the
// same split dispatch.go keeps between "what to do" (testable) and "how
// to learn an event happened" (xconn).
type MainLoop struct {
	Session    *Session
	Dispatcher *Dispatcher
	Conn       xconn.Conn
	Redirector Redirector
	Backend    Backend
	RootTile   ImageHandle

	// ShadowKernel supplies the convolution kernel for a given radius.
	// Nil uses a flat fallback kernel, since no concrete rendering backend
	// is in scope to make the kernel's exact shape observable.
	ShadowKernel func(radius int) []float64

	events chan xconn.Event
	closed chan struct{}

	// unredirDeadline is the pending unredirect instant when the
	// unredir-if-possible delay is armed.
	unredirDeadline time.Time
}

// NewMainLoop wires a MainLoop around an already-connected, already-redirected
// session and starts the event-reader goroutine.
func NewMainLoop(s *Session, d *Dispatcher, conn xconn.Conn, redirector Redirector, backend Backend) *MainLoop {
	m := &MainLoop{
		Session: s, Dispatcher: d, Conn: conn, Redirector: redirector, Backend: backend,
		events: make(chan xconn.Event, 64),
		closed: make(chan struct{}),
	}
	go m.readEvents()
	return m
}

// readEvents is the sole caller of Conn.NextEvent; it owns the blocking
// read so Run's select never has to.
func (m *MainLoop) readEvents() {
	defer close(m.closed)
	for {
		ev, ok := m.Conn.NextEvent()
		if !ok {
			return
		}
		m.events <- ev
	}
}

// Run blocks until the session quits or requests a reset. The caller is
// responsible for tearing down and re-creating the MainLoop when Run
// returns with Session.Reset set.
func (m *MainLoop) Run() error {
	sig := make(chan os.Signal, 4)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sig)

	fadeDelta := time.Duration(m.Session.Config.FadeDelta) * time.Millisecond
	if fadeDelta <= 0 {
		fadeDelta = time.Millisecond
	}

	ticker := time.NewTicker(fadeDelta)
	defer ticker.Stop()

	m.prepare()

	for !m.Session.Quit && !m.Session.Reset {
		var fadeTick <-chan time.Time
		if m.Session.FadeRunning || m.Session.UnredirDelayArmed {
			fadeTick = ticker.C
		}

		select {
		case s := <-sig:
			switch s {
			case syscall.SIGINT, syscall.SIGTERM:
				m.Session.Quit = true
			case syscall.SIGUSR1:
				m.Session.Reset = true
			}
			continue
		case ev := <-m.events:
			m.Dispatcher.Dispatch(ev)
			m.drainPendingEvents()
		case <-fadeTick:
		case <-m.closed:
			m.Session.Quit = true
			continue
		}

		m.prepare()
		if err := m.Tick(time.Now()); err != nil {
			log.Printf("main loop tick: %v\n", err)
		}
	}
	return nil
}

// prepare runs right before the loop sleeps: drain events already
// queued and flush pending requests, since new damage depends on
// damage-subtract replies going out.
func (m *MainLoop) prepare() {
	m.drainPendingEvents()
	if err := m.Conn.Sync(); err != nil {
		log.Printf("prepare: sync: %v\n", err)
	}
}

// drainPendingEvents dispatches every event already buffered on the
// channel without blocking, so a burst delivered between select wakeups is
// handled before the next Tick rather than one event at a time.
func (m *MainLoop) drainPendingEvents() {
	for {
		select {
		case ev := <-m.events:
			m.Dispatcher.Dispatch(ev)
		default:
			return
		}
	}
}

// Tick runs one cooperative scheduling step: advance the fade/preprocess
// state and, if anything needs painting, render and present a frame. Split
// out from Run so it can be driven directly in tests with a synthetic
// clock.
func (m *MainLoop) Tick(now time.Time) error {
	s := m.Session
	res := s.Preprocess(now, func(*Window, WindowState) {}, m.rebind)

	if res.WantRedirected {
		s.UnredirDelayArmed = false
		m.unredirDeadline = time.Time{}
		if !s.Redirected {
			tile, err := s.StartRedirection(m.Redirector, m.Backend)
			if err != nil {
				log.Printf("redirection start failed: %v\n", err)
			} else {
				m.RootTile = tile
			}
		}
	} else if s.Redirected && s.Config.UnredirIfPossible {
		delay := time.Duration(s.Config.UnredirIfPossibleDelay) * time.Millisecond
		switch {
		case delay <= 0:
			s.StopRedirection(m.Redirector)
		case !s.UnredirDelayArmed:
			s.UnredirDelayArmed = true
			m.unredirDeadline = now.Add(delay)
		case !now.Before(m.unredirDeadline):
			s.UnredirDelayArmed = false
			m.unredirDeadline = time.Time{}
			s.StopRedirection(m.Redirector)
		}
	}

	if !s.Redirected {
		return nil
	}

	d := s.DamageRing.Repaint(s.Backend.BufferAge())
	if d == nil {
		d = s.ScreenRegion
	}
	if d.IsEmpty() {
		return nil
	}

	s.Backend.Prepare(d)
	if err := s.Paint(res.SubStackBottom, d, m.RootTile); err != nil {
		return err
	}
	if err := s.Backend.Present(); err != nil {
		return err
	}
	s.DamageRing.Advance()
	return m.Conn.Sync()
}

// rebind re-binds a window's backend image after its pixmap changed
// size. Re-fetching the live pixmap id is an X-facing
// operation the Redirector interface doesn't currently expose, so this
// binds a null pixmap; a window record with a real backend would plug its
// own NameWindowPixmap result in here before calling BindPixmap. It also
// (re)renders the window's shadow image through the shared ShadowCache when
// the window wants one, since a stale win image and a stale shadow size
// (both driven by the same geometry change) are retired together.
func (m *MainLoop) rebind(w *Window) error {
	img, err := m.Backend.BindPixmap(0, w.Visual, false)
	if err != nil {
		return err
	}
	w.winImage = img

	if w.Shadow && m.Session.Shadows != nil {
		cfg := m.Session.Config
		kernel := m.shadowKernelFor(cfg.ShadowRadius)
		simg, err := m.Session.Shadows.Get(w.ShadowWidth, w.ShadowHeight, kernel, cfg.ShadowRed, cfg.ShadowGreen, cfg.ShadowBlue, 1.0)
		if err != nil {
			return err
		}
		w.shadowImage = simg
	} else {
		w.shadowImage = 0
	}
	return nil
}

// shadowKernelFor returns the configured or fallback shadow kernel.
func (m *MainLoop) shadowKernelFor(radius int) []float64 {
	if m.ShadowKernel != nil {
		return m.ShadowKernel(radius)
	}
	return flatShadowKernel(radius)
}

// flatShadowKernel is a placeholder convolution kernel used when no real
// shadow-kernel collaborator is wired in: a uniform weight per
// pixel of a (2*radius+1)^2 box, which at least keys the ShadowCache
// correctly by radius. A concrete backend would replace this with an actual
// Gaussian (or compton's own kernel) precomputed once per radius.
func flatShadowKernel(radius int) []float64 {
	if radius < 0 {
		radius = 0
	}
	side := 2*radius + 1
	n := side * side
	if n == 0 {
		n = 1
	}
	k := make([]float64, n)
	w := 1.0 / float64(n)
	for i := range k {
		k[i] = w
	}
	return k
}
