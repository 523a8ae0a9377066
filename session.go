// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import "time"

// IgnoreEntry is one X request sequence number whose protocol error must
// be suppressed, kept as an ordered list of (sequence, kind).
type IgnoreEntry struct {
	Sequence uint16
	Kind     string
}

// Session is the root of all engine state, passed explicitly to every
// entry point rather than living in a mutable global the way compton's
// session_t singleton did. Only the signal-handler installation point
// (MainLoop.Run in mainloop.go) keeps anything process-wide, and only to hand events back
// into this struct.
type Session struct {
	Config *Config

	Registry   *Registry
	DamageRing *DamageRing
	Backend    Backend
	Shadows    *ShadowCache

	RootWidth, RootHeight int32
	ScreenRegion          *Region
	ShadowExcludeRegion   *Region
	XineramaScreens       []*Region

	OverlayID      WindowID
	RegistrationID WindowID
	Redirected     bool

	ActiveWindow WindowID
	ActiveLeader WindowID

	FadeTime    time.Time
	FadeRunning bool

	// Clock supplies the current time for fade-baseline anchoring
	// (armFade, statemachine.go); tests pin it to a synthetic instant.
	Clock func() time.Time

	UnredirDelayArmed bool

	Ignore []IgnoreEntry

	Quit  bool
	Reset bool

	// PaintExcluded is the externally-supplied window-matching predicate;
	// nil excludes nothing.
	PaintExcluded PaintExcluder

	// lastPainted remembers which windows were painted on the previous
	// preprocess pass; opacity/dim/mode changes only damage windows that
	// were actually on screen last frame.
	lastPainted map[WindowID]bool
}

// NewSession builds a Session with an empty registry and a fresh (closed)
// damage ring; the ring is (re)sized by the redirection controller once the
// backend reports its max_buffer_age.
func NewSession(cfg *Config) *Session {
	return &Session{
		Config:       cfg,
		Registry:     NewRegistry(),
		DamageRing:   NewDamageRing(1),
		ScreenRegion: emptyRegion,
		Clock:        time.Now,
	}
}

func (s *Session) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// PushIgnore appends a request sequence to the ignore list.
func (s *Session) PushIgnore(seq uint16, kind string) {
	s.Ignore = append(s.Ignore, IgnoreEntry{Sequence: seq, Kind: kind})
}

// PurgeIgnore discards every ignore entry with Sequence <= seq without
// matching anything, run per event so the list can't grow when the
// suppressed requests simply succeeded.
func (s *Session) PurgeIgnore(seq uint16) {
	kept := s.Ignore[:0]
	for _, e := range s.Ignore {
		if e.Sequence > seq {
			kept = append(kept, e)
		}
	}
	s.Ignore = kept
}

// ShouldIgnoreError reports whether errSeq matches a pending ignore entry,
// purging every entry with Sequence <= errSeq in the process (the X server
// delivers errors in sequence order, so anything older than the one we're
// looking at can never be matched again).
func (s *Session) ShouldIgnoreError(errSeq uint16) bool {
	matched := false
	kept := s.Ignore[:0]
	for _, e := range s.Ignore {
		if e.Sequence > errSeq {
			kept = append(kept, e)
			continue
		}
		if e.Sequence == errSeq {
			matched = true
		}
	}
	s.Ignore = kept
	return matched
}
