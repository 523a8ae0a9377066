// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"bytes"
	"log"

	"github.com/BurntSushi/toml"
)

// WintypeOption is the per-window-type tuning table.
type WintypeOption struct {
	Shadow      bool
	Fade        bool
	Focus       bool
	Opacity     float64
	RedirIgnore bool
}

// Config is the resolved configuration the engine consumes. Parsing a
// config file from disk is an external collaborator's job;
// this struct is what that collaborator hands the engine once its own
// rule/file parsing has run. It stays a plain struct, encoded/decoded
// with github.com/BurntSushi/toml purely so
// tests and debug tooling have a human-editable fixture format — the
// engine never reads this off disk itself at runtime.
type Config struct {
	FadeDelta   int // milliseconds per fade timer tick
	FadeInStep  float64
	FadeOutStep float64

	ShadowRadius  int
	ShadowOpacity float64
	ShadowOffsetX int
	ShadowOffsetY int
	ShadowRed     float64
	ShadowGreen   float64
	ShadowBlue    float64

	BlurKerns           []string
	BlurBackground      bool
	BlurBackgroundFrame bool
	BlurBackgroundFixed bool

	InactiveOpacity float64
	InactiveDim     float64
	ActiveOpacity   float64
	FrameOpacity    float64

	UnredirIfPossible      bool
	UnredirIfPossibleDelay int // milliseconds

	TrackFocus           bool
	UseEwmhActiveWin     bool
	DetectRoundedCorners bool
	DetectClientOpacity  bool
	DetectTransient      bool
	DetectClientLeader   bool
	XineramaShadowCrop   bool

	Wintype [int(numWinTypes)]WintypeOption
}

const configFixtureFile = "config.toml"

// DefaultConfig returns reasonable, conservative values a caller can
// start from before applying rule-derived overrides.
func DefaultConfig() *Config {
	c := &Config{
		FadeDelta:   10,
		FadeInStep:  0.028,
		FadeOutStep: 0.03,

		ShadowRadius:  12,
		ShadowOpacity: 0.75,
		ShadowOffsetX: -15,
		ShadowOffsetY: -15,

		BlurBackground: false,

		InactiveOpacity: 1.0,
		InactiveDim:     0.0,
		ActiveOpacity:   1.0,
		FrameOpacity:    1.0,

		UnredirIfPossible:      false,
		UnredirIfPossibleDelay: 0,

		TrackFocus:           false,
		UseEwmhActiveWin:     false,
		DetectRoundedCorners: false,
		DetectClientOpacity:  false,
		DetectTransient:      false,
		DetectClientLeader:   false,
	}
	for i := range c.Wintype {
		c.Wintype[i] = WintypeOption{Shadow: true, Fade: true, Focus: false, Opacity: 1.0}
	}
	// Desktop windows never get a shadow and are always treated as
	// focused; docks are always focused too.
	c.Wintype[WinTypeDesktop] = WintypeOption{Shadow: false, Fade: true, Focus: true, Opacity: 1.0}
	c.Wintype[WinTypeDock] = WintypeOption{Shadow: true, Fade: true, Focus: true, Opacity: 1.0}
	return c
}

// EncodeConfigFixture serializes a Config to TOML for golden test
// fixtures and `-dump-config` debugging.
func EncodeConfigFixture(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeConfigFixture parses a TOML fixture back into a Config.
func DecodeConfigFixture(data []byte) (*Config, error) {
	c := &Config{}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) wintype(t WindowType) WintypeOption {
	if int(t) < 0 || int(t) >= len(c.Wintype) {
		log.Printf("wintype lookup out of range: %v\n", t)
		return WintypeOption{Shadow: true, Fade: true, Opacity: 1.0}
	}
	return c.Wintype[t]
}
