// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import "flag"

// CLIOpts holds the flags a compositing engine actually needs: which
// display to open, how verbose to log, whether to unredirect fullscreen
// opaque windows, a default-config dump, and the PID file path. Everything
// else comes in through the resolved Config.
type CLIOpts struct {
	display            string
	verbose            bool
	unredirIfPossible  bool
	dumpConfig         bool
	pidFile            string
}

func parseCLIOpts() CLIOpts {
	var opt CLIOpts
	flag.StringVar(&opt.display, "display", "", "X display to connect to (default $DISPLAY)")
	flag.BoolVar(&opt.verbose, "v", false, "Verbose output (print logs to stderr)")
	flag.BoolVar(&opt.unredirIfPossible, "unredir", false, "Unredirect when a fullscreen opaque window covers the screen")
	flag.BoolVar(&opt.dumpConfig, "dump-config", false, "Print the default configuration as TOML and exit")
	flag.StringVar(&opt.pidFile, "pidfile", "", "Write the process id to this file while running")
	flag.Parse()
	return opt
}
