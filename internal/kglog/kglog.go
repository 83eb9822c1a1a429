// Package kglog configures the single zerolog.Logger threaded through the
// engine. Every component logs through a child logger carrying at least an
// "op" field; long-running pipeline stages add "elapsed_ms" via Timer.
package kglog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Components should derive a child
// via With() rather than constructing their own from scratch.
var Logger = New(os.Stderr, false)

// New builds a zerolog.Logger writing to w. When pretty is true, output goes
// through zerolog's ConsoleWriter (for interactive CLI use); otherwise it
// emits newline-delimited JSON suitable for log aggregation.
func New(w io.Writer, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// SetLevel adjusts the global zerolog level (panic..trace, or Disabled).
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// Op returns a child logger tagged with the operation name, the unit every
// pipeline entry point (process_nodes, run_clustering, build_full_hierarchy,
// analyze_privacy, ...) logs under.
func Op(op string) zerolog.Logger {
	return Logger.With().Str("op", op).Logger()
}

// Timer returns a function that, when called, logs elapsed_ms against the
// supplied event. Typical use:
//
//	done := kglog.Timer(kglog.Op("run_clustering").Info())
//	defer done()
func Timer(evt *zerolog.Event) func() {
	start := time.Now()
	return func() {
		evt.Dur("elapsed_ms", time.Since(start)).Send()
	}
}
