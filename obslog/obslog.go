// Package obslog configures the process-wide structured logger. Every
// NeverLiie component logs through this package rather than constructing
// its own zerolog.Logger, so a single verbosity knob governs the whole
// process.
package obslog

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.Mutex
	log zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
}

// consoleWriter wraps w with zerolog's human-readable console formatter,
// matching the pattern used for a peer's own diagnostic output: everything
// NeverLiie logs goes to stderr, so stdout stays free for a handler's own
// protocol-level use of standard streams.
func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// SetLevel parses level (e.g. "debug", "info", "warn") and applies it to
// the process-wide logger, defaulting to info on an unrecognized value.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)
}

// For returns a child logger tagged with a component name, e.g.
// obslog.For("registry").
func For(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log.With().Str("component", component).Logger()
}

// Root returns the process-wide logger directly.
func Root() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}
