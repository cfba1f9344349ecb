package utils

import (
	"io"
	"os"

	"github.com/kairos-io/kairos-sdk/types"
	"github.com/rs/zerolog"
)

// Log is the logger shared by all rollerderby packages. It writes to stderr so
// reports on stdout stay parseable, and discards everything until SetLogger is called.
var Log = zerolog.Nop()

// KLog keeps a record of tag changes in the kairos log files. It is only set up
// by EnableAuditLog, so runs that only report leave no files behind.
var KLog = types.KairosLogger{Logger: zerolog.Nop()}

// NewLogger returns a console logger on w, at debug level if asked to or if
// ROLLERDERBY_DEBUG is set.
func NewLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug || os.Getenv("ROLLERDERBY_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// SetLogger sets up Log on stderr.
func SetLogger(debug bool) {
	Log = NewLogger(os.Stderr, debug)
}

// EnableAuditLog sets up KLog. Quiet, as Log already covers the console.
func EnableAuditLog() {
	KLog = types.NewKairosLogger("rollerderby", Log.GetLevel().String(), true)
}
