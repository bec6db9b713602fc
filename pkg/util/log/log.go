package log

import (
	"io"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
)

// Logger is the process wide go-kit logger. Components accept their own logger
// through options and fall back to this one.
var Logger = kitlog.NewNopLogger()

// InitLogger initialises the global logger writing to stderr and returns it.
func InitLogger(logFormat string, logLevel dslog.Level) kitlog.Logger {
	return InitLoggerWithWriter(logFormat, logLevel, os.Stderr)
}

// InitLoggerWithWriter is InitLogger with an explicit destination.
func InitLoggerWithWriter(logFormat string, logLevel dslog.Level, w io.Writer) kitlog.Logger {
	logger := dslog.NewGoKitWithWriter(logFormat, kitlog.NewSyncWriter(w))

	// utc timestamps, caller is 5 frames up through the level filter.
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.Caller(5))

	// level filter goes last
	logger = level.NewFilter(logger, logLevel.Option)

	Logger = logger
	return logger
}

// OrGlobal returns l, or the global Logger when l is nil.
func OrGlobal(l kitlog.Logger) kitlog.Logger {
	if l == nil {
		return Logger
	}
	return l
}
