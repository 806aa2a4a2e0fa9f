// Package logger configures the process-wide structured logger.
//
// All packages log through logrus; this package owns the knobs the
// launcher exposes: verbosity, output format and the optional Sentry
// hook for error reporting.
package logger

import (
	"fmt"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetFormatter(defaultFormatter())
	logrus.SetLevel(logrus.InfoLevel)
}

func defaultFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	}
}

// New returns an entry tagged with the module name, the way all
// packages of this repo obtain their logger.
func New(module string) *logrus.Entry {
	return logrus.WithField("module", module)
}

// SetLevel sets the level filter by name ("info", "debug", ...).
func SetLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

// SetVerbosity sets the level filter from a numeric verbosity knob:
// 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace.
func SetVerbosity(v int) error {
	levels := map[int]logrus.Level{
		0: logrus.PanicLevel,
		1: logrus.ErrorLevel,
		2: logrus.WarnLevel,
		3: logrus.InfoLevel,
		4: logrus.DebugLevel,
		5: logrus.TraceLevel,
	}
	level, ok := levels[v]
	if !ok {
		return fmt.Errorf("verbosity must be in range 0-5, got %d", v)
	}
	logrus.SetLevel(level)
	return nil
}

// SetJSON switches between the JSON and the human-readable output
// format.
func SetJSON(on bool) {
	if on {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(defaultFormatter())
}

// SetColor installs the text formatter, with ANSI colors following
// terminal detection (on) or disabled entirely (off).
func SetColor(on bool) {
	if on {
		logrus.SetFormatter(defaultFormatter())
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	})
}

// sentryHookLevels are the levels forwarded to Sentry.
var sentryHookLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

// SetDSN appends an async Sentry hook to the logger. An empty DSN
// disables error reporting and is not an error.
func SetDSN(dsn string) error {
	if dsn == "" {
		return nil
	}
	hook, err := logrus_sentry.NewAsyncSentryHook(dsn, sentryHookLevels)
	if err != nil {
		return err
	}
	hook.Timeout = 100 * time.Millisecond
	hook.StacktraceConfiguration.Enable = true
	logrus.AddHook(hook)
	return nil
}
