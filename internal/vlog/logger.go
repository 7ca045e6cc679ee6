// Package vlog defines the one-method-ish logging seam threaded through
// every package that needs to report something without owning a
// terminal: page sync failures, block type-transition rejections, a
// schema directory that fails to load.
package vlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal interface every component logs through. It
// mirrors the injectable logger pebble threads through its Options,
// backed here by logrus instead of a hand-rolled writer.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Default returns a Logger backed by a logrus.Logger writing to stderr
// at info level, suitable as the zero-config logger for Options.
func Default() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &logrusLogger{l: l}
}

// New wraps an already-configured logrus.Logger.
func New(l *logrus.Logger) Logger {
	return &logrusLogger{l: l}
}

type logrusLogger struct {
	l *logrus.Logger
}

func (log *logrusLogger) Infof(format string, args ...interface{}) {
	log.l.Infof(format, args...)
}

func (log *logrusLogger) Fatalf(format string, args ...interface{}) {
	log.l.Fatalf(format, args...)
}

// NoOp discards every message. Tests that don't care about log output
// pass this instead of wiring a real sink.
var NoOp Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Fatalf(string, ...interface{}) {}
