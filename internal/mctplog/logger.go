// Package mctplog defines the logging abstraction shared by every component
// of the emulator core.
package mctplog

import "github.com/sirupsen/logrus"

// Logger is the interface every core component takes at construction.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// logrusLogger wraps a *logrus.Logger to satisfy Logger with printf-style
// call sites, matching the shape callers already expect from the core.
type logrusLogger struct {
	l *logrus.Logger
}

// New wraps l as a Logger. Pass nil to get logrus.StandardLogger().
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{l: l}
}

// NewDefault builds a Logger backed by a fresh logrus.Logger with the given
// debug flag controlling whether Debug-level records are emitted.
func NewDefault(debug bool) Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{l: l}
}

func (w *logrusLogger) Debug(msg string, args ...interface{}) {
	w.l.Debugf(msg, args...)
}

func (w *logrusLogger) Info(msg string, args ...interface{}) {
	w.l.Infof(msg, args...)
}

func (w *logrusLogger) Warn(msg string, args ...interface{}) {
	w.l.Warnf(msg, args...)
}

func (w *logrusLogger) Error(msg string, args ...interface{}) {
	w.l.Errorf(msg, args...)
}

// Null discards every log record; used in tests.
type Null struct{}

func (Null) Debug(string, ...interface{}) {}
func (Null) Info(string, ...interface{})  {}
func (Null) Warn(string, ...interface{})  {}
func (Null) Error(string, ...interface{}) {}
