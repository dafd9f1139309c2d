// Package logger provides component-scoped structured logging for the
// attestation library. All components log through logrus with a JSON
// formatter so library output can be shipped as-is from services embedding
// the verifier.
package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// New returns a logger scoped to the given component name.
func New(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetLevel sets the global log level. Unknown levels fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "info":
		base.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
