// Package logging builds the structured logger shared by every component.
//
// Usage:
//
//	log := logging.New("tvonline", "info")
//	log.WithField("channels", n).Info("playlist imported")
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logger writing to stdout with the service field set on
// every line. An unparseable level falls back to info.
func New(service, level string) *logrus.Entry {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter is New with a custom output.
func NewWithWriter(service, level string, w io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// Discard returns a logger that drops everything; tests use it.
func Discard() *logrus.Entry {
	return NewWithWriter("test", "panic", io.Discard)
}
