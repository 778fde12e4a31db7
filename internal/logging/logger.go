// Package logging builds the application logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/config"
)

// Fields represents structured logging fields
type Fields = logrus.Fields

// NewLogger creates a logger configured from LOG_LEVEL and LOG_FORMAT.
func NewLogger() *logrus.Logger {
	return New(os.Stderr, config.GetLogLevel(), config.GetEnv("LOG_FORMAT", "text"))
}

// New creates a logger writing to out. format is "json" or "text".
func New(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
