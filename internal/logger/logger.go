package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logg = New("info", "json", os.Stdout)

// Get returns the process-wide logger.
func Get() *logrus.Logger {
	return logg
}

// Init replaces the process-wide logger. Call once from main after config is loaded.
func Init(level, format string) *logrus.Logger {
	logg = New(level, format, os.Stdout)
	return logg
}

// New builds a logger. Unknown levels fall back to info.
func New(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetOutput(out)
	return l
}

// Discard returns a logger that writes nowhere; used by tests and CLIs.
func Discard() *logrus.Logger {
	return New("panic", "text", io.Discard)
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
