package common

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger implements the Logger interface on top of logrus so that
// command line tools get structured, field-tagged output.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a logrus backed logger writing to w.
func NewLogrusLogger(w io.Writer, minLevel Severity, json bool) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrusLevel(minLevel))
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false, FullTimestamp: true})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusLoggerFromEntry wraps an existing entry, keeping its fields.
func NewLogrusLoggerFromEntry(entry *logrus.Entry) *LogrusLogger {
	return &LogrusLogger{entry: entry}
}

// WithField returns a logger that adds key=value to every message.
func (l *LogrusLogger) WithField(key string, value interface{}) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

// Log logs a message with the specified severity
func (l *LogrusLogger) Log(severity Severity, msg string) {
	l.entry.Log(logrusLevel(severity), msg)
}

// Logf logs a formatted message with the specified severity
func (l *LogrusLogger) Logf(severity Severity, format string, args ...interface{}) {
	l.Log(severity, fmt.Sprintf(format, args...))
}

// Error logs an error
func (l *LogrusLogger) Error(err error) {
	if err != nil {
		l.entry.WithError(err).Error(err.Error())
	}
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(msg string) { l.Log(SeverityDebug, msg) }

// Info logs an info message
func (l *LogrusLogger) Info(msg string) { l.Log(SeverityInfo, msg) }

// Warning logs a warning message
func (l *LogrusLogger) Warning(msg string) { l.Log(SeverityWarning, msg) }

func logrusLevel(s Severity) logrus.Level {
	switch s {
	case SeverityDebug:
		return logrus.DebugLevel
	case SeverityInfo:
		return logrus.InfoLevel
	case SeverityWarning:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
