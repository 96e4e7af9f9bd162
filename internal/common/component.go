package common

import (
	"fmt"

	logcommon "satarecon/common"
	"satarecon/internal/sata"
)

// ErrorLog is the interface to the target environment error logging functionality.
type ErrorLog interface {
	// LogError logs an error.
	LogError(filterLevel sata.ErrSeverity, msg string)
	// LogMessage logs a standard message.
	LogMessage(filterLevel sata.ErrSeverity, msg string)
}

// AttachPt holds at most one attached interface of type T.
type AttachPt[T any] struct {
	hasAttached bool
	comp        T
}

// Attach attaches comp. It fails if something is already attached.
func (a *AttachPt[T]) Attach(comp T) sata.Err {
	if a.hasAttached {
		return sata.ErrInvalidParamVal
	}
	a.comp = comp
	a.hasAttached = true
	return sata.OK
}

// Detach removes the attached interface.
func (a *AttachPt[T]) Detach() sata.Err {
	if !a.hasAttached {
		return sata.ErrNotInit
	}
	var empty T
	a.comp = empty
	a.hasAttached = false
	return sata.OK
}

// ReplaceFirst detaches any currently attached component and attaches the new one.
func (a *AttachPt[T]) ReplaceFirst(comp T) sata.Err {
	if a.hasAttached {
		_ = a.Detach()
	}
	return a.Attach(comp)
}

// First returns the attached interface, or the zero value.
func (a *AttachPt[T]) First() T {
	return a.comp
}

// HasAttached returns true if there is an attached interface.
func (a *AttachPt[T]) HasAttached() bool {
	return a.hasAttached
}

// Component is the base struct for the stream processing components.
// It provides error logging attachment, component naming and verbosity.
type Component struct {
	name         string
	errorLogger  AttachPt[ErrorLog]
	errVerbosity sata.ErrSeverity
}

// InitComponent initializes a Component. This is favored over a constructor
// so it can be safely embedded and initialized in place.
func (c *Component) InitComponent(name string) {
	c.name = name
	c.errVerbosity = sata.ErrSevWarn
}

// ComponentName returns the component's name.
func (c *Component) ComponentName() string {
	return c.name
}

// ErrorLogAttachPt returns the error logger attachment point.
func (c *Component) ErrorLogAttachPt() *AttachPt[ErrorLog] {
	return &c.errorLogger
}

// LogError logs an error if an error logger is attached.
func (c *Component) LogError(err *Error) {
	if err.Sev <= c.errVerbosity && c.errorLogger.HasAttached() {
		c.errorLogger.First().LogError(err.Sev, c.name+": "+err.Error())
	}
}

// LogMessage logs a message if the level matches the verbosity and a logger is attached.
func (c *Component) LogMessage(filterLevel sata.ErrSeverity, msg string) {
	if filterLevel <= c.errVerbosity && c.errorLogger.HasAttached() {
		c.errorLogger.First().LogMessage(filterLevel, c.name+": "+msg)
	}
}

// LogMessagef formats and logs a message.
func (c *Component) LogMessagef(filterLevel sata.ErrSeverity, format string, args ...any) {
	if c.IsLoggingErrorLevel(filterLevel) && c.errorLogger.HasAttached() {
		c.LogMessage(filterLevel, fmt.Sprintf(format, args...))
	}
}

// ErrorLogLevel returns the current error log level.
func (c *Component) ErrorLogLevel() sata.ErrSeverity {
	return c.errVerbosity
}

// IsLoggingErrorLevel returns true if the level would be logged.
func (c *Component) IsLoggingErrorLevel(level sata.ErrSeverity) bool {
	return level <= c.errVerbosity
}

// SetErrorLogLevel sets the verbosity of error logging.
func (c *Component) SetErrorLogLevel(level sata.ErrSeverity) {
	c.errVerbosity = level
}

// LoggerErrorLog adapts a public Logger to the ErrorLog interface.
type LoggerErrorLog struct {
	logger logcommon.Logger
}

// NewLoggerErrorLog wraps logger. A nil logger discards everything.
func NewLoggerErrorLog(logger logcommon.Logger) *LoggerErrorLog {
	if logger == nil {
		logger = logcommon.NewNoOpLogger()
	}
	return &LoggerErrorLog{logger: logger}
}

func (l *LoggerErrorLog) LogError(filterLevel sata.ErrSeverity, msg string) {
	l.logger.Log(severityOf(filterLevel), msg)
}

func (l *LoggerErrorLog) LogMessage(filterLevel sata.ErrSeverity, msg string) {
	l.logger.Log(severityOf(filterLevel), msg)
}

// SeverityFor maps a public log severity to the component verbosity scale.
func SeverityFor(s logcommon.Severity) sata.ErrSeverity {
	switch s {
	case logcommon.SeverityDebug:
		return sata.ErrSevDebug
	case logcommon.SeverityInfo:
		return sata.ErrSevInfo
	case logcommon.SeverityWarning:
		return sata.ErrSevWarn
	default:
		return sata.ErrSevError
	}
}

func severityOf(sev sata.ErrSeverity) logcommon.Severity {
	switch sev {
	case sata.ErrSevError:
		return logcommon.SeverityError
	case sata.ErrSevWarn:
		return logcommon.SeverityWarning
	case sata.ErrSevInfo:
		return logcommon.SeverityInfo
	default:
		return logcommon.SeverityDebug
	}
}
