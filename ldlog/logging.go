// Package ldlog provides the leveled logging facade used throughout the SDK: a thin
// wrapper that can be pointed at any log.Logger-like sink (including the standard
// library's log package, or nothing at all).
package ldlog

// BaseLogger is the minimal interface a backing logger must implement. *log.Logger
// satisfies this already.
type BaseLogger interface {
	Println(values ...interface{})
	Printf(format string, values ...interface{})
}

// LogLevel identifies a severity level.
type LogLevel int

// The defined log levels, in increasing order of severity.
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	None
)

func (l LogLevel) name() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return ""
	}
}

// Loggers holds the per-level loggers used by the SDK. The zero value is usable: every
// method is a safe no-op until a base logger is configured, and the minimum level
// defaults to Info.
type Loggers struct {
	loggers    [4]BaseLogger
	minLevel   LogLevel
	configured bool
}

// NewDisabledLoggers returns a Loggers value that discards everything, regardless of
// level. Useful in tests that don't want log output cluttering failures.
func NewDisabledLoggers() Loggers {
	return Loggers{minLevel: None, configured: true}
}

func (l *Loggers) initSafe() {
	if !l.configured {
		l.minLevel = Info
		l.configured = true
	}
}

// SetBaseLogger sets the logger used for any level that has not been given its own
// logger via SetBaseLoggerForLevel.
func (l *Loggers) SetBaseLogger(logger BaseLogger) {
	l.initSafe()
	for level := Debug; level <= Error; level++ {
		if l.loggers[level] == nil {
			l.loggers[level] = logger
		}
	}
}

// SetBaseLoggerForLevel sets the logger used only for the given level.
func (l *Loggers) SetBaseLoggerForLevel(level LogLevel, logger BaseLogger) {
	l.initSafe()
	l.loggers[level] = logger
}

// SetMinLevel sets the minimum level that will actually be logged.
func (l *Loggers) SetMinLevel(level LogLevel) {
	l.initSafe()
	l.minLevel = level
}

func (l *Loggers) log(level LogLevel, values ...interface{}) {
	l.initSafe()
	if level < l.minLevel {
		return
	}
	logger := l.loggers[level]
	if logger == nil {
		return
	}
	logger.Println(append([]interface{}{level.name() + ":"}, values...)...)
}

func (l *Loggers) logf(level LogLevel, format string, values ...interface{}) {
	l.initSafe()
	if level < l.minLevel {
		return
	}
	logger := l.loggers[level]
	if logger == nil {
		return
	}
	logger.Printf(level.name()+": "+format, values...)
}

// Debug logs at Debug level.
func (l *Loggers) Debug(values ...interface{}) { l.log(Debug, values...) }

// Debugf logs at Debug level with a format string.
func (l *Loggers) Debugf(format string, values ...interface{}) { l.logf(Debug, format, values...) }

// Info logs at Info level.
func (l *Loggers) Info(values ...interface{}) { l.log(Info, values...) }

// Infof logs at Info level with a format string.
func (l *Loggers) Infof(format string, values ...interface{}) { l.logf(Info, format, values...) }

// Warn logs at Warn level.
func (l *Loggers) Warn(values ...interface{}) { l.log(Warn, values...) }

// Warnf logs at Warn level with a format string.
func (l *Loggers) Warnf(format string, values ...interface{}) { l.logf(Warn, format, values...) }

// Error logs at Error level.
func (l *Loggers) Error(values ...interface{}) { l.log(Error, values...) }

// Errorf logs at Error level with a format string.
func (l *Loggers) Errorf(format string, values ...interface{}) { l.logf(Error, format, values...) }
