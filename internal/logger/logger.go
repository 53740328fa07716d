// Package logger implements a small leveled logger for rtspd.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Level is a log severity.
type Level int

// log levels, from least to most severe.
const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEB"
	case Info:
		return "INF"
	case Warn:
		return "WAR"
	case Error:
		return "ERR"
	default:
		return "???"
	}
}

func (l Level) tag() string {
	switch l {
	case Debug:
		return color.Gray.Render(l.String())
	case Info:
		return color.Green.Render(l.String())
	case Warn:
		return color.Yellow.Render(l.String())
	case Error:
		return color.Red.Render(l.String())
	default:
		return l.String()
	}
}

// Logger is a leveled logger that writes to a single io.Writer. It is a
// single concrete type rather than an interface: every component in this
// repository is handed the same *Logger (or a Prefixed view of it).
type Logger struct {
	level    Level
	out      io.Writer
	useColor bool
	mutex    sync.Mutex
}

// New allocates a Logger that writes to stdout.
func New(level Level) *Logger {
	return &Logger{
		level:    level,
		out:      os.Stdout,
		useColor: true,
	}
}

// Log writes a log entry if level is at or above the logger's threshold.
func (lo *Logger) Log(level Level, format string, args ...interface{}) {
	if lo == nil || level < lo.level {
		return
	}

	lo.mutex.Lock()
	defer lo.mutex.Unlock()

	now := time.Now().Format("2006/01/02 15:04:05")
	tag := level.String()
	if lo.useColor {
		tag = level.tag()
	}

	fmt.Fprintf(lo.out, "%s %s %s\n", now, tag, fmt.Sprintf(format, args...))
}

// Debugf logs at Debug level.
func (lo *Logger) Debugf(format string, args ...interface{}) { lo.Log(Debug, format, args...) }

// Infof logs at Info level.
func (lo *Logger) Infof(format string, args ...interface{}) { lo.Log(Info, format, args...) }

// Warnf logs at Warn level.
func (lo *Logger) Warnf(format string, args ...interface{}) { lo.Log(Warn, format, args...) }

// Errorf logs at Error level.
func (lo *Logger) Errorf(format string, args ...interface{}) { lo.Log(Error, format, args...) }

// Prefixed returns a logger that prepends prefix to every message,
// sharing the same destination and level threshold as lo.
func (lo *Logger) Prefixed(prefix string) *Prefixed {
	return &Prefixed{inner: lo, prefix: prefix}
}

// Prefixed is a view over a Logger that tags every line with a component name.
type Prefixed struct {
	inner  *Logger
	prefix string
}

// Debugf logs at Debug level.
func (p *Prefixed) Debugf(format string, args ...interface{}) {
	p.inner.Log(Debug, "["+p.prefix+"] "+format, args...)
}

// Infof logs at Info level.
func (p *Prefixed) Infof(format string, args ...interface{}) {
	p.inner.Log(Info, "["+p.prefix+"] "+format, args...)
}

// Warnf logs at Warn level.
func (p *Prefixed) Warnf(format string, args ...interface{}) {
	p.inner.Log(Warn, "["+p.prefix+"] "+format, args...)
}

// Errorf logs at Error level.
func (p *Prefixed) Errorf(format string, args ...interface{}) {
	p.inner.Log(Error, "["+p.prefix+"] "+format, args...)
}
