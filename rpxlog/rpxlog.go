// Package rpxlog adapts github.com/joeycumines/logiface, backed by
// github.com/rs/zerolog, to the reactor.Logger interface reactor/tcp/httpx
// depend on. The narrow Logger interface those packages define keeps the
// hot dispatch path free of any concrete logging library's allocation
// patterns; rpxlog is the concrete backend plugged in at the edges, in
// cmd/rpx.
package rpxlog

import (
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"

	"github.com/frezcirno/rpx/reactor"
)

type (
	event struct {
		logiface.UnimplementedEvent
		z   *zerolog.Event
		msg string
	}

	backend struct {
		z zerolog.Logger
	}
)

var eventPool = sync.Pool{New: func() any { return new(event) }}

func (e *event) Level() logiface.Level { return logiface.LevelInformational }

func (e *event) AddField(key string, val any) { e.z.Interface(key, val) }
func (e *event) AddMessage(msg string) bool   { e.msg = msg; return true }
func (e *event) AddError(err error) bool      { e.z.Err(err); return true }
func (e *event) AddString(key, val string) bool {
	e.z.Str(key, val)
	return true
}
func (e *event) AddBool(key string, val bool) bool { e.z.Bool(key, val); return true }
func (e *event) AddInt(key string, val int) bool   { e.z.Int(key, val); return true }
func (e *event) AddTime(key string, val time.Time) bool {
	e.z.Time(key, val)
	return true
}
func (e *event) AddDuration(key string, val time.Duration) bool {
	e.z.Dur(key, val)
	return true
}

func (b *backend) NewEvent(level logiface.Level) *event {
	z := b.zerologEvent(level)
	if z == nil {
		return nil
	}
	ev := eventPool.Get().(*event)
	ev.z = z
	return ev
}

func (b *backend) ReleaseEvent(ev *event) {
	if ev != nil {
		*ev = event{}
		eventPool.Put(ev)
	}
}

func (b *backend) Write(ev *event) error {
	ev.z.Msg(ev.msg)
	return nil
}

func (b *backend) zerologEvent(level logiface.Level) *zerolog.Event {
	switch level {
	case logiface.LevelDebug, logiface.LevelTrace:
		return b.z.Debug()
	case logiface.LevelInformational, logiface.LevelNotice:
		return b.z.Info()
	case logiface.LevelWarning:
		return b.z.Warn()
	case logiface.LevelError, logiface.LevelCritical:
		return b.z.Error()
	case logiface.LevelAlert, logiface.LevelEmergency:
		return b.z.Error()
	default:
		return nil
	}
}

// Logger implements reactor.Logger over a logiface facade backed by
// zerolog.
type Logger struct {
	base *logiface.Logger[*event]
}

// New builds a reactor.Logger writing through zl via logiface. zl's own
// configured level becomes the logiface threshold too, so a Debug-level
// zerolog.Logger actually lets Debug-level reactor.LogEntry values through
// instead of being gated out by logiface's own (otherwise fixed at
// Informational) build-level check.
func New(zl zerolog.Logger) *Logger {
	b := &backend{z: zl}
	base := logiface.New[*event](
		logiface.WithEventFactory[*event](b),
		logiface.WithEventReleaser[*event](b),
		logiface.WithWriter[*event](b),
		logiface.WithLevel[*event](mapZerologLevel(zl.GetLevel())),
	)
	return &Logger{base: base}
}

func mapZerologLevel(level zerolog.Level) logiface.Level {
	switch level {
	case zerolog.TraceLevel:
		return logiface.LevelTrace
	case zerolog.DebugLevel:
		return logiface.LevelDebug
	case zerolog.InfoLevel:
		return logiface.LevelInformational
	case zerolog.WarnLevel:
		return logiface.LevelWarning
	case zerolog.ErrorLevel:
		return logiface.LevelError
	case zerolog.FatalLevel:
		return logiface.LevelAlert
	case zerolog.PanicLevel:
		return logiface.LevelEmergency
	case zerolog.Disabled:
		return logiface.LevelDisabled
	default:
		return logiface.LevelInformational
	}
}

func mapLevel(level reactor.LogLevel) logiface.Level {
	switch level {
	case reactor.LevelDebug:
		return logiface.LevelDebug
	case reactor.LevelInfo:
		return logiface.LevelInformational
	case reactor.LevelWarn:
		return logiface.LevelWarning
	case reactor.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// IsEnabled reports whether level would actually produce output, letting
// hot-path callers skip building a LogEntry's Fields map entirely.
func (l *Logger) IsEnabled(level reactor.LogLevel) bool {
	return mapLevel(level) <= l.base.Level()
}

// Log emits one structured log entry. Building on a disabled level is cheap
// and safe: Builder.Log no-ops without writing anything.
func (l *Logger) Log(entry reactor.LogEntry) {
	b := l.base.Build(mapLevel(entry.Level))
	for k, v := range entry.Fields {
		b.Field(k, v)
	}
	if entry.Err != nil {
		b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
