package log

import (
	"time"

	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger as a types.Logger.
type Adapter struct {
	zl zerolog.Logger
}

func Wrap(zl zerolog.Logger) *Adapter {
	return &Adapter{zl: zl}
}

func (a *Adapter) Debug() types.Event { return a.at(zerolog.DebugLevel) }
func (a *Adapter) Info() types.Event  { return a.at(zerolog.InfoLevel) }
func (a *Adapter) Warn() types.Event  { return a.at(zerolog.WarnLevel) }
func (a *Adapter) Error() types.Event { return a.at(zerolog.ErrorLevel) }

// Fatal records at fatal level but never exits. Jobs run inside the server
// process, so stopping is left to the caller.
func (a *Adapter) Fatal() types.Event { return a.at(zerolog.FatalLevel) }

func (a *Adapter) With() types.Context {
	return &fieldContext{zc: a.zl.With()}
}

// at returns an event for level; a disabled level yields a nil zerolog event,
// which is safe to chain on.
func (a *Adapter) at(level zerolog.Level) types.Event {
	return &event{e: a.zl.WithLevel(level)}
}

type event struct {
	e *zerolog.Event
}

func (ev *event) Msg(msg string)               { ev.e.Msg(msg) }
func (ev *event) Msgf(format string, v ...any) { ev.e.Msgf(format, v...) }

func (ev *event) Err(err error) types.Event {
	ev.e = ev.e.Err(err)
	return ev
}

func (ev *event) Interface(key string, value any) types.Event {
	ev.e = ev.e.Interface(key, value)
	return ev
}

func (ev *event) Str(key, value string) types.Event {
	ev.e = ev.e.Str(key, value)
	return ev
}

func (ev *event) Int(key string, value int) types.Event {
	ev.e = ev.e.Int(key, value)
	return ev
}

func (ev *event) Bool(key string, value bool) types.Event {
	ev.e = ev.e.Bool(key, value)
	return ev
}

func (ev *event) Dur(key string, d time.Duration) types.Event {
	ev.e = ev.e.Dur(key, d)
	return ev
}

// fieldContext builds child loggers carrying job and action fields.
type fieldContext struct {
	zc zerolog.Context
}

func (c *fieldContext) Str(key, value string) types.Context {
	return &fieldContext{zc: c.zc.Str(key, value)}
}

func (c *fieldContext) Int(key string, value int) types.Context {
	return &fieldContext{zc: c.zc.Int(key, value)}
}

func (c *fieldContext) Bool(key string, value bool) types.Context {
	return &fieldContext{zc: c.zc.Bool(key, value)}
}

func (c *fieldContext) Interface(key string, value any) types.Context {
	return &fieldContext{zc: c.zc.Interface(key, value)}
}

func (c *fieldContext) Timestamp() types.Context {
	return &fieldContext{zc: c.zc.Timestamp()}
}

func (c *fieldContext) Logger() types.Logger {
	return Wrap(c.zc.Logger())
}
