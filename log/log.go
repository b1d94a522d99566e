// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

// Package log is a thin structured-logging layer over log/slog, with
// verbosity levels and handlers suited for a long-running node process.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

const timeFormat = "2006-01-02T15:04:05-0700"

const (
	LevelCrit  = slog.Level(12)
	LevelError = slog.LevelError
	LevelWarn  = slog.LevelWarn
	LevelInfo  = slog.LevelInfo
	LevelDebug = slog.LevelDebug
	LevelTrace = slog.Level(-8)

	levelMaxVerbosity = LevelTrace
)

// FromLegacyLevel maps the 0..5 verbosity scale of the CLI flag onto
// slog levels.
func FromLegacyLevel(lvl int) slog.Level {
	switch lvl {
	case 0:
		return LevelCrit
	case 1:
		return LevelError
	case 2:
		return LevelWarn
	case 3:
		return LevelInfo
	case 4:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// LevelString returns a 4-character string containing the name of a Lvl.
func LevelString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCrit:
		return "crit"
	default:
		return fmt.Sprintf("level(%d)", l)
	}
}

// Logger writes key/value pairs to a Handler.
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes.
	With(ctx ...interface{}) Logger

	// Log logs a message at the specified level with context key/value pairs.
	Log(level slog.Level, msg string, ctx ...interface{})

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})

	// Crit logs a critical message and exits the process.
	Crit(msg string, ctx ...interface{})

	// Handler returns the underlying handler of the inner logger.
	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a logger with the specified handler set.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

func (l *logger) With(ctx ...interface{}) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) Handler() slog.Handler {
	return l.inner.Handler()
}

func (l *logger) Log(level slog.Level, msg string, ctx ...interface{}) {
	l.write(level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LevelError, msg, ctx...) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (l *logger) write(level slog.Level, msg string, attrs ...interface{}) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	if len(attrs)%2 != 0 {
		attrs = append(attrs, "LOG_ERROR", "Normalized odd number of arguments by adding nil")
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.Add(attrs...)
	l.inner.Handler().Handle(context.Background(), r)
}

// swapHandler lets the root handler be replaced after loggers were
// derived from it: package-level loggers created at init still follow
// whatever handler the process configures later.
type swapHandler struct {
	handler atomic.Value
}

func (h *swapHandler) current() slog.Handler {
	if v := h.handler.Load(); v != nil {
		return v.(slog.Handler)
	}
	return DiscardHandler()
}

func (h *swapHandler) Swap(newHandler slog.Handler) {
	h.handler.Store(newHandler)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *swapHandler) WithGroup(_ string) slog.Handler {
	panic("not implemented")
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attrsHandler{attrs: attrs, base: h}
}

// attrsHandler binds attributes to a swapHandler without freezing the
// underlying handler.
type attrsHandler struct {
	attrs []slog.Attr
	base  *swapHandler
}

func (h *attrsHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.base.current().WithAttrs(h.attrs).Handle(ctx, r)
}

func (h *attrsHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *attrsHandler) WithGroup(_ string) slog.Handler {
	panic("not implemented")
}

func (h *attrsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attrsHandler{attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...), base: h.base}
}

var (
	rootHandler = &swapHandler{}
	root        = &logger{slog.New(rootHandler)}
)

// SetRootHandler sets the handler of the root logger and of every logger
// derived from it, including those created before the call.
func SetRootHandler(h slog.Handler) {
	rootHandler.Swap(h)
	slog.SetDefault(root.inner)
}

// Root returns the root logger.
func Root() Logger {
	return root
}

// WithContext prefixes all messages with the given attributes; the
// common way packages obtain their logger.
func WithContext(ctx ...interface{}) Logger {
	return Root().With(ctx...)
}

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths to logger.write so
// runtime.Caller(2) always refers to the call site in client code.

// Trace is a convenient alias for Root().Trace.
func Trace(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelTrace, msg, ctx...)
}

// Debug is a convenient alias for Root().Debug.
func Debug(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelDebug, msg, ctx...)
}

// Info is a convenient alias for Root().Info.
func Info(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelInfo, msg, ctx...)
}

// Warn is a convenient alias for Root().Warn.
func Warn(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelWarn, msg, ctx...)
}

// Error is a convenient alias for Root().Error.
func Error(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelError, msg, ctx...)
}

// Crit is a convenient alias for Root().Crit.
func Crit(msg string, ctx ...interface{}) {
	Root().(*logger).write(LevelCrit, msg, ctx...)
	os.Exit(1)
}
