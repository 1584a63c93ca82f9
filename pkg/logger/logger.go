package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	// Env tags every entry with the deployment environment when set.
	Env       string
	Level     zerolog.Level
	WarnStack bool
	// Console switches to zerolog's human readable writer for local runs.
	Console bool
	Output  io.Writer
}

// Logger writes zerolog entries, picking up fields attached to the context by earlier middleware.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(writerFor(opts)).With().Timestamp().Str("service", opts.ServiceName)
	if opts.Env != "" {
		builder = builder.Str("env", opts.Env)
	}
	return &Logger{
		base:      builder.Logger().Level(opts.Level),
		warnStack: opts.WarnStack,
	}
}

func writerFor(opts Options) io.Writer {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if opts.Console {
		return zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}
	return output
}

// Nop returns a logger that discards everything; handy for tests.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component derives a logger whose entries carry "component": name, for long-lived subsystems
// such as the analysis client or housekeeping loops.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		base:      l.base.With().Str("component", name).Logger(),
		warnStack: l.warnStack,
	}
}

// entry returns the context logger when one was attached, otherwise the base logger.
func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if attached := zerolog.Ctx(ctx); attached.GetLevel() != zerolog.Disabled {
			return attached
		}
	}
	return &l.base
}

func (l *Logger) with(ctx context.Context, apply func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := apply(l.entry(ctx).With()).Logger()
	return child.WithContext(ctx)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithSessionID(ctx context.Context, sessionID string) context.Context {
	return l.WithField(ctx, "session_id", sessionID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.entry(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.entry(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.entry(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

// Error always records a stack trace alongside err.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.entry(ctx).Error().Err(err).Str("stack", stackTrace()).Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
