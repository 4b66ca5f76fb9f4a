package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NamespaceKey 命名空间字段名
const NamespaceKey = "namespace"

type loggerImpl struct {
	handler   slog.Handler
	level     *slog.LevelVar
	out       io.Writer
	options   *options
	namespace []string
	attrs     []slog.Attr
}

func newLogger(config *Config, opts *options) (Logger, error) {
	out := opts.writer
	if out == nil {
		w, err := openOutput(config.Output)
		if err != nil {
			return nil, err
		}
		out = w
	}

	lvl, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(lvl.slogLevel())

	hopts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	return &loggerImpl{
		handler:   handler,
		level:     levelVar,
		out:       out,
		options:   opts,
		namespace: append([]string(nil), opts.namespaceParts...),
	}, nil
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	child := *l
	child.attrs = append(append([]slog.Attr(nil), l.attrs...), fields...)
	return &child
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	child := *l
	child.namespace = append(append([]string(nil), l.namespace...), parts...)
	return &child
}

func (l *loggerImpl) SetLevel(level Level) error {
	l.level.Set(level.slogLevel())
	return nil
}

func (l *loggerImpl) Flush() {
	if s, ok := l.out.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	slogLevel := level.slogLevel()
	if !l.handler.Enabled(ctx, slogLevel) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)+3)
	if len(l.namespace) > 0 {
		attrs = append(attrs, slog.String(NamespaceKey, strings.Join(l.namespace, ".")))
	}
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)

	if l.options.traceContext && ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()))
		}
	}

	// skip: runtime.Callers, log, Info/Debug...
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), slogLevel, msg, pcs[0])
	record.AddAttrs(attrs...)

	if err := l.handler.Handle(ctx, record); err != nil {
		return
	}

	if level == FatalLevel {
		os.Exit(1)
	}
}
