package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts = append(opts, WithWriter(buf))
	logger, err := New(&Config{Level: level, Format: "json"}, opts...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	cfg := &Config{}
	_, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestLogger_Fields(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug")

	logger.Info("resolved",
		String("name", "cluster@h1"),
		Bool("local", false),
		Int("port", 8773),
		Error(errors.New("probe timeout")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "resolved", lines[0]["msg"])
	assert.Equal(t, "cluster@h1", lines[0]["name"])
	assert.Equal(t, false, lines[0]["local"])
	assert.Equal(t, float64(8773), lines[0]["port"])
	assert.Equal(t, "probe timeout", lines[0]["err_msg"])
}

func TestLogger_Namespace(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithNamespace("keystone"))

	logger.WithNamespace("component", "locality").Info("hello")
	logger.Info("root")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "keystone.component.locality", lines[0][NamespaceKey])
	assert.Equal(t, "keystone", lines[1][NamespaceKey])
}

func TestLogger_WithDoesNotLeak(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	child := logger.With(String("service", "storage@localhost"))
	child.Info("child")
	logger.Info("parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "storage@localhost", lines[0]["service"])
	assert.NotContains(t, lines[1], "service")
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_TraceContext(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithTraceContext())

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "traced")
	span.End()

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.err, err != nil)
		})
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NoError(t, l.SetLevel(DebugLevel))
}
