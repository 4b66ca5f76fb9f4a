package clog

import "io"

// Option 函数式选项
type Option func(*options)

type options struct {
	namespaceParts []string
	traceContext   bool
	writer         io.Writer // 测试时替换输出
}

// WithNamespace 设置初始命名空间
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithTraceContext 从 Context 中提取 OpenTelemetry trace_id 和 span_id
func WithTraceContext() Option {
	return func(o *options) {
		o.traceContext = true
	}
}

// WithWriter 将日志写到指定 io.Writer，优先于 Config.Output
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
