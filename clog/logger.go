package clog

import "context"

// Logger 结构化日志接口
//
// 创建子 Logger：
//
//	child := logger.With(clog.String("component", "cluster"))
//	ns := logger.WithNamespace("netprobe")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 返回带预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 追加命名空间，多级之间用 "." 连接
	WithNamespace(parts ...string) Logger

	// SetLevel 运行时调整级别，对所有派生 Logger 生效
	SetLevel(level Level) error

	// Flush 同步输出（文件输出时调用 Sync）
	Flush()
}
