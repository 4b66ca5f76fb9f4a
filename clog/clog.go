// Package clog 为 keystone 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - Logger 接口不暴露底层 slog 实现
//   - 层级命名空间，组件通过 WithNamespace 追加自己的名字
//   - 运行时调整级别（SetLevel）
//   - 可选提取 OpenTelemetry trace_id/span_id
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("service resolved", clog.String("name", "cluster@h1"))
package clog

import "fmt"

// New 创建 Logger，config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("keystone")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newLogger(config, applyOptions(opts...))
}

// Must 与 New 相同，出错时 panic。
func Must(config *Config, opts ...Option) Logger {
	l, err := New(config, opts...)
	if err != nil {
		panic(err)
	}
	return l
}
