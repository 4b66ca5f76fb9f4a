// Package metrics 为 keystone 提供统一的指标收集能力。
// 基于 OpenTelemetry 构建，通过 Prometheus Exporter 暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "keystone",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	probes, _ := meter.Counter("netprobe_probes_total", "Locality probes")
//	probes.Inc(ctx, metrics.L("result", "local"))
package metrics

import "context"

// Counter 只增不减的累计值
type Counter interface {
	Inc(ctx context.Context, labels ...Label)
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 值分布，例如耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建入口，创建出的指标并发安全
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 创建指标时的额外配置
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 单位，建议使用 UCUM 代码，如 "s"、"By"
	Unit string
}

// WithUnit 设置指标单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}
