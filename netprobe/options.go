package netprobe

import (
	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/metrics"
)

// Option 探测器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	addrs    AddrSource
	resolver Resolver
	hostname string
}

// WithLogger 注入日志记录器，自动追加 "netprobe" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("netprobe")
		}
	}
}

// WithMeter 注入指标
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithAddrSource 替换本机地址来源
func WithAddrSource(s AddrSource) Option {
	return func(o *options) {
		if s != nil {
			o.addrs = s
		}
	}
}

// WithResolver 替换主机名解析器
func WithResolver(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithHostname 覆盖本机主机名，空字符串表示不做主机名短路
func WithHostname(name string) Option {
	return func(o *options) {
		o.hostname = name
	}
}
