package dispatch

import (
	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/connector"
	"github.com/ceyewan/keystone/metrics"
)

// Option Factory 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	nats   connector.NATSConnector
}

// WithLogger 注入日志记录器，自动追加 "dispatch" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("dispatch")
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

// WithNATS 注入远程派发使用的连接器。连接器由调用方创建和关闭
func WithNATS(conn connector.NATSConnector) Option {
	return func(o *options) {
		o.nats = conn
	}
}
