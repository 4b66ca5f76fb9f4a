package component

import (
	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/metrics"
)

// Option NewService / NewFactory 选项
type Option func(*options)

type options struct {
	registry    Registry
	prober      Prober
	dispatchers DispatcherFactory
	credentials CredentialProvider
	logger      clog.Logger
	meter       metrics.Meter
}

// WithRegistry 注入组件表（必需）
func WithRegistry(r Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithProber 注入可达性探测器；未注入时探测视为失败，按本地处理
func WithProber(p Prober) Option {
	return func(o *options) {
		o.prober = p
	}
}

// WithDispatcherFactory 注入 Dispatcher 工厂（必需）
func WithDispatcherFactory(f DispatcherFactory) Option {
	return func(o *options) {
		o.dispatchers = f
	}
}

// WithCredentialProvider 注入凭证提供者，Keys/Certificate 透传给它
func WithCredentialProvider(p CredentialProvider) Option {
	return func(o *options) {
		o.credentials = p
	}
}

// WithLogger 注入日志记录器，自动追加 "component" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("component")
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
