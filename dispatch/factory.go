// Package dispatch 为服务描述符构建消息派发通道。
//
// 本地服务直接调用进程内注册的 Handler；远程服务通过 NATS request/reply
// 发送 msgpack 编码的消息，每个远程服务有独立的熔断器。
package dispatch

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

const (
	modeLocal  = "local"
	modeRemote = "remote"

	resultRejected = "rejected"
)

// Factory 实现 component.DispatcherFactory，并发安全
type Factory struct {
	cfg  Config
	opts *options

	mu       sync.RWMutex
	handlers map[string]Handler

	breakers sync.Map // subject -> *gobreaker.CircuitBreaker[*component.Message]
	requests metrics.Counter
}

var _ component.DispatcherFactory = (*Factory)(nil)

// NewFactory 创建派发工厂，cfg 为 nil 时使用默认配置
func NewFactory(cfg *Config, opts ...Option) (*Factory, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	requests, err := o.meter.Counter("dispatch_requests_total", "Number of dispatched messages by mode and result")
	if err != nil {
		return nil, xerrors.Wrap(err, "create request counter")
	}

	return &Factory{
		cfg:      c,
		opts:     o,
		handlers: make(map[string]Handler),
		requests: requests,
	}, nil
}

// Handle 为组件类型注册本地处理器，重复注册会覆盖
func (f *Factory) Handle(name string, h Handler) {
	f.mu.Lock()
	f.handlers[name] = h
	f.mu.Unlock()
}

func (f *Factory) handler(name string) (Handler, bool) {
	f.mu.RLock()
	h, ok := f.handlers[name]
	f.mu.RUnlock()
	return h, ok
}

// Build 按服务位置选择派发方式。远程服务要求注入了 NATS 连接器
func (f *Factory) Build(_ component.Component, s *component.Service) (component.Dispatcher, error) {
	if s == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "dispatch: nil service")
	}

	typ := s.Identity().Name()
	if s.IsLocal() {
		return &LocalDispatcher{factory: f, component: typ, service: s.Name()}, nil
	}

	if f.opts.nats == nil {
		return nil, xerrors.Wrapf(ErrTransportUnavailable, "remote service %s", s.Name())
	}

	subject := Subject(f.cfg.SubjectPrefix, s)
	return &RemoteDispatcher{
		factory: f,
		subject: subject,
		breaker: f.breaker(subject),
		labels:  []metrics.Label{metrics.L(metrics.LabelComponent, typ), metrics.L(metrics.LabelPartition, s.Partition())},
	}, nil
}

// breaker 同一主题的 Dispatcher 共用一个熔断器
func (f *Factory) breaker(subject string) *gobreaker.CircuitBreaker[*component.Message] {
	if v, ok := f.breakers.Load(subject); ok {
		return v.(*gobreaker.CircuitBreaker[*component.Message])
	}

	bc := f.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[*component.Message](gobreaker.Settings{
		Name:        subject,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		// 对端处理器的业务错误说明链路是通的，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || xerrors.Is(err, ErrRemote)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.opts.logger.Info("circuit breaker state changed",
				clog.String("subject", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	})

	actual, _ := f.breakers.LoadOrStore(subject, cb)
	return actual.(*gobreaker.CircuitBreaker[*component.Message])
}

func (f *Factory) record(ctx context.Context, mode string, err error, labels ...metrics.Label) {
	result := metrics.OutcomeSuccess
	switch {
	case xerrors.Is(err, ErrOpenState):
		result = resultRejected
	case err != nil:
		result = metrics.OutcomeError
	}
	f.requests.Inc(ctx, append([]metrics.Label{
		metrics.L(metrics.LabelMode, mode),
		metrics.L(metrics.LabelResult, result),
	}, labels...)...)
}
