package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/trace"
	"github.com/ceyewan/keystone/xerrors"
)

// RemoteDispatcher 通过 NATS request/reply 向远程服务派发
type RemoteDispatcher struct {
	factory *Factory
	subject string
	breaker *gobreaker.CircuitBreaker[*component.Message]
	labels  []metrics.Label
	closed  atomic.Bool
}

// Subject 请求主题
func (d *RemoteDispatcher) Subject() string {
	return d.subject
}

func (d *RemoteDispatcher) Dispatch(ctx context.Context, msg *component.Message) (*component.Message, error) {
	reply, err := d.dispatch(ctx, msg)
	d.factory.record(ctx, modeRemote, err, d.labels...)
	return reply, err
}

func (d *RemoteDispatcher) dispatch(ctx context.Context, msg *component.Message) (*component.Message, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if msg == nil {
		return nil, ErrNilMessage
	}

	reply, err := d.breaker.Execute(func() (*component.Message, error) {
		return d.request(ctx, msg)
	})
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		d.factory.opts.logger.WarnContext(ctx, "request rejected by circuit breaker",
			clog.String("subject", d.subject))
		return nil, xerrors.Wrapf(ErrOpenState, "%s", d.subject)
	}
	return reply, err
}

func (d *RemoteDispatcher) request(ctx context.Context, msg *component.Message) (*component.Message, error) {
	conn := d.factory.opts.nats.GetClient()
	if conn == nil {
		return nil, xerrors.Wrapf(ErrTransportUnavailable, "%s: nats not connected", d.subject)
	}

	headers := make(map[string]string)
	trace.Inject(ctx, headers)
	data, err := encode(&envelope{Message: withHeaders(msg, headers)})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.factory.cfg.RequestTimeout)
	defer cancel()

	resp, err := conn.RequestMsgWithContext(ctx, &nats.Msg{Subject: d.subject, Data: data})
	if err != nil {
		if xerrors.Is(err, nats.ErrNoResponders) {
			return nil, xerrors.Wrapf(ErrTransportUnavailable, "%s: no responders", d.subject)
		}
		return nil, xerrors.Wrapf(err, "request %s", d.subject)
	}

	env, err := decode(resp.Data)
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, xerrors.Wrapf(ErrRemote, "%s: %s", d.subject, env.Error)
	}
	return env.Message, nil
}

// Close 只标记关闭；NATS 连接归连接器所有，熔断器可能被其它 Dispatcher 共用
func (d *RemoteDispatcher) Close() error {
	d.closed.Store(true)
	return nil
}
