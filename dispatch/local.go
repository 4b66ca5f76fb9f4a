package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

// LocalDispatcher 在进程内调用组件的处理器。
// 处理器在每次派发时查找，服务构造后再注册也能生效。
type LocalDispatcher struct {
	factory   *Factory
	component string
	service   string
	closed    atomic.Bool
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, msg *component.Message) (*component.Message, error) {
	reply, err := d.dispatch(ctx, msg)
	d.factory.record(ctx, modeLocal, err, metrics.L(metrics.LabelComponent, d.component))
	return reply, err
}

func (d *LocalDispatcher) dispatch(ctx context.Context, msg *component.Message) (*component.Message, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if msg == nil {
		return nil, ErrNilMessage
	}
	h, ok := d.factory.handler(d.component)
	if !ok {
		return nil, xerrors.Wrapf(ErrNoHandler, "%s", d.service)
	}
	return h.Handle(ctx, msg)
}

func (d *LocalDispatcher) Close() error {
	d.closed.Store(true)
	return nil
}
