package dispatch

import (
	"context"

	"github.com/ceyewan/keystone/component"
)

// Handler 处理派发给某个组件的消息
type Handler interface {
	Handle(ctx context.Context, msg *component.Message) (*component.Message, error)
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, msg *component.Message) (*component.Message, error)

func (f HandlerFunc) Handle(ctx context.Context, msg *component.Message) (*component.Message, error) {
	return f(ctx, msg)
}
