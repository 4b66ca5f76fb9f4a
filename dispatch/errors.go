package dispatch

import "github.com/ceyewan/keystone/xerrors"

var (
	// ErrNoHandler 本地服务所属组件没有注册处理器
	ErrNoHandler = xerrors.Wrap(xerrors.ErrNotFound, "dispatch: no handler")

	// ErrTransportUnavailable 远程服务缺少可用的 NATS 连接
	ErrTransportUnavailable = xerrors.Wrap(xerrors.ErrUnavailable, "dispatch: transport unavailable")

	// ErrOpenState 熔断器打开，请求被拒绝
	ErrOpenState = xerrors.Wrap(xerrors.ErrUnavailable, "dispatch: circuit breaker is open")

	// ErrClosed Dispatcher 已关闭
	ErrClosed = xerrors.Wrap(xerrors.ErrClosed, "dispatch")

	// ErrRemote 对端处理器返回了错误
	ErrRemote = xerrors.New("dispatch: remote handler failed")

	// ErrNilMessage 消息为空
	ErrNilMessage = xerrors.Wrap(xerrors.ErrInvalidInput, "dispatch: nil message")
)
