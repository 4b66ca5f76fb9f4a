package dispatch

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/connector"
	"github.com/ceyewan/keystone/trace"
	"github.com/ceyewan/keystone/xerrors"
)

// Server 远程服务端的订阅，ctx 结束或调用 Close 时退订
type Server struct {
	sub     *nats.Subscription
	logger  clog.Logger
	once    sync.Once
	stopped chan struct{}
}

// Serve 以默认主题前缀为 svc 订阅请求，同一实例的多个订阅者组成队列组分摊请求。
func Serve(ctx context.Context, conn connector.NATSConnector, svc *component.Service, h Handler) (*Server, error) {
	return serve(ctx, conn, Subject(DefaultSubjectPrefix, svc), h, clog.Discard())
}

// Serve 使用工厂配置的主题前缀和 NATS 连接器订阅 svc 的请求
func (f *Factory) Serve(ctx context.Context, svc *component.Service, h Handler) (*Server, error) {
	if f.opts.nats == nil {
		return nil, ErrTransportUnavailable
	}
	return serve(ctx, f.opts.nats, Subject(f.cfg.SubjectPrefix, svc), h, f.opts.logger)
}

func serve(ctx context.Context, conn connector.NATSConnector, subject string, h Handler, logger clog.Logger) (*Server, error) {
	if conn == nil || h == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "dispatch: connector and handler are required")
	}
	nc := conn.GetClient()
	if nc == nil {
		return nil, xerrors.Wrapf(ErrTransportUnavailable, "%s: nats not connected", subject)
	}

	logger = logger.With(clog.String("subject", subject))
	sub, err := nc.QueueSubscribe(subject, subject, func(m *nats.Msg) {
		respond(ctx, m, h, logger)
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "subscribe %s", subject)
	}
	// 确保订阅已到达服务器，返回后请求即可路由过来
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, xerrors.Wrapf(err, "flush subscription %s", subject)
	}

	s := &Server{sub: sub, logger: logger, stopped: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.stopped:
		}
	}()

	logger.Info("serving remote dispatch")
	return s, nil
}

func respond(ctx context.Context, m *nats.Msg, h Handler, logger clog.Logger) {
	var out envelope

	env, err := decode(m.Data)
	switch {
	case err != nil:
		out.Error = err.Error()
	case env.Message == nil:
		out.Error = ErrNilMessage.Error()
	default:
		reqCtx := trace.Extract(ctx, env.Message.Headers)
		reply, herr := h.Handle(reqCtx, env.Message)
		if herr != nil {
			out.Error = herr.Error()
		} else {
			out.Message = reply
		}
	}

	data, err := encode(&out)
	if err != nil {
		logger.Error("failed to encode reply", clog.Error(err))
		return
	}
	if err := m.Respond(data); err != nil {
		logger.Warn("failed to send reply", clog.Error(err))
	}
}

// Close 退订，幂等
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopped)
		err = s.sub.Unsubscribe()
		s.logger.Info("remote dispatch stopped")
	})
	if xerrors.Is(err, nats.ErrConnectionClosed) || xerrors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}
