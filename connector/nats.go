package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/xerrors"
)

type natsConnector struct {
	cfg     NATSConfig
	logger  clog.Logger
	metrics *connMetrics

	mu      sync.RWMutex
	conn    *nats.Conn
	closed  bool
	healthy atomic.Bool
}

// NewNATS 创建 NATS 连接器，不建立连接
func NewNATS(cfg *NATSConfig, opts ...Option) (NATSConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "nats config is nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newConnMetrics(o.meter, "nats", c.Name)
	if err != nil {
		return nil, err
	}

	return &natsConnector{
		cfg:     c,
		logger:  o.logger.With(clog.String("connector", "nats"), clog.String("name", c.Name)),
		metrics: m,
	}, nil
}

func (c *natsConnector) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.cfg.Name),
		nats.Timeout(c.cfg.Timeout),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.PingInterval(c.cfg.PingInterval),
		nats.MaxPingsOutstanding(c.cfg.MaxPingsOut),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.healthy.Store(false)
			c.logger.Warn("nats disconnected", clog.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.healthy.Store(true)
			c.logger.Info("nats reconnected", clog.String("url", nc.ConnectedUrlRedacted()))
		}),
	}
	if c.cfg.Username != "" {
		opts = append(opts, nats.UserInfo(c.cfg.Username, c.cfg.Password))
	}
	if c.cfg.Token != "" {
		opts = append(opts, nats.Token(c.cfg.Token))
	}
	return opts
}

func (c *natsConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("connecting to nats", clog.String("url", c.cfg.URL))

	conn, err := nats.Connect(c.cfg.URL, c.natsOptions()...)
	c.metrics.attempt(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to nats", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "nats[%s]: %v", c.cfg.Name, err)
	}

	c.conn = conn
	c.healthy.Store(true)
	c.metrics.setActive(ctx, true)
	c.logger.Info("connected to nats", clog.String("server", conn.ConnectedServerId()))
	return nil
}

// Close 先 Drain 让在途请求处理完，Drain 失败再强制关闭
func (c *natsConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)

	if c.conn == nil {
		return nil
	}
	c.metrics.setActive(context.Background(), false)

	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed, closing", clog.Error(err))
		c.conn.Close()
	}
	c.conn = nil
	c.logger.Info("nats connection closed")
	return nil
}

func (c *natsConnector) HealthCheck(ctx context.Context) error {
	conn := c.GetClient()
	if conn == nil {
		c.healthy.Store(false)
		return ErrNotConnected
	}

	if status := conn.Status(); status != nats.CONNECTED {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "nats[%s]: status %s", c.cfg.Name, status)
	}

	// FlushWithContext 往返一次 PING/PONG，要求 ctx 带超时
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := conn.FlushWithContext(ctx); err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "nats[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *natsConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *natsConnector) Name() string {
	return c.cfg.Name
}

func (c *natsConnector) GetClient() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}
