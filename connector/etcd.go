package connector

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/xerrors"
)

// healthKey 健康检查读取的键，不存在也算成功
const healthKey = "keystone/health-check"

type etcdConnector struct {
	cfg     EtcdConfig
	logger  clog.Logger
	metrics *connMetrics

	mu      sync.RWMutex
	client  *clientv3.Client
	closed  bool
	healthy atomic.Bool
}

// NewEtcd 创建 etcd 连接器，不建立连接
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newConnMetrics(o.meter, "etcd", c.Name)
	if err != nil {
		return nil, err
	}

	return &etcdConnector{
		cfg:     c,
		logger:  o.logger.With(clog.String("connector", "etcd"), clog.String("name", c.Name)),
		metrics: m,
	}, nil
}

// Connect 创建客户端并读取一次健康检查键确认连通
func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.client != nil {
		return nil
	}

	c.logger.Info("connecting to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            c.cfg.Endpoints,
		DialTimeout:          c.cfg.DialTimeout,
		DialKeepAliveTime:    c.cfg.KeepAliveTime,
		DialKeepAliveTimeout: c.cfg.KeepAliveTimeout,
		Username:             c.cfg.Username,
		Password:             c.cfg.Password,
		Context:              context.WithoutCancel(ctx),
	})
	if err == nil {
		err = ping(ctx, client, c.cfg)
		if err != nil {
			_ = client.Close()
		}
	}
	c.metrics.attempt(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd[%s]: %v", c.cfg.Name, err)
	}

	c.client = client
	c.healthy.Store(true)
	c.metrics.setActive(ctx, true)
	c.logger.Info("connected to etcd")
	return nil
}

func ping(ctx context.Context, client *clientv3.Client, cfg EtcdConfig) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	_, err := client.Get(ctx, healthKey)
	return err
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)

	if c.client == nil {
		return nil
	}
	c.metrics.setActive(context.Background(), false)

	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd client", clog.Error(err))
		return xerrors.Wrap(err, "close etcd client")
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		c.healthy.Store(false)
		return ErrNotConnected
	}

	if err := ping(ctx, client, c.cfg); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
