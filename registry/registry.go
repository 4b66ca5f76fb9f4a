// Package registry 在 etcd 中发布服务描述符的 ServiceID，并提供发现、监听
// 和 gRPC resolver 集成。
//
// 存储结构：
//
//	<namespace>/<type>/<uuid> -> JSON(component.ServiceID)
//
// 每个实例一个租约，后台自动续约；进程退出且未调用 Close 时，
// 实例在租约到期后自动下线。
//
//	reg, _ := registry.New(etcdConn, &registry.Config{}, registry.WithLogger(logger))
//	defer reg.Close()
//
//	_ = reg.Publish(ctx, svc, 30*time.Second)
//	ids, _ := reg.GetServices(ctx, "storage")
//
// registry 只借用 etcd 连接器，不负责关闭它。
package registry

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/resolver"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/connector"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

// New 创建基于 etcd 的 Registry，连接器必须已 Connect
func New(conn connector.EtcdConnector, cfg *Config, opts ...Option) (Registry, error) {
	if conn == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "registry: etcd connector is required")
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(connector.ErrNotConnected, "registry")
	}

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

	published, err := o.meter.Gauge("registry_published_services", "Number of services published by this process")
	if err != nil {
		return nil, xerrors.Wrap(err, "create published gauge")
	}

	r := &etcdRegistry{
		client:     client,
		cfg:        c,
		logger:     o.logger,
		published:  published,
		keepAlives: make(map[string]*leaseKeepAlive),
		watchers:   make(map[uint64]context.CancelFunc),
		stopChan:   make(chan struct{}),
	}
	r.builder = &resolverBuilder{registry: r}
	return r, nil
}

type leaseKeepAlive struct {
	leaseID     clientv3.LeaseID
	keepAliveCh <-chan *clientv3.LeaseKeepAliveResponse
	cancel      context.CancelFunc
	sid         component.ServiceID
	closed      atomic.Bool
}

type etcdRegistry struct {
	client    *clientv3.Client
	cfg       Config
	logger    clog.Logger
	published metrics.Gauge
	builder   *resolverBuilder

	keepAlives map[string]*leaseKeepAlive    // uuid -> keepAlive
	watchers   map[uint64]context.CancelFunc // watchID -> cancel
	watchSeq   uint64
	stopChan   chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     atomic.Bool
}

func (r *etcdRegistry) ensureOpen() error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}
	return nil
}

func validServiceID(sid component.ServiceID) bool {
	return sid.UUID != "" && sid.Type != "" &&
		!strings.Contains(sid.UUID, "/") && !strings.Contains(sid.Type, "/")
}

func (r *etcdRegistry) Publish(ctx context.Context, svc *component.Service, ttl time.Duration) error {
	if svc == nil {
		return xerrors.Wrap(ErrInvalidServiceID, "nil service")
	}
	return r.Register(ctx, svc.ServiceID(), ttl)
}

func (r *etcdRegistry) Register(ctx context.Context, sid component.ServiceID, ttl time.Duration) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if !validServiceID(sid) {
		return xerrors.Wrapf(ErrInvalidServiceID, "uuid=%q type=%q", sid.UUID, sid.Type)
	}
	if ttl == 0 {
		ttl = r.cfg.DefaultTTL
	}
	if ttl < time.Second {
		return ErrInvalidTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keepAlives[sid.UUID]; exists {
		return xerrors.Wrapf(ErrServiceAlreadyRegistered, "%s", sid.UUID)
	}

	value, err := json.Marshal(sid)
	if err != nil {
		return xerrors.Wrap(err, "marshal service id")
	}

	lease, err := r.client.Grant(ctx, int64(ttl.Seconds()))
	if err != nil {
		r.logger.Error("failed to grant lease", clog.String("uuid", sid.UUID), clog.Error(err))
		return xerrors.Wrap(err, "grant lease")
	}

	key := r.buildKey(sid.Type, sid.UUID)
	if _, err := r.client.Put(ctx, key, string(value), clientv3.WithLease(lease.ID)); err != nil {
		r.revoke(ctx, sid.UUID, lease.ID)
		r.logger.Error("failed to put service", clog.String("key", key), clog.Error(err))
		return xerrors.Wrap(err, "put service")
	}

	// 续约不跟随调用方 ctx，由 Deregister/Close 结束
	kaCtx, kaCancel := context.WithCancel(context.Background())
	kaCh, err := r.client.KeepAlive(kaCtx, lease.ID)
	if err != nil {
		kaCancel()
		r.revoke(ctx, sid.UUID, lease.ID)
		return xerrors.Wrap(err, "keepalive")
	}

	ka := &leaseKeepAlive{
		leaseID:     lease.ID,
		keepAliveCh: kaCh,
		cancel:      kaCancel,
		sid:         sid,
	}
	r.keepAlives[sid.UUID] = ka
	r.published.Set(ctx, float64(len(r.keepAlives)))

	r.wg.Add(1)
	go r.monitorKeepAlive(ka)

	r.logger.Info("service registered",
		clog.String("uuid", sid.UUID),
		clog.String("type", sid.Type),
		clog.String("name", sid.Name),
		clog.String("partition", sid.Partition),
		clog.Duration("ttl", ttl))
	return nil
}

func (r *etcdRegistry) revoke(ctx context.Context, uuid string, id clientv3.LeaseID) {
	if _, err := r.client.Revoke(ctx, id); err != nil {
		r.logger.Error("failed to revoke lease",
			clog.String("uuid", uuid),
			clog.Int64("lease_id", int64(id)),
			clog.Error(err))
	}
}

func (r *etcdRegistry) Deregister(ctx context.Context, uuid string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if uuid == "" {
		return ErrInvalidServiceID
	}

	r.mu.Lock()
	ka, exists := r.keepAlives[uuid]
	if !exists {
		r.mu.Unlock()
		return xerrors.Wrapf(ErrServiceNotFound, "%s", uuid)
	}
	ka.closed.Store(true)
	ka.cancel()
	delete(r.keepAlives, uuid)
	r.published.Set(ctx, float64(len(r.keepAlives)))
	r.mu.Unlock()

	// 撤销租约会一并删除关联的键
	if _, err := r.client.Revoke(ctx, ka.leaseID); err != nil {
		r.logger.Error("failed to revoke lease", clog.String("uuid", uuid), clog.Error(err))
		return xerrors.Wrap(err, "revoke lease")
	}

	r.logger.Info("service deregistered", clog.String("uuid", uuid))
	return nil
}

func (r *etcdRegistry) GetServices(ctx context.Context, typ string) ([]component.ServiceID, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, ErrInvalidServiceID
	}

	resp, err := r.client.Get(ctx, r.buildPrefix(typ), clientv3.WithPrefix())
	if err != nil {
		r.logger.Error("failed to get services", clog.String("type", typ), clog.Error(err))
		return nil, xerrors.Wrap(err, "get services")
	}

	out := make([]component.ServiceID, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var sid component.ServiceID
		if err := json.Unmarshal(kv.Value, &sid); err != nil {
			r.logger.Warn("skipping malformed service id",
				clog.String("key", string(kv.Key)),
				clog.Error(err))
			continue
		}
		out = append(out, sid)
	}
	return out, nil
}

// Watch 监听实例变化。连接断开或 revision 被压缩时从上次处理的位置继续，
// 压缩后无法补回的事件会丢失，调用方应结合 GetServices 做全量校正。
func (r *etcdRegistry) Watch(ctx context.Context, typ string) (<-chan Event, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, ErrInvalidServiceID
	}

	eventCh := make(chan Event, 100)
	prefix := r.buildPrefix(typ)
	watchCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.watchSeq++
	watchID := r.watchSeq
	r.watchers[watchID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(eventCh)
		defer func() {
			r.mu.Lock()
			delete(r.watchers, watchID)
			r.mu.Unlock()
			cancel()
		}()

		var lastRev int64
		for {
			opts := []clientv3.OpOption{clientv3.WithPrefix()}
			if lastRev > 0 {
				opts = append(opts, clientv3.WithRev(lastRev+1))
			}
			watchCh := r.client.Watch(watchCtx, prefix, opts...)
			r.logger.Debug("watch started", clog.String("type", typ), clog.Int64("from_revision", lastRev+1))

			var ok bool
			if lastRev, ok = r.consume(watchCtx, typ, watchCh, eventCh, lastRev); !ok {
				return
			}

			select {
			case <-watchCtx.Done():
				return
			case <-time.After(r.cfg.RetryInterval):
				r.logger.Warn("retrying watch", clog.String("type", typ))
			}
		}
	}()

	return eventCh, nil
}

// consume 转发一个 watch 通道上的事件，返回最后处理的 revision；
// 返回 false 表示应当退出
func (r *etcdRegistry) consume(ctx context.Context, typ string, watchCh clientv3.WatchChan, out chan<- Event, lastRev int64) (int64, bool) {
	for {
		select {
		case <-ctx.Done():
			return lastRev, false

		case wresp, ok := <-watchCh:
			if !ok {
				r.logger.Warn("watch channel closed", clog.String("type", typ))
				return lastRev, true
			}
			if err := wresp.Err(); err != nil {
				if xerrors.Is(err, rpctypes.ErrCompacted) {
					r.logger.Warn("watch revision compacted, resyncing", clog.String("type", typ))
					if resp, gerr := r.client.Get(ctx, r.buildPrefix(typ), clientv3.WithPrefix()); gerr == nil {
						lastRev = resp.Header.Revision
					}
					return lastRev, true
				}
				r.logger.Error("watch error", clog.String("type", typ), clog.Error(err))
				return lastRev, true
			}

			for _, ev := range wresp.Events {
				if ev.Kv.ModRevision > lastRev {
					lastRev = ev.Kv.ModRevision
				}
				event, ok := r.toEvent(typ, ev)
				if !ok {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return lastRev, false
				}
			}
		}
	}
}

func (r *etcdRegistry) toEvent(typ string, ev *clientv3.Event) (Event, bool) {
	switch ev.Type {
	case clientv3.EventTypePut:
		var sid component.ServiceID
		if err := json.Unmarshal(ev.Kv.Value, &sid); err != nil {
			r.logger.Warn("failed to unmarshal watch event",
				clog.String("key", string(ev.Kv.Key)),
				clog.Error(err))
			return Event{}, false
		}
		return Event{Type: EventTypePut, Service: sid}, true
	case clientv3.EventTypeDelete:
		key := string(ev.Kv.Key)
		return Event{
			Type:    EventTypeDelete,
			Service: component.ServiceID{UUID: key[strings.LastIndex(key, "/")+1:], Type: typ},
		}, true
	}
	return Event{}, false
}

func (r *etcdRegistry) ResolverBuilder() resolver.Builder {
	return r.builder
}

// GetConnection 创建走本 Registry 解析的 gRPC 连接。
//
// ctx 带 deadline 时会主动连接并等待 Ready。必须传入凭证选项，
// 如 grpc.WithTransportCredentials(insecure.NewCredentials())。
func (r *etcdRegistry) GetConnection(ctx context.Context, typ string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, ErrInvalidServiceID
	}
	if len(opts) == 0 {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "registry: dial options required, e.g. grpc.WithTransportCredentials()")
	}

	target := r.cfg.Schema + ":///" + typ
	opts = append([]grpc.DialOption{
		grpc.WithResolvers(r.builder),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		r.logger.Error("failed to create grpc connection", clog.String("type", typ), clog.Error(err))
		return nil, xerrors.Wrap(err, "dial")
	}

	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		if err := waitForReady(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			return xerrors.Wrap(ctx.Err(), "wait for connection ready")
		}
	}
}

func (r *etcdRegistry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r.mu.Lock()
	close(r.stopChan)
	for _, cancelFunc := range r.watchers {
		cancelFunc()
	}
	r.watchers = make(map[uint64]context.CancelFunc)

	leases := make(map[string]clientv3.LeaseID, len(r.keepAlives))
	for uuid, ka := range r.keepAlives {
		leases[uuid] = ka.leaseID
		ka.closed.Store(true)
		ka.cancel()
	}
	r.keepAlives = make(map[string]*leaseKeepAlive)
	r.mu.Unlock()

	for uuid, id := range leases {
		r.revoke(ctx, uuid, id)
	}
	r.published.Set(ctx, 0)

	r.wg.Wait()
	r.logger.Info("registry stopped")
	return nil
}

func (r *etcdRegistry) buildKey(typ, uuid string) string {
	return r.cfg.Namespace + "/" + typ + "/" + uuid
}

func (r *etcdRegistry) buildPrefix(typ string) string {
	return r.cfg.Namespace + "/" + typ + "/"
}

// monitorKeepAlive 通道关闭说明租约失效或连接中断；不自动重新注册，
// 避免进程已异常时留下僵尸实例
func (r *etcdRegistry) monitorKeepAlive(ka *leaseKeepAlive) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			return

		case resp, ok := <-ka.keepAliveCh:
			if !ok {
				if ka.closed.Load() {
					return
				}
				r.logger.Error("keepalive channel closed, lease expired or connection lost",
					clog.String("uuid", ka.sid.UUID),
					clog.String("type", ka.sid.Type),
					clog.Int64("lease_id", int64(ka.leaseID)))

				r.mu.Lock()
				if cur, exists := r.keepAlives[ka.sid.UUID]; exists && cur == ka {
					delete(r.keepAlives, ka.sid.UUID)
				}
				r.mu.Unlock()
				return
			}
			r.logger.Debug("keepalive renewed",
				clog.String("uuid", ka.sid.UUID),
				clog.Int64("ttl", resp.TTL))
		}
	}
}
