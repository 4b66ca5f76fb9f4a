package registry

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/grpc/attributes"
	"google.golang.org/grpc/resolver"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
)

// attrKey resolver.Address 上携带 ServiceID 的属性键
type attrKey struct{}

// ServiceIDFromAddress 取出地址对应的 ServiceID，供自定义负载均衡按分区挑选
func ServiceIDFromAddress(addr resolver.Address) (component.ServiceID, bool) {
	if addr.Attributes == nil {
		return component.ServiceID{}, false
	}
	sid, ok := addr.Attributes.Value(attrKey{}).(component.ServiceID)
	return sid, ok
}

// resolverBuilder 把 <schema>:///<type> 解析为该类型已发布实例的 host:port
type resolverBuilder struct {
	registry *etcdRegistry
}

func (b *resolverBuilder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	typ := strings.TrimPrefix(target.Endpoint(), "/")

	ctx, cancel := context.WithCancel(context.Background())
	r := &typeResolver{
		registry: b.registry,
		typ:      typ,
		cc:       cc,
		ctx:      ctx,
		cancel:   cancel,
		cache:    make(map[string]resolver.Address),
	}
	go r.start()
	return r, nil
}

func (b *resolverBuilder) Scheme() string {
	return b.registry.cfg.Schema
}

// typeResolver 先全量拉取一次，之后按 Watch 事件增量更新
type typeResolver struct {
	registry *etcdRegistry
	typ      string
	cc       resolver.ClientConn
	ctx      context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	cache       map[string]resolver.Address // uuid -> address
	initialized bool
}

func (r *typeResolver) start() {
	events, err := r.registry.Watch(r.ctx, r.typ)
	if err != nil {
		r.registry.logger.Error("failed to watch for resolver", clog.String("type", r.typ), clog.Error(err))
		r.cc.ReportError(err)
		return
	}

	r.refresh()

	for event := range events {
		r.apply(event)
	}
}

// refresh 全量重建缓存
func (r *typeResolver) refresh() {
	ids, err := r.registry.GetServices(r.ctx, r.typ)
	if err != nil {
		r.registry.logger.Error("failed to refresh resolver", clog.String("type", r.typ), clog.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = make(map[string]resolver.Address, len(ids))
	for _, sid := range ids {
		if addr, ok := toAddress(sid); ok {
			r.cache[sid.UUID] = addr
		}
	}
	r.initialized = true
	r.pushLocked()
}

func (r *typeResolver) apply(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}

	switch event.Type {
	case EventTypePut:
		addr, ok := toAddress(event.Service)
		if !ok {
			return
		}
		r.cache[event.Service.UUID] = addr
	case EventTypeDelete:
		delete(r.cache, event.Service.UUID)
	}
	r.pushLocked()
}

// pushLocked 地址为空时不推送，保留旧状态直到有新地址
func (r *typeResolver) pushLocked() {
	if len(r.cache) == 0 {
		r.registry.logger.Warn("no published instances", clog.String("type", r.typ))
		return
	}

	addrs := make([]resolver.Address, 0, len(r.cache))
	for _, a := range r.cache {
		addrs = append(addrs, a)
	}
	if err := r.cc.UpdateState(resolver.State{Addresses: addrs}); err != nil {
		r.registry.logger.Warn("failed to update resolver state", clog.String("type", r.typ), clog.Error(err))
	}
}

func (r *typeResolver) ResolveNow(resolver.ResolveNowOptions) {
	go r.refresh()
}

func (r *typeResolver) Close() {
	r.cancel()
}

// toAddress 从 ServiceID.URI 取出 host:port
func toAddress(sid component.ServiceID) (resolver.Address, bool) {
	u, err := url.Parse(sid.URI)
	if err != nil || u.Host == "" {
		return resolver.Address{}, false
	}
	return resolver.Address{
		Addr:       u.Host,
		Attributes: attributes.New(attrKey{}, sid),
	}, true
}
