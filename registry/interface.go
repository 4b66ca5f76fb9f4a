package registry

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/resolver"

	"github.com/ceyewan/keystone/component"
)

// Registry 在 etcd 中发布和发现 ServiceID
type Registry interface {
	// Register 在租约下写入 ServiceID 并自动续约；ttl 为 0 时使用默认值
	Register(ctx context.Context, sid component.ServiceID, ttl time.Duration) error

	// Publish 发布服务描述符的 ServiceID
	Publish(ctx context.Context, svc *component.Service, ttl time.Duration) error

	// Deregister 撤销本实例注册的服务
	Deregister(ctx context.Context, uuid string) error

	// GetServices 列出某个组件类型已发布的全部实例
	GetServices(ctx context.Context, typ string) ([]component.ServiceID, error)

	// Watch 监听组件类型的实例变化，ctx 结束或 Close 时通道关闭
	Watch(ctx context.Context, typ string) (<-chan Event, error)

	// GetConnection 通过 <schema>:///<type> 建立到该类型实例的 gRPC 连接
	GetConnection(ctx context.Context, typ string, opts ...grpc.DialOption) (*grpc.ClientConn, error)

	// ResolverBuilder 供调用方自行 grpc.WithResolvers 使用
	ResolverBuilder() resolver.Builder

	// Close 撤销所有租约并停止后台任务，幂等
	Close() error
}

// Event 实例变化事件。DELETE 事件只保证 UUID 和 Type 有值
type Event struct {
	Type    EventType
	Service component.ServiceID
}

// EventType 事件类型
type EventType string

const (
	EventTypePut    EventType = "PUT"
	EventTypeDelete EventType = "DELETE"
)
