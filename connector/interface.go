// Package connector 管理 keystone 依赖的外部连接：etcd 用于服务发布，
// NATS 用于远程派发。
//
// 连接器遵循"谁创建，谁负责释放"：registry、dispatch 只借用连接器，
// 不调用 Close()。NewXXX() 只校验配置，Connect() 才真正建立连接，且可重复调用。
//
//	conn, err := connector.NewEtcd(&connector.EtcdConfig{
//		Endpoints: []string{"127.0.0.1:2379"},
//	}, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
package connector

import (
	"context"

	"github.com/nats-io/nats.go"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 所有连接器的通用行为，方法均并发安全。
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接，幂等。关闭后 GetClient 返回 nil
	Close() error

	// HealthCheck 主动检查连接，并刷新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 最近一次检查的结果，不阻塞
	IsHealthy() bool

	// Name 连接器实例名，用于日志和指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 在 Connect 之前或 Close 之后返回零值
	GetClient() T
}

// EtcdConnector etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// NATSConnector NATS 连接器，内置自动重连
type NATSConnector interface {
	TypedConnector[*nats.Conn]
}
