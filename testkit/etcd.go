package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	etcdcontainer "github.com/testcontainers/testcontainers-go/modules/etcd"

	"github.com/ceyewan/keystone/connector"
)

// EtcdImage testcontainers 使用的 etcd 镜像
const EtcdImage = "gcr.io/etcd-development/etcd:v3.6.6"

// EtcdEndpoint 返回 etcd 地址：环境变量优先，否则启动容器
func EtcdEndpoint(t *testing.T) string {
	t.Helper()
	if endpoint := os.Getenv("KEYSTONE_ETCD_ENDPOINT"); endpoint != "" {
		return endpoint
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := etcdcontainer.Run(ctx, EtcdImage)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("etcd container unavailable: %v", err)
	}

	endpoint, err := container.ClientEndpoint(ctx)
	require.NoError(t, err)
	return endpoint
}

// EtcdConfig 返回指向测试 etcd 的连接配置
func EtcdConfig(t *testing.T) *connector.EtcdConfig {
	return &connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   []string{EtcdEndpoint(t)},
		DialTimeout: 3 * time.Second,
	}
}

// EtcdConnector 返回已连接的 etcd 连接器，连接失败时跳过测试
func EtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	conn, err := connector.NewEtcd(EtcdConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
