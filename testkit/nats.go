package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/ceyewan/keystone/connector"
)

// NATSImage testcontainers 使用的 NATS 镜像
const NATSImage = "nats:2.10-alpine"

// NATSURL 返回 NATS 地址：环境变量优先，否则启动容器
func NATSURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("KEYSTONE_NATS_URL"); url != "" {
		return url
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := natscontainer.Run(ctx, NATSImage)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("nats container unavailable: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return url
}

// NATSConfig 返回指向测试 NATS 的连接配置
func NATSConfig(t *testing.T) *connector.NATSConfig {
	return &connector.NATSConfig{
		Name:          "test-nats",
		URL:           NATSURL(t),
		Timeout:       2 * time.Second,
		MaxReconnects: 10,
		ReconnectWait: 100 * time.Millisecond,
	}
}

// NATSConnector 返回已连接的 NATS 连接器，连接失败时跳过测试
func NATSConnector(t *testing.T) connector.NATSConnector {
	t.Helper()
	conn, err := connector.NewNATS(NATSConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err)

	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("nats not available: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NATSConn 返回原生 NATS 连接
func NATSConn(t *testing.T) *nats.Conn {
	return NATSConnector(t).GetClient()
}
