// Package testkit 为各包测试提供共享依赖：日志、指标、唯一 ID，
// 以及 etcd/NATS 连接器。
//
// 连接器优先使用环境变量指定的地址（KEYSTONE_ETCD_ENDPOINT、KEYSTONE_NATS_URL），
// 未设置时通过 testcontainers 启动临时容器，Docker 不可用则跳过测试。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包
func NewKit(t *testing.T) *Kit {
	return &Kit{
		Ctx:    t.Context(),
		Logger: NewLogger(),
		Meter:  NewMeter(t),
	}
}

// NewLogger 返回开发格式的 logger，便于本地调试
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig("keystone-test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回独立注册表的 meter，测试结束时关闭
func NewMeter(t *testing.T) metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("keystone-test"))
	if err != nil {
		return metrics.Discard()
	}
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	return meter
}

// NewContext 返回带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.Context(), timeout)
}

// NewID 返回 UUID 前 8 位，用于隔离测试间的 key 前缀和主题
func NewID() string {
	return uuid.New().String()[0:8]
}
