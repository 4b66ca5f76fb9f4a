package dispatch

import (
	"time"

	"github.com/ceyewan/keystone/xerrors"
)

// DefaultSubjectPrefix 远程派发主题前缀
const DefaultSubjectPrefix = "keystone"

// Config 派发配置
type Config struct {
	// SubjectPrefix NATS 主题前缀 (默认: "keystone")
	SubjectPrefix string `mapstructure:"subject_prefix"`

	// RequestTimeout 单次远程请求超时，ctx 更早到期时以 ctx 为准 (默认: 5s)
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Breaker 每个远程服务一个熔断器
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 熔断配置，语义同 gobreaker.Settings
type BreakerConfig struct {
	MaxRequests     uint32        `mapstructure:"max_requests"`     // 半开状态允许的探测请求数 (默认: 1)
	Interval        time.Duration `mapstructure:"interval"`         // 闭合状态下清空计数的周期，0 表示不清空
	Timeout         time.Duration `mapstructure:"timeout"`          // 打开状态持续时间 (默认: 30s)
	FailureRatio    float64       `mapstructure:"failure_ratio"`    // 触发熔断的失败率 (默认: 0.6)
	MinimumRequests uint32        `mapstructure:"minimum_requests"` // 计算失败率前的最少请求数 (默认: 10)
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 1
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Breaker.FailureRatio == 0 {
		c.Breaker.FailureRatio = 0.6
	}
	if c.Breaker.MinimumRequests == 0 {
		c.Breaker.MinimumRequests = 10
	}
}

func (c *Config) validate() error {
	if c.RequestTimeout < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "dispatch: request_timeout must not be negative")
	}
	if c.Breaker.FailureRatio < 0 || c.Breaker.FailureRatio > 1 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "dispatch: breaker.failure_ratio must be within [0, 1]")
	}
	if sanitize(c.SubjectPrefix) != c.SubjectPrefix {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "dispatch: invalid subject prefix %q", c.SubjectPrefix)
	}
	return nil
}
