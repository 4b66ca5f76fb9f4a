package registry

import (
	"strings"
	"time"

	"github.com/ceyewan/keystone/xerrors"
)

// Config Registry 配置
type Config struct {
	// Namespace etcd 键前缀 (默认: "/keystone/services")
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`

	// Schema gRPC resolver 的 scheme (默认: "keystone")
	Schema string `mapstructure:"schema" yaml:"schema" json:"schema"`

	// DefaultTTL ttl 传 0 时使用的租约时长 (默认: 30s)
	DefaultTTL time.Duration `mapstructure:"default_ttl" yaml:"default_ttl" json:"default_ttl"`

	// RetryInterval Watch 断开后的重试间隔 (默认: 1s)
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval" json:"retry_interval"`
}

func (c *Config) setDefaults() {
	if c.Namespace == "" {
		c.Namespace = "/keystone/services"
	}
	c.Namespace = strings.TrimSuffix(c.Namespace, "/")
	if c.Schema == "" {
		c.Schema = "keystone"
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 30 * time.Second
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = time.Second
	}
}

func (c *Config) validate() error {
	if c.DefaultTTL < time.Second {
		return xerrors.Wrap(ErrInvalidTTL, "default_ttl must be at least 1s")
	}
	if c.RetryInterval < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "registry: retry_interval must not be negative")
	}
	if strings.ContainsAny(c.Schema, ":/") {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "registry: invalid schema %q", c.Schema)
	}
	return nil
}
