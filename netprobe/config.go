package netprobe

import (
	"time"

	"github.com/ceyewan/keystone/xerrors"
)

// Config 探测器配置
type Config struct {
	// Timeout 单次 DNS 解析的超时时间，默认 2s
	Timeout time.Duration `mapstructure:"timeout"`

	// CacheTTL 探测结果缓存时间，默认 30s
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// CacheSize 最多缓存的主机数，默认 1024
	CacheSize int `mapstructure:"cache_size"`

	// DisableCache 关闭结果缓存，每次都重新探测
	DisableCache bool `mapstructure:"disable_cache"`

	// LookupRate 每秒最多发起的 DNS 解析数，0 表示不限制
	LookupRate float64 `mapstructure:"lookup_rate"`

	// LookupBurst 解析突发上限，LookupRate 大于 0 时默认 10
	LookupBurst int `mapstructure:"lookup_burst"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1024
	}
	if c.LookupRate > 0 && c.LookupBurst == 0 {
		c.LookupBurst = 10
	}
}

func (c *Config) validate() error {
	if c.Timeout < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "netprobe: timeout must not be negative")
	}
	if c.CacheTTL < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "netprobe: cache_ttl must not be negative")
	}
	if c.CacheSize < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "netprobe: cache_size must not be negative")
	}
	if c.LookupRate < 0 || c.LookupBurst < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "netprobe: lookup_rate and lookup_burst must not be negative")
	}
	return nil
}
