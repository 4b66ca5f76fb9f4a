package credential

import (
	"time"

	"github.com/ceyewan/keystone/clog"
)

// Option Provider 选项
type Option func(*Provider)

// WithValidity 设置证书有效期，非正数忽略
func WithValidity(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.validity = d
		}
	}
}

// WithOrganization 设置证书主题中的组织名
func WithOrganization(org string) Option {
	return func(p *Provider) {
		if org != "" {
			p.organization = org
		}
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger 注入日志记录器，自动追加 "credential" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l.WithNamespace("credential")
		}
	}
}
