package component

import (
	"context"

	"github.com/ceyewan/keystone/clog"
)

// Rule 决定服务位置的规则，按优先级排列
type Rule string

const (
	RuleProxyOverride   Rule = "proxy-override"
	RuleConfiguredLocal Rule = "configured-local"
	RuleNoHost          Rule = "no-host"
	RuleProbed          Rule = "probed"
	RuleProbeFailed     Rule = "probe-failed"
)

// FailOpen 将一次探测结果映射为本地标记：只要探测出错就按本地处理。
//
// 主机解析不稳定时宁可走本地派发，也不要错误地路由到网络。
func FailOpen(local bool, err error) bool {
	if err != nil {
		return true
	}
	return local
}

// resolution 位置解析结果
type resolution struct {
	name     string
	endpoint Endpoint
	rule     Rule
	probeErr error
}

// resolve 依次应用：代理覆盖 > 配置声明本地 > 探测。第一条命中即返回。
func (f *Factory) resolve(ctx context.Context, id Identity, cfg *Configuration) resolution {
	if f.proxyOverride(id) {
		return remoteResolution(id, cfg, RuleProxyOverride)
	}

	if cfg.IsLocal() {
		return localResolution(id, RuleConfiguredLocal)
	}

	if !cfg.HasHost() {
		return localResolution(id, RuleNoHost)
	}

	probed, err := f.probe(ctx, cfg.HostName)
	if !FailOpen(probed, err) {
		return remoteResolution(id, cfg, RuleProbed)
	}
	if err != nil {
		r := localResolution(id, RuleProbeFailed)
		r.probeErr = err
		return r
	}
	return localResolution(id, RuleProbed)
}

// proxyOverride 前端代理类型在核心组件位于本机时强制按主机寻址，
// 因为它的线协议与纯本地派发不同。核心组件查不到时不覆盖。
func (f *Factory) proxyOverride(id Identity) bool {
	if id.Name() != ProxyComponentName {
		return false
	}
	core, err := f.opts.registry.LookupName(CoreComponentName)
	if err != nil {
		f.opts.logger.Debug("core component not registered, proxy override skipped",
			clog.String("component", id.Name()),
			clog.Error(err))
		return false
	}
	return core.IsLocal()
}

func (f *Factory) probe(ctx context.Context, host string) (bool, error) {
	if f.opts.prober == nil {
		return false, ErrNoProber
	}
	return f.opts.prober.TestLocal(ctx, host)
}

func localResolution(id Identity, rule Rule) resolution {
	return resolution{
		name:     id.Name() + "@" + LocalHostToken,
		endpoint: newEndpoint(true, id.LocalEndpointURI()),
		rule:     rule,
	}
}

func remoteResolution(id Identity, cfg *Configuration, rule Rule) resolution {
	return resolution{
		name:     id.Name() + "@" + cfg.HostName,
		endpoint: newEndpoint(false, id.RemoteEndpointURI(cfg.HostName, cfg.Port)),
		rule:     rule,
	}
}
