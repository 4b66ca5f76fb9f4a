// Package netprobe 判断一个主机名是否指向本机。
//
// 实现 component.Prober。IP 字面量直接与本机网卡地址比较，
// 主机名先解析再逐个比较；结果按主机缓存，解析失败不缓存。
// 可选按令牌桶限制 DNS 解析速率。
package netprobe

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"golang.org/x/time/rate"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

const (
	resultLocal  = "local"
	resultRemote = "remote"
	resultCached = "cached"
)

// Prober 基于 DNS 和本机网卡地址的可达性探测器，并发安全
type Prober struct {
	cfg      Config
	addrs    AddrSource
	resolver Resolver
	hostname string
	cache    *otter.Cache[string, bool]
	limiter  *rate.Limiter // nil 表示不限制
	logger   clog.Logger
	probes   metrics.Counter
	duration metrics.Histogram
}

var _ component.Prober = (*Prober)(nil)

// New 创建探测器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (*Prober, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := &options{
		logger:   clog.Discard(),
		meter:    metrics.Discard(),
		addrs:    SystemAddrs{},
		resolver: net.DefaultResolver,
		hostname: systemHostname(),
	}
	for _, opt := range opts {
		opt(o)
	}

	probes, err := o.meter.Counter("netprobe_probes_total", "Number of locality probes by result")
	if err != nil {
		return nil, xerrors.Wrap(err, "create probe counter")
	}
	duration, err := o.meter.Histogram("netprobe_probe_duration_seconds",
		"Time spent resolving and matching a host", metrics.WithUnit("s"))
	if err != nil {
		return nil, xerrors.Wrap(err, "create probe histogram")
	}

	p := &Prober{
		cfg:      c,
		addrs:    o.addrs,
		resolver: o.resolver,
		hostname: normalize(o.hostname),
		logger:   o.logger,
		probes:   probes,
		duration: duration,
	}

	if c.LookupRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(c.LookupRate), c.LookupBurst)
	}

	if !c.DisableCache {
		p.cache, err = otter.New(&otter.Options[string, bool]{
			MaximumSize:      c.CacheSize,
			ExpiryCalculator: otter.ExpiryWriting[string, bool](c.CacheTTL),
		})
		if err != nil {
			return nil, xerrors.Wrap(err, "failed to build otter cache")
		}
	}

	return p, nil
}

// TestLocal 报告 host 是否指向本机。
//
// 解析失败时返回错误，由调用方决定如何兜底；错误结果不进缓存。
func (p *Prober) TestLocal(ctx context.Context, host string) (bool, error) {
	host = normalize(host)
	if host == "" {
		return false, ErrEmptyHost
	}

	if host == component.LocalHostToken || (p.hostname != "" && host == p.hostname) {
		return true, nil
	}

	if p.cache != nil {
		if local, ok := p.cache.GetIfPresent(host); ok {
			p.probes.Inc(ctx, metrics.L(metrics.LabelResult, resultCached))
			return local, nil
		}
	}

	start := time.Now()
	local, err := p.probe(ctx, host)
	p.duration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		p.probes.Inc(ctx, metrics.L(metrics.LabelResult, metrics.OutcomeError))
		p.logger.DebugContext(ctx, "probe failed", clog.String("host", host), clog.Error(err))
		return false, err
	}

	result := resultRemote
	if local {
		result = resultLocal
	}
	p.probes.Inc(ctx, metrics.L(metrics.LabelResult, result))

	if p.cache != nil {
		p.cache.Set(host, local)
	}
	return local, nil
}

// Invalidate 丢弃某个主机的缓存结果
func (p *Prober) Invalidate(host string) {
	if p.cache != nil {
		p.cache.Invalidate(normalize(host))
	}
}

// Purge 清空全部缓存
func (p *Prober) Purge() {
	if p.cache != nil {
		p.cache.InvalidateAll()
	}
}

func (p *Prober) probe(ctx context.Context, host string) (bool, error) {
	if ip := net.ParseIP(host); ip != nil {
		return p.isLocalIP(ip)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return false, xerrors.Wrapf(ErrRateLimited, "%s: %v", host, err)
		}
	}

	addrs, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		if xerrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, xerrors.Wrapf(xerrors.ErrTimeout, "resolve %s: %v", host, err)
		}
		return false, xerrors.Wrapf(err, "resolve %s", host)
	}
	if len(addrs) == 0 {
		return false, xerrors.Wrapf(ErrNoAddress, "%s", host)
	}

	for _, a := range addrs {
		local, err := p.isLocalIP(a.IP)
		if err != nil {
			return false, err
		}
		if local {
			return true, nil
		}
	}
	return false, nil
}

// isLocalIP 回环地址、通配地址或任一网卡上的地址都视为本机
func (p *Prober) isLocalIP(ip net.IP) (bool, error) {
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true, nil
	}

	addrs, err := p.addrs.InterfaceAddrs()
	if err != nil {
		return false, xerrors.Wrap(err, "list interface addresses")
	}
	for _, a := range addrs {
		if local := addrIP(a); local != nil && local.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}

// normalize 去掉空白、末尾的点和 IPv6 方括号，并转为小写
func normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return host
}
