package netprobe

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keystone/xerrors"
)

type fakeResolver struct {
	mu      sync.Mutex
	records map[string][]net.IPAddr
	err     error
	block   bool
	calls   int
}

func (r *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	r.mu.Lock()
	r.calls++
	block, err, addrs := r.block, r.err, r.records[host]
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *fakeResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func ipAddrs(ips ...string) []net.IPAddr {
	out := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out
}

func newTestProber(t *testing.T, cfg *Config, r *fakeResolver) *Prober {
	t.Helper()
	p, err := New(cfg,
		WithResolver(r),
		WithAddrSource(StaticAddrs{net.ParseIP("10.0.0.5"), net.ParseIP("fd00::5")}),
		WithHostname("node-a"))
	require.NoError(t, err)
	return p
}

func TestProber_IPLiteral(t *testing.T) {
	r := &fakeResolver{}
	p := newTestProber(t, nil, r)
	ctx := context.Background()

	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"[::1]", true},
		{"0.0.0.0", true},
		{"10.0.0.5", true},
		{"fd00::5", true},
		{"10.0.0.6", false},
		{"192.168.1.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := p.TestLocal(ctx, tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Zero(t, r.count(), "IP literals must not be resolved")
}

func TestProber_Shortcuts(t *testing.T) {
	r := &fakeResolver{}
	p := newTestProber(t, nil, r)

	for _, host := range []string{"localhost", "LOCALHOST", "node-a", "node-a."} {
		local, err := p.TestLocal(context.Background(), host)
		require.NoError(t, err)
		assert.True(t, local, host)
	}
	assert.Zero(t, r.count())

	_, err := p.TestLocal(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyHost)
}

func TestProber_ResolvedName(t *testing.T) {
	r := &fakeResolver{records: map[string][]net.IPAddr{
		"self.example":   ipAddrs("192.168.9.9", "10.0.0.5"),
		"remote.example": ipAddrs("192.168.9.9"),
		"empty.example":  nil,
	}}
	p := newTestProber(t, nil, r)
	ctx := context.Background()

	local, err := p.TestLocal(ctx, "self.example")
	require.NoError(t, err)
	assert.True(t, local)

	local, err = p.TestLocal(ctx, "remote.example")
	require.NoError(t, err)
	assert.False(t, local)

	_, err = p.TestLocal(ctx, "empty.example")
	assert.True(t, xerrors.Is(err, ErrNoAddress))
}

func TestProber_Cache(t *testing.T) {
	r := &fakeResolver{records: map[string][]net.IPAddr{"remote.example": ipAddrs("192.168.9.9")}}
	p := newTestProber(t, nil, r)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		local, err := p.TestLocal(ctx, "remote.example")
		require.NoError(t, err)
		assert.False(t, local)
	}
	assert.Equal(t, 1, r.count())

	p.Invalidate("remote.example")
	_, err := p.TestLocal(ctx, "remote.example")
	require.NoError(t, err)
	assert.Equal(t, 2, r.count())

	p.Purge()
	_, err = p.TestLocal(ctx, "remote.example")
	require.NoError(t, err)
	assert.Equal(t, 3, r.count())
}

func TestProber_ErrorsAreNotCached(t *testing.T) {
	r := &fakeResolver{err: errors.New("no such host")}
	p := newTestProber(t, nil, r)
	ctx := context.Background()

	_, err := p.TestLocal(ctx, "flaky.example")
	require.Error(t, err)
	_, err = p.TestLocal(ctx, "flaky.example")
	require.Error(t, err)
	assert.Equal(t, 2, r.count())
}

func TestProber_DisableCache(t *testing.T) {
	r := &fakeResolver{records: map[string][]net.IPAddr{"remote.example": ipAddrs("192.168.9.9")}}
	p := newTestProber(t, &Config{DisableCache: true}, r)

	for i := 0; i < 3; i++ {
		_, err := p.TestLocal(context.Background(), "remote.example")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, r.count())
}

func TestProber_Timeout(t *testing.T) {
	r := &fakeResolver{block: true}
	p := newTestProber(t, &Config{Timeout: 20 * time.Millisecond}, r)

	start := time.Now()
	_, err := p.TestLocal(context.Background(), "slow.example")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Timeout: -time.Second})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestProber_LookupRate(t *testing.T) {
	r := &fakeResolver{records: map[string][]net.IPAddr{
		"a.example": ipAddrs("192.168.9.1"),
		"b.example": ipAddrs("192.168.9.2"),
	}}
	p := newTestProber(t, &Config{
		Timeout:     50 * time.Millisecond,
		LookupRate:  0.5,
		LookupBurst: 1,
	}, r)
	ctx := context.Background()

	_, err := p.TestLocal(ctx, "a.example")
	require.NoError(t, err)

	_, err = p.TestLocal(ctx, "b.example")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, xerrors.Is(err, xerrors.ErrUnavailable))
	assert.Equal(t, 1, r.count())

	// 缓存命中和 IP 字面量不消耗配额
	_, err = p.TestLocal(ctx, "a.example")
	require.NoError(t, err)
	local, err := p.TestLocal(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.True(t, local)
}
