package connector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keystone/xerrors"
)

func TestEtcdConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EtcdConfig
		wantErr bool
	}{
		{"valid", EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}, false},
		{"no endpoints", EtcdConfig{}, true},
		{"empty endpoint", EtcdConfig{Endpoints: []string{""}}, true},
		{"negative timeout", EtcdConfig{Endpoints: []string{"a:1"}, DialTimeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.setDefaults()
			err := cfg.validate()
			if tt.wantErr {
				assert.True(t, xerrors.Is(err, ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", cfg.Name)
			assert.Equal(t, 5*time.Second, cfg.DialTimeout)
		})
	}
}

func TestNATSConfig(t *testing.T) {
	cfg := NATSConfig{URL: "nats://127.0.0.1:4222"}
	cfg.setDefaults()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 60, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Minute, cfg.PingInterval)

	assert.True(t, xerrors.Is((&NATSConfig{}).validate(), ErrConfig))
	assert.True(t, xerrors.Is((&NATSConfig{URL: "x", Token: "t", Username: "u"}).validate(), ErrConfig))
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	cfg := &EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}
	conn, err := NewEtcd(cfg)
	require.NoError(t, err)
	assert.Equal(t, "default", conn.Name())
	assert.Empty(t, cfg.Name)

	_, err = NewEtcd(nil)
	assert.True(t, xerrors.Is(err, ErrConfig))
	_, err = NewNATS(nil)
	assert.True(t, xerrors.Is(err, ErrConfig))
}

func TestBeforeConnect(t *testing.T) {
	etcd, err := NewEtcd(&EtcdConfig{Name: "e", Endpoints: []string{"127.0.0.1:2379"}})
	require.NoError(t, err)
	nc, err := NewNATS(&NATSConfig{Name: "n", URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)

	for _, c := range []Connector{etcd, nc} {
		assert.False(t, c.IsHealthy())
		assert.True(t, xerrors.Is(c.HealthCheck(context.Background()), ErrNotConnected))
	}
	assert.Nil(t, etcd.GetClient())
	assert.Nil(t, nc.GetClient())
}

func TestClose_Idempotent(t *testing.T) {
	etcd, err := NewEtcd(&EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}})
	require.NoError(t, err)
	nc, err := NewNATS(&NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)

	for _, c := range []Connector{etcd, nc} {
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.True(t, xerrors.Is(c.Connect(context.Background()), ErrClosed))
	}
}

func TestNATS_ConnectFailure(t *testing.T) {
	nc, err := NewNATS(&NATSConfig{URL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer nc.Close()

	err = nc.Connect(context.Background())
	assert.True(t, xerrors.Is(err, ErrConnection))
	assert.False(t, nc.IsHealthy())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestEtcd_Integration(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{
		Endpoints:   []string{envOr("KEYSTONE_ETCD_ENDPOINT", "127.0.0.1:2379")},
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	defer conn.Close()

	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("etcd not available: %v", err)
	}

	require.NoError(t, conn.Connect(context.Background()), "Connect must be idempotent")
	require.NoError(t, conn.HealthCheck(context.Background()))
	assert.True(t, conn.IsHealthy())
	assert.NotNil(t, conn.GetClient())

	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
}

func TestNATS_Integration(t *testing.T) {
	conn, err := NewNATS(&NATSConfig{
		URL:     envOr("KEYSTONE_NATS_URL", "nats://127.0.0.1:4222"),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	defer conn.Close()

	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("nats not available: %v", err)
	}

	require.NoError(t, conn.HealthCheck(context.Background()))
	assert.True(t, conn.IsHealthy())
	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
}
