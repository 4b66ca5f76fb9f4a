package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/connector"
	"github.com/ceyewan/keystone/testkit"
	"github.com/ceyewan/keystone/xerrors"
)

type staticProber bool

func (p staticProber) TestLocal(context.Context, string) (bool, error) {
	return bool(p), nil
}

func newComponents(t *testing.T, names ...string) *component.Components {
	t.Helper()
	c := component.NewComponents()
	for _, n := range names {
		require.NoError(t, c.Register(n, component.NewStaticComponent(n, true, component.StateEnabled)))
	}
	return c
}

// buildService 从调用方视角构造服务：探测结果为远程
func buildService(t *testing.T, f *Factory, typ string, cfg *component.Configuration) (*component.Service, error) {
	t.Helper()
	return buildServiceAs(t, f, typ, cfg, staticProber(false))
}

// buildServiceAs 用指定的探测结果构造服务，staticProber(true) 即服务所在节点自己的视角
func buildServiceAs(t *testing.T, f *Factory, typ string, cfg *component.Configuration, p component.Prober) (*component.Service, error) {
	t.Helper()
	return component.NewService(context.Background(), component.NewComponentID(typ), cfg,
		component.WithRegistry(newComponents(t, typ)),
		component.WithProber(p),
		component.WithDispatcherFactory(f))
}

var echo = HandlerFunc(func(_ context.Context, msg *component.Message) (*component.Message, error) {
	return &component.Message{Action: msg.Action + "Response", Body: msg.Body}, nil
})

func TestSubject(t *testing.T) {
	f, err := NewFactory(nil)
	require.NoError(t, err)

	s, err := buildService(t, f, "storage", &component.Configuration{Name: "sc", Partition: "p1", Local: true})
	require.NoError(t, err)
	assert.Equal(t, "keystone.p1.storage.sc", Subject(DefaultSubjectPrefix, s))

	s, err = buildService(t, f, "storage", &component.Configuration{ID: "sc.01", Name: "sc", Partition: "p 1", Local: true})
	require.NoError(t, err)
	assert.Equal(t, "keystone.p_1.storage.sc_01", Subject(DefaultSubjectPrefix, s))

	assert.Equal(t, "storage_10_0_0_1", sanitize("storage@10.0.0.1"))
	assert.Equal(t, "a_b_c", sanitize("a*b>c"))
	assert.Equal(t, "_", sanitize(""))
}

func TestSubject_AgreesAcrossNodes(t *testing.T) {
	nc, err := connector.NewNATS(&connector.NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)
	f, err := NewFactory(nil, WithNATS(nc))
	require.NoError(t, err)

	for _, cfg := range []component.Configuration{
		{ID: "sc-b", Name: "sc", Partition: "p1", HostName: "node-b", Port: 8773},
		{Name: "sc", Partition: "p1", HostName: "node-b", Port: 8773},
	} {
		self, err := buildServiceAs(t, f, "storage", &cfg, staticProber(true))
		require.NoError(t, err)
		require.True(t, self.IsLocal())

		peer, err := buildService(t, f, "storage", &cfg)
		require.NoError(t, err)
		require.False(t, peer.IsLocal())
		require.NotEqual(t, self.Name(), peer.Name())

		d, ok := peer.Dispatcher().(*RemoteDispatcher)
		require.True(t, ok)
		assert.Equal(t, Subject(DefaultSubjectPrefix, self), d.Subject())
	}
}

func TestLocalDispatch(t *testing.T) {
	f, err := NewFactory(nil)
	require.NoError(t, err)

	s, err := buildService(t, f, "storage", &component.Configuration{Name: "sc", Partition: "p1", Local: true})
	require.NoError(t, err)
	d := s.Dispatcher()
	require.IsType(t, &LocalDispatcher{}, d)

	_, err = d.Dispatch(context.Background(), &component.Message{Action: "Describe"})
	assert.True(t, xerrors.Is(err, ErrNoHandler), "no handler registered yet")

	f.Handle("storage", echo)
	reply, err := d.Dispatch(context.Background(), &component.Message{Action: "Describe", Body: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "DescribeResponse", reply.Action)
	assert.Equal(t, []byte("x"), reply.Body)

	_, err = d.Dispatch(context.Background(), nil)
	assert.True(t, xerrors.Is(err, ErrNilMessage))

	require.NoError(t, d.Close())
	_, err = d.Dispatch(context.Background(), &component.Message{Action: "Describe"})
	assert.True(t, xerrors.Is(err, ErrClosed))
}

func TestLocalDispatch_HandlerError(t *testing.T) {
	f, err := NewFactory(nil)
	require.NoError(t, err)
	boom := errors.New("boom")
	f.Handle("storage", HandlerFunc(func(context.Context, *component.Message) (*component.Message, error) {
		return nil, boom
	}))

	s, err := buildService(t, f, "storage", &component.Configuration{Name: "sc", Local: true})
	require.NoError(t, err)
	_, err = s.Dispatcher().Dispatch(context.Background(), &component.Message{Action: "A"})
	assert.ErrorIs(t, err, boom)
}

func TestBuild_RemoteWithoutTransport(t *testing.T) {
	f, err := NewFactory(nil)
	require.NoError(t, err)

	_, err = buildService(t, f, "storage", &component.Configuration{Name: "sc", Partition: "p1", HostName: "10.0.0.9", Port: 8773})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrTransportUnavailable))
}

func TestRemoteDispatch_NotConnectedTripsBreaker(t *testing.T) {
	nc, err := connector.NewNATS(&connector.NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)

	f, err := NewFactory(&Config{Breaker: BreakerConfig{MinimumRequests: 3, FailureRatio: 0.5, Timeout: time.Minute}}, WithNATS(nc))
	require.NoError(t, err)

	s, err := buildService(t, f, "storage", &component.Configuration{Name: "sc", Partition: "p1", HostName: "10.0.0.9", Port: 8773})
	require.NoError(t, err)
	d, ok := s.Dispatcher().(*RemoteDispatcher)
	require.True(t, ok)
	assert.Equal(t, "keystone.p1.storage.10_0_0_9", d.Subject())

	for i := 0; i < 3; i++ {
		_, err = d.Dispatch(context.Background(), &component.Message{Action: "A"})
		assert.True(t, xerrors.Is(err, ErrTransportUnavailable))
	}
	_, err = d.Dispatch(context.Background(), &component.Message{Action: "A"})
	assert.True(t, xerrors.Is(err, ErrOpenState))

	// 同一服务的新 Dispatcher 共用熔断器
	s2, err := buildService(t, f, "storage", &component.Configuration{Name: "sc", Partition: "p1", HostName: "10.0.0.9", Port: 8773})
	require.NoError(t, err)
	_, err = s2.Dispatcher().Dispatch(context.Background(), &component.Message{Action: "A"})
	assert.True(t, xerrors.Is(err, ErrOpenState))
}

func TestNewFactory_InvalidConfig(t *testing.T) {
	_, err := NewFactory(&Config{SubjectPrefix: "bad.prefix"})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	_, err = NewFactory(&Config{Breaker: BreakerConfig{FailureRatio: 2}})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}

func TestWithHeaders(t *testing.T) {
	msg := &component.Message{Action: "A", Headers: map[string]string{"k": "v"}}
	out := withHeaders(msg, map[string]string{"traceparent": "00-x"})

	assert.Equal(t, map[string]string{"k": "v", "traceparent": "00-x"}, out.Headers)
	assert.Equal(t, map[string]string{"k": "v"}, msg.Headers)
}

func TestRemoteDispatch_NATS(t *testing.T) {
	nc := testkit.NATSConnector(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, err := NewFactory(&Config{SubjectPrefix: "keystone-test"}, WithNATS(nc))
	require.NoError(t, err)

	host := "h" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	cfg := &component.Configuration{ID: testkit.NewID(), Name: "sc", Partition: "p1", HostName: host, Port: 8773}

	// 服务端用自己节点的视角（解析为本地），调用方解析为远程
	self, err := buildServiceAs(t, f, "storage", cfg, staticProber(true))
	require.NoError(t, err)
	require.True(t, self.IsLocal())

	s, err := buildService(t, f, "storage", cfg)
	require.NoError(t, err)
	require.False(t, s.IsLocal())

	srv, err := f.Serve(ctx, self, HandlerFunc(func(_ context.Context, msg *component.Message) (*component.Message, error) {
		if msg.Action == "Fail" {
			return nil, errors.New("volume busy")
		}
		return echo(context.Background(), msg)
	}))
	require.NoError(t, err)
	defer srv.Close()

	reply, err := s.Dispatcher().Dispatch(ctx, &component.Message{Action: "Describe", Body: []byte("payload")})
	require.NoError(t, err)
	assert.Equal(t, "DescribeResponse", reply.Action)
	assert.Equal(t, []byte("payload"), reply.Body)

	_, err = s.Dispatcher().Dispatch(ctx, &component.Message{Action: "Fail"})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrRemote))
	assert.Contains(t, err.Error(), "volume busy")

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())

	_, err = s.Dispatcher().Dispatch(ctx, &component.Message{Action: "Describe"})
	assert.True(t, xerrors.Is(err, ErrTransportUnavailable), "no responders after unsubscribe")
}
