package connector

import (
	"context"

	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

// connMetrics 各连接器共用的连接指标，以 kind 区分
type connMetrics struct {
	attempts metrics.Counter
	active   metrics.Gauge
	labels   []metrics.Label
}

func newConnMetrics(meter metrics.Meter, kind, name string) (*connMetrics, error) {
	attempts, err := meter.Counter(
		"connector_connect_attempts_total",
		"Number of connection attempts by connector and result",
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect attempts counter")
	}
	active, err := meter.Gauge(
		"connector_active_connections",
		"Number of connections currently open",
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create active connections gauge")
	}
	return &connMetrics{
		attempts: attempts,
		active:   active,
		labels:   []metrics.Label{metrics.L("kind", kind), metrics.L("connector", name)},
	}, nil
}

func (m *connMetrics) attempt(ctx context.Context, err error) {
	result := metrics.OutcomeSuccess
	if err != nil {
		result = metrics.OutcomeError
	}
	m.attempts.Inc(ctx, append(m.labels, metrics.L(metrics.LabelResult, result))...)
}

func (m *connMetrics) setActive(ctx context.Context, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.active.Set(ctx, v, m.labels...)
}
