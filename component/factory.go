package component

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/metrics"
	"github.com/ceyewan/keystone/xerrors"
)

const tracerName = "github.com/ceyewan/keystone/component"

// Factory 持有 Service 构造所需的协作者，适合批量构造服务。
type Factory struct {
	opts     *options
	tracer   oteltrace.Tracer
	resolved metrics.Counter
	failures metrics.Counter
}

// NewFactory 创建 Factory，Registry 和 DispatcherFactory 必须注入。
func NewFactory(opts ...Option) (*Factory, error) {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		return nil, xerrors.Wrap(ErrInvalidArgument, "registry is required")
	}
	if o.dispatchers == nil {
		return nil, xerrors.Wrap(ErrInvalidArgument, "dispatcher factory is required")
	}

	resolved, err := o.meter.Counter(
		"component_services_resolved_total",
		"Number of service descriptors built, by locality rule",
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create resolved counter")
	}
	failures, err := o.meter.Counter(
		"component_probe_failures_total",
		"Number of locality probes that failed open to local",
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create probe failure counter")
	}

	return &Factory{
		opts:     o,
		tracer:   otel.Tracer(tracerName),
		resolved: resolved,
		failures: failures,
	}, nil
}

// NewService 用一次性的 Factory 构造服务
func NewService(ctx context.Context, id Identity, cfg *Configuration, opts ...Option) (*Service, error) {
	f, err := NewFactory(opts...)
	if err != nil {
		return nil, err
	}
	return f.NewService(ctx, id, cfg)
}

// NewService 解析服务位置、冻结身份字段并绑定 Dispatcher。
//
// 可能阻塞在一次网络探测上；探测失败按本地处理，永远不会因此失败。
// 组件查找失败或 Dispatcher 构建失败时返回错误。
func (f *Factory) NewService(ctx context.Context, id Identity, cfg *Configuration) (*Service, error) {
	if id == nil || cfg == nil {
		return nil, xerrors.Wrap(ErrInvalidArgument, "identity and configuration are required")
	}

	ctx, span := f.tracer.Start(ctx, "component.NewService",
		oteltrace.WithAttributes(attribute.String("component", id.Name())))
	defer span.End()

	snapshot := *cfg
	res := f.resolve(ctx, id, &snapshot)

	logger := f.opts.logger.With(
		clog.String("component", id.Name()),
		clog.String("service", res.name))

	if res.probeErr != nil {
		f.failures.Inc(ctx, metrics.L(metrics.LabelComponent, id.Name()))
		logger.WarnContext(ctx, "locality probe failed, treating service as local",
			clog.String("host", snapshot.HostName),
			clog.Error(res.probeErr))
	}

	span.SetAttributes(
		attribute.String("service.name", res.name),
		attribute.Bool("service.local", res.endpoint.IsLocal()),
		attribute.String("locality.rule", string(res.rule)))

	s := &Service{
		name:        res.name,
		fullName:    id.FullName(&snapshot),
		id:          id,
		cfg:         snapshot,
		endpoint:    res.endpoint,
		registry:    f.opts.registry,
		credentials: f.opts.credentials,
	}
	s.state.Store(int32(StateEnabled))

	owner, err := f.opts.registry.Lookup(id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "component lookup failed")
		return nil, xerrors.Wrapf(err, "lookup component for %s", res.name)
	}

	dispatcher, err := f.opts.dispatchers.Build(owner, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatcher build failed")
		logger.ErrorContext(ctx, "failed to build dispatcher", clog.Error(err))
		return nil, xerrors.Wrapf(err, "build dispatcher for %s", res.name)
	}
	s.dispatcher = dispatcher

	f.resolved.Inc(ctx,
		metrics.L(metrics.LabelComponent, id.Name()),
		metrics.L("rule", string(res.rule)))

	logger.DebugContext(ctx, "service resolved",
		clog.Bool("local", res.endpoint.IsLocal()),
		clog.String("uri", res.endpoint.URI().String()),
		clog.String("rule", string(res.rule)))

	return s, nil
}
