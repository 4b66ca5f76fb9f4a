package registry

import "github.com/ceyewan/keystone/xerrors"

var (
	// ErrServiceNotFound 本实例未注册过该服务
	ErrServiceNotFound = xerrors.Wrap(xerrors.ErrNotFound, "registry: service")

	// ErrServiceAlreadyRegistered 同一 UUID 已由本实例注册
	ErrServiceAlreadyRegistered = xerrors.Wrap(xerrors.ErrAlreadyExists, "registry: service")

	// ErrInvalidServiceID ServiceID 缺少 UUID/Type，或包含 "/"
	ErrInvalidServiceID = xerrors.Wrap(xerrors.ErrInvalidInput, "registry: invalid service id")

	// ErrInvalidTTL 租约时长小于 1s
	ErrInvalidTTL = xerrors.Wrap(xerrors.ErrInvalidInput, "registry: invalid ttl")

	// ErrRegistryClosed Registry 已关闭
	ErrRegistryClosed = xerrors.Wrap(xerrors.ErrClosed, "registry")
)
