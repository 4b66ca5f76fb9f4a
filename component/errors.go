package component

import "github.com/ceyewan/keystone/xerrors"

var (
	// ErrInvalidArgument 缺少 identity/configuration 或必需的协作者
	ErrInvalidArgument = xerrors.Wrap(xerrors.ErrInvalidInput, "component")

	// ErrComponentNotFound 组件未在 Registry 中注册
	ErrComponentNotFound = xerrors.Wrap(xerrors.ErrNotFound, "component")

	// ErrComponentRegistered 同名组件已注册
	ErrComponentRegistered = xerrors.Wrap(xerrors.ErrAlreadyExists, "component")

	// ErrNoCredentialProvider 未注入凭证提供者
	ErrNoCredentialProvider = xerrors.New("component: no credential provider")

	// ErrNoProber 未注入探测器；只会作为探测失败被兜底为本地，不会返回给调用方
	ErrNoProber = xerrors.New("component: no network prober")
)
