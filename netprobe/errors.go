package netprobe

import "github.com/ceyewan/keystone/xerrors"

var (
	// ErrEmptyHost 主机名为空
	ErrEmptyHost = xerrors.Wrap(xerrors.ErrInvalidInput, "netprobe: empty host")

	// ErrNoAddress 主机名解析成功但没有任何地址
	ErrNoAddress = xerrors.Wrap(xerrors.ErrNotFound, "netprobe: host has no address")

	// ErrRateLimited 解析配额在超时前无法获得
	ErrRateLimited = xerrors.Wrap(xerrors.ErrUnavailable, "netprobe: lookup rate exceeded")
)
