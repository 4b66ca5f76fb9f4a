package connector

import "github.com/ceyewan/keystone/xerrors"

var (
	ErrNotConnected = xerrors.Wrap(xerrors.ErrUnavailable, "connector: not connected")
	ErrClosed       = xerrors.Wrap(xerrors.ErrClosed, "connector")
	ErrConnection   = xerrors.Wrap(xerrors.ErrUnavailable, "connector: connection failed")
	ErrConfig       = xerrors.Wrap(xerrors.ErrInvalidInput, "connector: invalid config")
	ErrHealthCheck  = xerrors.New("connector: health check failed")
)
