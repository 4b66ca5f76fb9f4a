package config

import "github.com/ceyewan/keystone/xerrors"

// ErrValidationFailed 配置验证失败
var ErrValidationFailed = xerrors.Wrap(xerrors.ErrInvalidInput, "config: validation failed")

// IsNotFound 是否为配置未找到
func IsNotFound(err error) bool {
	return xerrors.Is(err, xerrors.ErrNotFound)
}

// IsInvalidInput 是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput)
}
