package component

import (
	"context"
	"crypto"
	"crypto/x509"
)

// Component 运行中的组件，State 由组件自身驱动，本包只读取。
type Component interface {
	State() State
	IsLocal() bool
}

// Registry 组件身份到运行中组件的映射。
//
// 通过构造参数注入，而不是访问全局表，测试可以替换为内存实现。
type Registry interface {
	// Lookup 查找身份对应的组件，未注册时返回包装了 ErrComponentNotFound 的错误
	Lookup(id Identity) (Component, error)

	// LookupName 按组件类型名查找
	LookupName(name string) (Component, error)
}

// Prober 网络可达性探测：host 是否指向本机。
// 超时由实现自行控制，本包不再加一层。
type Prober interface {
	TestLocal(ctx context.Context, host string) (bool, error)
}

// Message 派发给服务的消息
type Message struct {
	Action  string            `msgpack:"action" json:"action"`
	Headers map[string]string `msgpack:"headers,omitempty" json:"headers,omitempty"`
	Body    []byte            `msgpack:"body,omitempty" json:"body,omitempty"`
}

// Dispatcher 与服务实例通信的消息通道
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *Message) (*Message, error)
	Close() error
}

// DispatcherFactory 按 (组件, 服务) 构建 Dispatcher，构建失败会使 NewService 失败。
type DispatcherFactory interface {
	Build(c Component, s *Service) (Dispatcher, error)
}

// Credentials 组件的密钥对与证书
type Credentials struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
}

// CredentialProvider 按身份提供凭证，Service 只做透传
type CredentialProvider interface {
	Credentials(id Identity) (*Credentials, error)
}
