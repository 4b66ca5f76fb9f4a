package component

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ceyewan/keystone/xerrors"
)

// Service 服务描述符：构造完成后名称、全名、位置和 Dispatcher 都不再改变，
// 可被多个 goroutine 无锁读取。
type Service struct {
	name        string
	fullName    FullName
	id          Identity
	cfg         Configuration
	endpoint    Endpoint
	dispatcher  Dispatcher
	registry    Registry
	credentials CredentialProvider

	// state 远程服务自身持有的状态。目前固定以 StateEnabled 初始化，
	// 远程健康上报尚未接入，只能通过 SetState 手动更新。
	state atomic.Int32
}

// Name 形如 <type>@localhost 或 <type>@<host>
func (s *Service) Name() string {
	return s.name
}

func (s *Service) FullName() FullName {
	return s.fullName
}

// Partition 来自全名
func (s *Service) Partition() string {
	return s.fullName.Partition
}

func (s *Service) Identity() Identity {
	return s.id
}

// Configuration 返回构造时的配置快照副本
func (s *Service) Configuration() Configuration {
	return s.cfg
}

func (s *Service) Endpoint() Endpoint {
	return s.endpoint
}

func (s *Service) IsLocal() bool {
	return s.endpoint.IsLocal()
}

func (s *Service) URI() *url.URL {
	return s.endpoint.URI()
}

func (s *Service) Host() string {
	return s.endpoint.uri.Hostname()
}

// Port URI 中没有端口时返回 0
func (s *Service) Port() int {
	p, err := strconv.Atoi(s.endpoint.uri.Port())
	if err != nil {
		return 0
	}
	return p
}

func (s *Service) Dispatcher() Dispatcher {
	return s.dispatcher
}

// Parent 每次调用都重新查找所属组件
func (s *Service) Parent() (Component, error) {
	return s.registry.Lookup(s.id)
}

// State 返回服务的有效状态。
//
// 配置声明本地时委托给所属组件的当前状态，每次现查不缓存，
// 组件查不到时返回错误；否则返回服务自身持有的状态。
func (s *Service) State() (State, error) {
	if s.cfg.IsLocal() {
		parent, err := s.Parent()
		if err != nil {
			return StateBroken, xerrors.Wrapf(err, "state of %s", s.name)
		}
		return parent.State(), nil
	}
	return State(s.state.Load()), nil
}

// SetState 更新服务自身持有的状态，对配置声明本地的服务无效果
func (s *Service) SetState(state State) {
	s.state.Store(int32(state))
}

// ServiceID 构建对外标识。URI 取配置地址而不是解析后的端点，
// 否则本机解析为本地的服务会发布 127.0.0.1。
func (s *Service) ServiceID() ServiceID {
	return NewServiceID(&s.cfg, s.id.Name(), s.cfg.URI(s.id))
}

// Keys 透传凭证提供者的密钥
func (s *Service) Keys() (crypto.Signer, error) {
	creds, err := s.creds()
	if err != nil {
		return nil, err
	}
	return creds.Key, nil
}

// Certificate 透传凭证提供者的证书
func (s *Service) Certificate() (*x509.Certificate, error) {
	creds, err := s.creds()
	if err != nil {
		return nil, err
	}
	return creds.Certificate, nil
}

func (s *Service) creds() (*Credentials, error) {
	if s.credentials == nil {
		return nil, ErrNoCredentialProvider
	}
	creds, err := s.credentials.Credentials(s.id)
	if err != nil {
		return nil, xerrors.Wrapf(err, "credentials for %s", s.id.Name())
	}
	return creds, nil
}

// String 多行诊断信息，每行一组字段
func (s *Service) String() string {
	return fmt.Sprintf("Service %s name=%s endpoint=%s\nService %s name=%s serviceConfiguration=%s\nService %s name=%s fullName=%s",
		s.id.Name(), s.name, s.endpoint,
		s.id.Name(), s.name, &s.cfg,
		s.id.Name(), s.name, s.fullName)
}

// Details 按行拆分 String，供运维状态展示
func (s *Service) Details() []string {
	return strings.Split(s.String(), "\n")
}
