// Package credential 为每个组件类型签发密钥对和自签名证书。
//
// 凭证按身份名懒加载并缓存，同一进程内同一组件类型总是拿到同一份凭证。
package credential

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/xerrors"
)

// DefaultValidity 证书默认有效期
const DefaultValidity = 365 * 24 * time.Hour

// serialLimit 证书序列号上限，128 位
var serialLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// Provider 实现 component.CredentialProvider，并发安全
type Provider struct {
	validity     time.Duration
	organization string
	rand         io.Reader
	now          func() time.Time
	logger       clog.Logger

	mu    sync.Mutex
	creds map[string]*component.Credentials
}

var _ component.CredentialProvider = (*Provider)(nil)

// NewProvider 创建凭证提供者
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		validity:     DefaultValidity,
		organization: "keystone",
		rand:         rand.Reader,
		now:          time.Now,
		logger:       clog.Discard(),
		creds:        make(map[string]*component.Credentials),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Credentials 返回身份对应的凭证，首次调用时生成
func (p *Provider) Credentials(id component.Identity) (*component.Credentials, error) {
	if id == nil || id.Name() == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "credential: identity is required")
	}
	name := id.Name()

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.creds[name]; ok {
		return c, nil
	}

	c, err := p.issue(name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "credential: issue for %s", name)
	}
	p.creds[name] = c
	p.logger.Info("issued component credentials",
		clog.String("component", name),
		clog.Time("not_after", c.Certificate.NotAfter))
	return c, nil
}

// Forget 丢弃缓存的凭证，下次调用会重新签发
func (p *Provider) Forget(name string) {
	p.mu.Lock()
	delete(p.creds, name)
	p.mu.Unlock()
}

func (p *Provider) issue(name string) (*component.Credentials, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), p.rand)
	if err != nil {
		return nil, xerrors.Wrap(err, "generate key")
	}

	serial, err := rand.Int(p.rand, serialLimit)
	if err != nil {
		return nil, xerrors.Wrap(err, "generate serial")
	}

	notBefore := p.now().Add(-time.Minute)
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   name,
			Organization: []string{p.organization},
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(p.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true, // 叶子证书，不签发下级
		DNSNames:              []string{name},
	}

	der, err := x509.CreateCertificate(p.rand, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, xerrors.Wrap(err, "create certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse certificate")
	}

	return &component.Credentials{Key: key, Certificate: cert}, nil
}
