package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/xerrors"
)

func TestProvider_Issue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProvider(WithClock(func() time.Time { return now }), WithOrganization("acme"))

	creds, err := p.Credentials(component.NewComponentID("storage"))
	require.NoError(t, err)

	cert := creds.Certificate
	assert.Equal(t, "storage", cert.Subject.CommonName)
	assert.Equal(t, []string{"acme"}, cert.Subject.Organization)
	assert.True(t, now.Add(-time.Minute).Equal(cert.NotBefore))
	assert.True(t, now.Add(-time.Minute).Add(DefaultValidity).Equal(cert.NotAfter))
	// 自签名的叶子证书：CheckSignatureFrom 要求父证书是 CA，这里直接校验签名
	require.NoError(t, cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature))
	assert.False(t, cert.IsCA)
	assert.Equal(t, x509.KeyUsageDigitalSignature, cert.KeyUsage)
	assert.Zero(t, cert.KeyUsage&x509.KeyUsageCertSign)

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.True(t, pub.Equal(creds.Key.Public()))

	digest := sha256.Sum256([]byte("payload"))
	sig, err := creds.Key.Sign(rand.Reader, digest[:], crypto.SHA256)
	require.NoError(t, err)
	assert.True(t, ecdsa.VerifyASN1(pub, digest[:], sig))
}

func TestProvider_Cached(t *testing.T) {
	p := NewProvider()
	id := component.NewComponentID("walrus")

	var wg sync.WaitGroup
	results := make([]*component.Credentials, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Credentials(id)
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range results[1:] {
		assert.Same(t, results[0], c)
	}

	other, err := p.Credentials(component.NewComponentID("storage"))
	require.NoError(t, err)
	assert.NotSame(t, results[0], other)

	p.Forget("walrus")
	again, err := p.Credentials(id)
	require.NoError(t, err)
	assert.NotSame(t, results[0], again)
}

func TestProvider_Validity(t *testing.T) {
	p := NewProvider(WithValidity(time.Hour))
	creds, err := p.Credentials(component.NewComponentID("storage"))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, creds.Certificate.NotAfter.Sub(creds.Certificate.NotBefore))
}

func TestProvider_InvalidIdentity(t *testing.T) {
	p := NewProvider()
	_, err := p.Credentials(nil)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	_, err = p.Credentials(component.NewComponentID(""))
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}

func TestProvider_ServiceIntegration(t *testing.T) {
	components := component.NewComponents()
	require.NoError(t, components.Register("storage", component.NewStaticComponent("storage", true, component.StateEnabled)))

	p := NewProvider()
	s, err := component.NewService(t.Context(), component.NewComponentID("storage"),
		&component.Configuration{Name: "sc", Local: true},
		component.WithRegistry(components),
		component.WithDispatcherFactory(nopDispatchers{}),
		component.WithCredentialProvider(p))
	require.NoError(t, err)

	key, err := s.Keys()
	require.NoError(t, err)
	cert, err := s.Certificate()
	require.NoError(t, err)
	assert.True(t, cert.PublicKey.(*ecdsa.PublicKey).Equal(key.Public()))
}

type nopDispatchers struct{}

func (nopDispatchers) Build(component.Component, *component.Service) (component.Dispatcher, error) {
	return nil, nil
}
