package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"salesdesk/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestListenAddr(t *testing.T) {
	require.Equal(t, ":8080", listenAddr(""))
	require.Equal(t, ":9000", listenAddr("9000"))
	require.Equal(t, "127.0.0.1:9000", listenAddr("127.0.0.1:9000"))
}

func writeKeyPair(t *testing.T, dir, cn string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "tls.crt")
	keyPath := filepath.Join(dir, "tls.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestNewHttpServerTLS(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeKeyPair(t, dir, "first")

	cfg := &config.Config{}
	cfg.Server.Addr = "8443"
	cfg.TLS.Enable = true
	cfg.TLS.CertPath = certPath
	cfg.TLS.KeyPath = keyPath

	srv, err := NewHttpServer(Params{Config: cfg, Handler: gin.New()})
	require.NoError(t, err)
	require.Equal(t, ":8443", srv.server.Addr)

	cert, err := srv.certs.get(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	require.Equal(t, "first", leaf.Subject.CommonName)

	writeKeyPair(t, dir, "second")
	require.NoError(t, srv.certs.reload())
	cert, err = srv.certs.get(nil)
	require.NoError(t, err)
	leaf, err = x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	require.Equal(t, "second", leaf.Subject.CommonName)

	srv.certs.stop()
	srv.certs.stop()
}

func TestNewHttpServerRejectsMissingCert(t *testing.T) {
	cfg := &config.Config{}
	cfg.TLS.Enable = true
	cfg.TLS.CertPath = filepath.Join(t.TempDir(), "missing.crt")
	cfg.TLS.KeyPath = filepath.Join(t.TempDir(), "missing.key")

	_, err := NewHttpServer(Params{Config: cfg, Handler: gin.New()})
	require.Error(t, err)
}
