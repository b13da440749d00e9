package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	pool, err := NewPool()
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if pool.TLSConfig().RootCAs == nil {
		t.Fatal("TLSConfig() has no root pool")
	}
	if pool.Added() != 0 {
		t.Errorf("Added() = %d, want 0", pool.Added())
	}
}

func TestAddCertPEM(t *testing.T) {
	pool := newPool(t)

	data := append(generateTestCertPEM(t), generateTestCertPEM(t)...)
	if err := pool.AddCertPEM(data); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
	if pool.Added() != 2 {
		t.Errorf("Added() = %d, want 2", pool.Added())
	}
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := newPool(t)

	if err := pool.AddCertPEM(nil); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddCertPEM(nil) error = %v, want %v", err, ErrNoCertsFound)
	}

	key := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("not a cert")})
	if err := pool.AddCertPEM(key); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddCertPEM(key) error = %v, want %v", err, ErrNoCertsFound)
	}
}

func TestAddCertPEM_Invalid(t *testing.T) {
	pool := newPool(t)

	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	err := pool.AddCertPEM(bad)
	if err == nil || errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddCertPEM() error = %v, want parse error", err)
	}
}

func TestAddCertFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(path, generateTestCertPEM(t), 0o600); err != nil {
		t.Fatal(err)
	}

	pool := newPool(t)
	if err := pool.AddCertFile(path); err != nil {
		t.Fatalf("AddCertFile() error = %v", err)
	}

	if err := pool.AddCertFile(filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("AddCertFile(missing) expected error")
	}
}

func TestTLSConfig_TrustsServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pool := newPool(t)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := pool.AddCertPEM(certPEM); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}

	cfg := pool.TLSConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func newPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := NewPool()
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	return pool
}

func generateTestCertPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatal(err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "bankline test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
