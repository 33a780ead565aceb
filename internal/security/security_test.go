package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatalf("decode %s", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return cert
}

// setupPKI creates a CA, a server certificate and a client certificate.
func setupPKI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := GenerateCA(dir, 30); err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	if err := GenerateServerCert(dir, "server", dir, 30, []string{"secdash.local", "10.0.0.5"}); err != nil {
		t.Fatalf("GenerateServerCert: %v", err)
	}
	if err := GenerateClientCert(dir, "uploader", dir, 30); err != nil {
		t.Fatalf("GenerateClientCert: %v", err)
	}
	return dir
}

func TestGenerateCA(t *testing.T) {
	dir := t.TempDir()
	if err := GenerateCA(dir, 0); err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}

	cert := readCert(t, filepath.Join(dir, "ca.crt"))
	if !cert.IsCA || cert.Subject.CommonName != "secdash CA" {
		t.Errorf("CA = IsCA %v CN %q", cert.IsCA, cert.Subject.CommonName)
	}

	info, err := os.Stat(filepath.Join(dir, "ca.key"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("ca.key permissions = %o, want 0600", info.Mode().Perm())
	}

	caCert, key, err := LoadCA(dir)
	if err != nil {
		t.Fatalf("LoadCA: %v", err)
	}
	if !caCert.IsCA || key == nil {
		t.Error("LoadCA returned incomplete CA")
	}
}

func TestLoadCA_Missing(t *testing.T) {
	if _, _, err := LoadCA(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestGenerateServerCert(t *testing.T) {
	dir := setupPKI(t)
	caCert := readCert(t, filepath.Join(dir, "ca.crt"))
	cert := readCert(t, filepath.Join(dir, "server.crt"))

	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	for _, host := range []string{"secdash.local", "localhost", "10.0.0.5", "127.0.0.1"} {
		if _, err := cert.Verify(x509.VerifyOptions{DNSName: host, Roots: roots}); err != nil {
			t.Errorf("verify for %s: %v", host, err)
		}
	}
	if _, err := cert.Verify(x509.VerifyOptions{DNSName: "other.example", Roots: roots}); err == nil {
		t.Error("certificate valid for unlisted host")
	}
}

func TestGenerateClientCert(t *testing.T) {
	dir := setupPKI(t)
	cert := readCert(t, filepath.Join(dir, "uploader.crt"))
	if cert.Subject.CommonName != "uploader" {
		t.Errorf("CN = %q", cert.Subject.CommonName)
	}
	if len(cert.ExtKeyUsage) != 1 || cert.ExtKeyUsage[0] != x509.ExtKeyUsageClientAuth {
		t.Errorf("ExtKeyUsage = %v", cert.ExtKeyUsage)
	}
	if err := GenerateClientCert(dir, "", dir, 30); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestServerTLSConfig_Load(t *testing.T) {
	dir := setupPKI(t)

	cfg := &ServerTLSConfig{
		CertFile: filepath.Join(dir, "server.crt"),
		KeyFile:  filepath.Join(dir, "server.key"),
	}
	tlsCfg, err := cfg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tlsCfg.ClientAuth != tls.NoClientCert || tlsCfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("config = %+v", tlsCfg)
	}

	cfg.ClientCAFile = filepath.Join(dir, "ca.crt")
	tlsCfg, err = cfg.Load()
	if err != nil {
		t.Fatalf("Load with client CA: %v", err)
	}
	if tlsCfg.ClientAuth != tls.RequireAndVerifyClientCert || tlsCfg.ClientCAs == nil {
		t.Errorf("mTLS not enabled: %+v", tlsCfg.ClientAuth)
	}

	cfg.ClientCAFile = filepath.Join(dir, "server.key")
	if _, err := cfg.Load(); err == nil {
		t.Error("expected error for client CA without certificates")
	}
	if _, err := (&ServerTLSConfig{CertFile: "missing.crt", KeyFile: "missing.key"}).Load(); err == nil {
		t.Error("expected error for missing certificate")
	}
}

func TestMutualTLSHandshake(t *testing.T) {
	dir := setupPKI(t)
	serverCfg, err := (&ServerTLSConfig{
		CertFile:     filepath.Join(dir, "server.crt"),
		KeyFile:      filepath.Join(dir, "server.key"),
		ClientCAFile: filepath.Join(dir, "ca.crt"),
	}).Load()
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	}))
	srv.TLS = serverCfg
	srv.StartTLS()
	defer srv.Close()

	withCert, err := ClientTLS(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "uploader.crt"), filepath.Join(dir, "uploader.key"))
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: withCert}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request with client cert: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	noCert, err := ClientTLS(filepath.Join(dir, "ca.crt"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	client = &http.Client{Transport: &http.Transport{TLSClientConfig: noCert}}
	if resp, err := client.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Error("request without client cert succeeded")
	}
}
