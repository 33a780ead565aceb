// Package security issues certificates for the HTTPS listener and builds
// its TLS configuration.
package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultCAValidDays is the default CA certificate validity (10 years).
	DefaultCAValidDays = 3650
	// DefaultCertValidDays is the default certificate validity (1 year).
	DefaultCertValidDays = 365

	organization = "secdash"
)

// GenerateCA writes a new self-signed CA to outputDir as ca.crt and ca.key.
func GenerateCA(outputDir string, validDays int) error {
	if validDays <= 0 {
		validDays = DefaultCAValidDays
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}
	template, err := newTemplate("secdash CA", validDays)
	if err != nil {
		return err
	}
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature
	template.BasicConstraintsValid = true
	template.IsCA = true
	template.MaxPathLen = 1

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return writePair(outputDir, "ca", der, key)
}

// LoadCA loads ca.crt and ca.key from caDir.
func LoadCA(caDir string) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	certPEM, err := os.ReadFile(filepath.Join(caDir, "ca.crt"))
	if err != nil {
		return nil, nil, fmt.Errorf("read CA certificate: %w", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, nil, fmt.Errorf("invalid CA certificate PEM")
	}
	caCert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse CA certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(filepath.Join(caDir, "ca.key"))
	if err != nil {
		return nil, nil, fmt.Errorf("read CA private key: %w", err)
	}
	block, _ = pem.Decode(keyPEM)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, nil, fmt.Errorf("invalid CA private key PEM")
	}
	caKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse CA private key: %w", err)
	}
	return caCert, caKey, nil
}

// GenerateServerCert writes name.crt and name.key for the HTTPS
// listener, signed by the CA in caDir. Loopback names are always in the
// SAN list.
func GenerateServerCert(caDir, name, outputDir string, validDays int, hosts []string) error {
	hosts = appendUnique(hosts, "localhost", "127.0.0.1", "::1")
	return issue(caDir, name, outputDir, validDays, hosts, x509.ExtKeyUsageServerAuth)
}

// GenerateClientCert writes name.crt and name.key for a client allowed
// through mutual TLS, such as an upload script.
func GenerateClientCert(caDir, name, outputDir string, validDays int) error {
	return issue(caDir, name, outputDir, validDays, nil, x509.ExtKeyUsageClientAuth)
}

func issue(caDir, name, outputDir string, validDays int, hosts []string, usage x509.ExtKeyUsage) error {
	if name == "" {
		return fmt.Errorf("certificate name is required")
	}
	if validDays <= 0 {
		validDays = DefaultCertValidDays
	}

	caCert, caKey, err := LoadCA(caDir)
	if err != nil {
		return fmt.Errorf("load CA: %w", err)
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}

	template, err := newTemplate(name, validDays)
	if err != nil {
		return err
	}
	template.KeyUsage = x509.KeyUsageDigitalSignature
	template.ExtKeyUsage = []x509.ExtKeyUsage{usage}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return writePair(outputDir, name, der, key)
}

func newTemplate(commonName string, validDays int) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}
	now := time.Now()
	return &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{organization}, CommonName: commonName},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.AddDate(0, 0, validDays),
	}, nil
}

// writePair writes base.crt (0644) and base.key (0600) into dir.
func writePair(dir, base string, der []byte, key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	if err := writePEM(filepath.Join(dir, base+".crt"), 0644, "CERTIFICATE", der); err != nil {
		return err
	}
	return writePEM(filepath.Join(dir, base+".key"), 0600, "EC PRIVATE KEY", keyDER)
}

func writePEM(path string, perm os.FileMode, typ string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := pem.Encode(f, &pem.Block{Type: typ, Bytes: der}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func appendUnique(slice []string, items ...string) []string {
	seen := make(map[string]bool)
	for _, s := range slice {
		seen[s] = true
	}
	for _, item := range items {
		if !seen[item] {
			slice = append(slice, item)
			seen[item] = true
		}
	}
	return slice
}
