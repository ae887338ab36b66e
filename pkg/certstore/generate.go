package certstore

import (
	"crypto/rand"
	"crypto/rsa"
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

const leafValidity = 365 * 24 * time.Hour

// Generate writes a fresh CA, server leaf, and client leaf to dir, each as a
// fixed-name PEM file. dir is created if it does not already exist. An
// existing store in dir is overwritten.
func Generate(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("certstore: create %s: %w", dir, err)
	}

	caKey, caCert, err := generateCA()
	if err != nil {
		return err
	}
	if err := writePEMCert(dir, caCertFile, caCert.Raw); err != nil {
		return err
	}

	if err := generateLeaf(dir, serverCertFile, serverKeyFile, "Rex Server", caCert, caKey, []string{"localhost"}, []net.IP{
		net.ParseIP("127.0.0.1"), net.ParseIP("::1"),
	}); err != nil {
		return err
	}

	if err := generateLeaf(dir, clientCertFile, clientKeyFile, "Rex Client", caCert, caKey, nil, nil); err != nil {
		return err
	}

	return nil
}

func generateCA() (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("certstore: generate CA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, nil, fmt.Errorf("certstore: serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "Rex CA",
			Organization: []string{"Rex"},
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(leafValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("certstore: sign CA: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("certstore: parse CA: %w", err)
	}
	return key, cert, nil
}

func generateLeaf(dir, certFile, keyFile, commonName string, caCert *x509.Certificate, caKey *rsa.PrivateKey, dnsNames []string, ips []net.IP) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("certstore: generate %s key: %w", commonName, err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return fmt.Errorf("certstore: serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Rex"},
		},
		DNSNames:    dnsNames,
		IPAddresses: ips,
		NotBefore:   now.Add(-5 * time.Minute),
		NotAfter:    now.Add(leafValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("certstore: sign %s: %w", commonName, err)
	}

	if err := writePEMCert(dir, certFile, certDER); err != nil {
		return err
	}
	return writePEMKey(dir, keyFile, key)
}

func writePEMCert(dir, name string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("certstore: write %s: %w", name, err)
	}
	return nil
}

func writePEMKey(dir, name string, key *rsa.PrivateKey) error {
	data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return fmt.Errorf("certstore: write %s: %w", name, err)
	}
	return nil
}
