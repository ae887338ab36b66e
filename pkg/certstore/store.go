// Package certstore loads and generates the five fixed PEM files rex uses
// for mTLS: a CA trust anchor and a leaf certificate/key pair for each side
// of the connection.
package certstore

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/azazo1/rex/internal/errx"
)

const (
	caCertFile     = "ca_cert.crt"
	serverCertFile = "server_cert.crt"
	serverKeyFile  = "server_secret.pem"
	clientCertFile = "client_cert.crt"
	clientKeyFile  = "client_secret.pem"
)

// Store is the set of PEM material read from a certificate directory: the
// CA pool and the leaf pair of the side that was loaded (the server leaf for
// LoadServer, the client leaf for LoadClient). The other side's leaf files
// are not read.
type Store struct {
	CAPool *x509.CertPool
	Leaf   tls.Certificate
}

// LoadServer reads the CA and the server leaf pair from dir.
func LoadServer(dir string) (*Store, error) {
	return load(dir, serverCertFile, serverKeyFile)
}

// LoadClient reads the CA and the client leaf pair from dir.
func LoadClient(dir string) (*Store, error) {
	return load(dir, clientCertFile, clientKeyFile)
}

func load(dir, certFile, keyFile string) (*Store, error) {
	caPEM, err := readFile(dir, caCertFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errx.With(ErrInvalidPEM, ": %s", filepath.Join(dir, caCertFile))
	}

	certPEM, err := readFile(dir, certFile)
	if err != nil {
		return nil, err
	}
	keyPEM, err := readFile(dir, keyFile)
	if err != nil {
		return nil, err
	}
	leaf, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errx.Wrap(ErrInvalidPEM, err)
	}

	return &Store{CAPool: pool, Leaf: leaf}, nil
}

func readFile(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errx.With(ErrMissingFile, ": %s", filepath.Join(dir, name))
		}
		return nil, fmt.Errorf("certstore: read %s: %w", filepath.Join(dir, name), err)
	}
	return data, nil
}

// ServerTLSConfig builds a tls.Config for grpc/credentials.NewTLS that
// presents the server leaf and requires a client certificate signed by the
// configured CA.
func (s *Store) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{s.Leaf},
		ClientCAs:    s.CAPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

// ClientTLSConfig builds a tls.Config for grpc/credentials.NewTLS that
// presents the client leaf and verifies the server against the configured
// CA. serverName must match a SAN on the server leaf (localhost, 127.0.0.1
// or ::1 for certificates rex itself generates).
func (s *Store) ClientTLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{s.Leaf},
		RootCAs:      s.CAPool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}
}
