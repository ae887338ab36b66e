package executor

import (
	"net"
	"strings"

	"github.com/azazo1/rex/internal/errx"
	"github.com/azazo1/rex/pkg/certstore"
	"github.com/azazo1/rex/pkg/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Client is a connected executor channel. It is safe for one call at a
// time; the protocol has no notion of multiplexed calls on one Client.
type Client struct {
	conn   *grpc.ClientConn
	client wire.ExecuteClient
}

// Connect dials address (an "https://host:port" or bare "host:port" rex
// server address) with mTLS, presenting the client leaf from certDir and
// verifying the server against the CA in the same directory.
func Connect(address, certDir string) (*Client, error) {
	target, serverName, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	store, err := certstore.LoadClient(certDir)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(credentials.NewTLS(store.ClientTLSConfig(serverName))))
	if err != nil {
		return nil, errx.Wrap(ErrDial, err)
	}

	return &Client{conn: conn, client: wire.NewExecuteClient(conn)}, nil
}

// Close tears down the underlying channel.
func (c *Client) Close() error {
	return c.conn.Close()
}

// parseAddress strips an optional "https://" scheme and splits the
// remaining host:port so the host can double as the TLS ServerName.
func parseAddress(address string) (target, serverName string, err error) {
	target = strings.TrimPrefix(address, "https://")
	host, _, err := net.SplitHostPort(target)
	if err != nil {
		return "", "", errx.Wrap(ErrDial, err)
	}
	return target, host, nil
}
