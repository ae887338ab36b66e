package executeservice

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/azazo1/rex/internal/errx"
	"github.com/azazo1/rex/pkg/certstore"
	"github.com/azazo1/rex/pkg/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Listen binds bindAddr and serves the Execute RPC over mTLS until the
// listener is closed or accept fails fatally. certDir must hold the server
// leaf and the CA that signs accepted client certificates.
func Listen(bindAddr, certDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := certstore.LoadServer(certDir)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return errx.Wrap(ErrListen, err)
	}

	creds := credentials.NewTLS(store.ServerTLSConfig())
	grpcServer := grpc.NewServer(grpc.Creds(creds))
	wire.RegisterExecuteServer(grpcServer, New(logger))

	logger.Info("rex server listening", "address", bindAddr)
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("executeservice: serve: %w", err)
	}
	return nil
}
