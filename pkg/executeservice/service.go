// Package executeservice is the gRPC-facing server shell: it accepts one
// Execute stream per call and delegates the process lifecycle to a fresh
// caller.ProgramCaller.
package executeservice

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/azazo1/rex/pkg/caller"
	"github.com/azazo1/rex/pkg/resolver"
	"github.com/azazo1/rex/pkg/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// outboundCapacity is the bound on the per-call response channel.
const outboundCapacity = 30

// Server implements wire.ExecuteServer.
type Server struct {
	Logger *slog.Logger
}

// New builds a Server. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Logger: logger}
}

// Execute runs one call to completion: Parse the initial Command, then run
// it, forwarding every ProgramOutput to the stream as it is produced. A
// Parse or CallProgram error becomes the RPC's terminal status.
func (s *Server) Execute(stream wire.ExecuteExecuteServer) error {
	callID := uuid.New().String()[:8]
	log := s.Logger.With("call", callID)

	out := make(chan *wire.ProgramOutput, outboundCapacity)
	done := make(chan error, 1)

	go func() {
		defer close(out)
		pc, err := caller.Parse(stream)
		if err != nil {
			done <- err
			return
		}
		log.Info("execute: command resolved", "executable", pc.Executable, "leak", pc.Leak)
		done <- pc.CallProgram(stream.Context(), out)
	}()

	for msg := range out {
		if err := stream.Send(msg); err != nil {
			log.Warn("execute: send to client failed", "error", err)
			return err
		}
	}

	if err := <-done; err != nil {
		log.Warn("execute: call failed", "error", err)
		return statusFor(err)
	}
	log.Info("execute: call complete")
	return nil
}

// statusFor maps the core's sentinel errors onto the gRPC status codes the
// spec assigns them; anything unrecognized becomes Internal.
func statusFor(err error) error {
	switch {
	case errors.Is(err, caller.ErrBadFirstChunk):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, resolver.ErrRelativePath):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, resolver.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, caller.ErrNoCurrentDir):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, caller.ErrSpawn):
		return status.Error(codes.Unknown, err.Error())
	case errors.Is(err, caller.ErrStdinWrite):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
