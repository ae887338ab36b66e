// Package executor is the client-side half of the execute protocol: it
// opens the streaming call, forwards local stdin, and surfaces the
// process's stdout, stderr, and exit code.
package executor

import (
	"context"
	"io"
	"log/slog"

	"github.com/azazo1/rex/pkg/wire"
)

// requestBufSize matches the fan-out read size on the server side so
// neither direction of the stream sees unusually large frames.
const requestBufSize = 1024

// requestChanCapacity bounds the outbound channel in streaming mode.
const requestChanCapacity = 10

// ExecuteOptions describes the call to make.
type ExecuteOptions struct {
	Executable string
	Args       []string
	CurrentDir *string
	Leak       bool
}

func (o ExecuteOptions) toCommand() *wire.Command {
	return &wire.Command{
		Executable: o.Executable,
		Args:       o.Args,
		CurrentDir: o.CurrentDir,
		Leak:       o.Leak,
	}
}

// ExecuteOutput is the accumulated result of a buffered Execute call.
type ExecuteOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int32
}

// Execute runs opts to completion, buffering all output in memory. No
// local stdin is forwarded; ExitCode defaults to -1 if the server never
// sends an ExitStatus.
func (c *Client) Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteOutput, error) {
	if opts.Executable == "" {
		return nil, ErrCommandRequired
	}

	stream, err := c.client.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := stream.Send(&wire.ExecuteRequestChunk{Command: opts.toCommand()}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	result := &ExecuteOutput{ExitCode: -1}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				return result, nil
			}
			return result, err
		}
		switch {
		case msg.StdoutChunk != nil:
			result.Stdout = append(result.Stdout, msg.StdoutChunk.Data...)
		case msg.StderrChunk != nil:
			result.Stderr = append(result.Stderr, msg.StderrChunk.Data...)
		case msg.ExitStatus != nil:
			result.ExitCode = msg.ExitStatus.Code
		}
	}
}

// ExecuteStream runs opts with live stdin forwarding and live stdout/stderr
// delivery. It returns the exit code, or nil if the call ended without one
// (the server-side leak path, or ctx being cancelled). Any other stream
// error, such as the call's failure status, is returned as the error.
// stdout and stderr are flushed after every
// write when they implement interface{ Flush() error }.
func (c *Client) ExecuteStream(ctx context.Context, opts ExecuteOptions, stdin io.Reader, stdout, stderr io.Writer, logger *slog.Logger) (*int32, error) {
	if opts.Executable == "" {
		return nil, ErrCommandRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	stream, err := c.client.Execute(ctx)
	if err != nil {
		return nil, err
	}

	requests := make(chan *wire.ExecuteRequestChunk, requestChanCapacity)
	sendDone := make(chan error, 1)
	go func() {
		var sendErr error
		for chunk := range requests {
			if sendErr != nil {
				continue
			}
			sendErr = stream.Send(chunk)
		}
		if sendErr == nil {
			sendErr = stream.CloseSend()
		}
		sendDone <- sendErr
	}()

	requests <- &wire.ExecuteRequestChunk{Command: opts.toCommand()}

	go func() {
		defer close(requests)
		buf := make([]byte, requestBufSize)
		for {
			n, err := stdin.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				requests <- &wire.ExecuteRequestChunk{StdinChunk: &wire.StdinChunk{Data: chunk}}
			}
			if err != nil {
				requests <- &wire.ExecuteRequestChunk{StdinChunk: &wire.StdinChunk{Data: []byte{}}}
				return
			}
		}
	}()

	stdoutFailed, stderrFailed := false, false
	var exitCode *int32
	var callErr error

	for {
		msg, err := stream.Recv()
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				callErr = err
			}
			break
		}
		switch {
		case msg.StdoutChunk != nil:
			if !stdoutFailed {
				if err := writeAndFlush(stdout, msg.StdoutChunk.Data); err != nil {
					logger.Warn("executor: local stdout write failed, discarding further output", "error", err)
					stdoutFailed = true
				}
			}
		case msg.StderrChunk != nil:
			if !stderrFailed {
				if err := writeAndFlush(stderr, msg.StderrChunk.Data); err != nil {
					logger.Warn("executor: local stderr write failed, discarding further output", "error", err)
					stderrFailed = true
				}
			}
		case msg.ExitStatus != nil:
			code := msg.ExitStatus.Code
			exitCode = &code
		}
	}

	<-sendDone
	return exitCode, callErr
}

type flusher interface {
	Flush() error
}

func writeAndFlush(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
