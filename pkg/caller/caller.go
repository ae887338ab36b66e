// Package caller implements the per-call process lifecycle: parse the
// initial command, spawn the child, fan stdout/stderr out to the response
// stream, fan stdin and control messages in from the request stream, and
// tear the child down according to the call's leak policy.
package caller

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/azazo1/rex/internal/errx"
	"github.com/azazo1/rex/pkg/resolver"
	"github.com/azazo1/rex/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// pollInterval is the fan-in loop's wakeup tick. It is not a call timeout;
// it exists only so child liveness can be rechecked while the request
// stream is otherwise idle.
const pollInterval = time.Second

// readBufSize is the read chunk size used for both stdout and stderr when
// fanning out to the response stream.
const readBufSize = 1024

// RequestReceiver is the inbound half of one call. It is satisfied by the
// server-side wrapper over a gRPC stream, and by a fake in tests.
type RequestReceiver interface {
	Recv() (*wire.ExecuteRequestChunk, error)
}

// ProgramCaller owns one call's child process from spawn to reap.
type ProgramCaller struct {
	Executable string
	CurrentDir string
	Args       []string
	Leak       bool

	recv RequestReceiver
}

// Parse reads the first request chunk, which must be a Command, and
// resolves it into a ProgramCaller ready to spawn. It does not start the
// child. Any error returned here is the call's terminal status; no output
// has been sent yet.
func Parse(recv RequestReceiver) (*ProgramCaller, error) {
	chunk, err := recv.Recv()
	if err != nil {
		return nil, errx.Wrap(ErrBadFirstChunk, err)
	}
	if chunk.Command == nil {
		return nil, ErrBadFirstChunk
	}
	cmd := chunk.Command

	path, err := resolver.Resolve(cmd.Executable)
	if err != nil {
		return nil, err
	}

	currentDir := ""
	if cmd.CurrentDir != nil {
		currentDir = *cmd.CurrentDir
	} else {
		dir := filepath.Dir(path)
		if dir == path {
			return nil, ErrNoCurrentDir
		}
		currentDir = dir
	}

	return &ProgramCaller{
		Executable: path,
		CurrentDir: currentDir,
		Args:       cmd.Args,
		Leak:       cmd.Leak,
		recv:       recv,
	}, nil
}

// CallProgram spawns the child and runs it to completion: fan-out of
// stdout/stderr, fan-in of stdin and control messages, and teardown. It
// returns once the call's response stream should be closed. ctx is the
// call's stream context; its cancellation is treated as transport loss.
func (c *ProgramCaller) CallProgram(ctx context.Context, out chan<- *wire.ProgramOutput) error {
	cmd := exec.Command(c.Executable, c.Args...)
	cmd.Dir = c.CurrentDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errx.Wrap(ErrSpawn, err)
	}

	// stdout/stderr are plumbed through pipes this call owns outright
	// instead of cmd.StdoutPipe()/StderrPipe(): os/exec documents that
	// Wait closes those pipes' read ends as soon as it sees the child
	// exit, and that it is incorrect to call Wait before all reads from
	// them have completed. Racing that close against fanOut's still
	// in-flight Reads below can truncate trailing output. An *os.File
	// handed to cmd.Stdout/cmd.Stderr directly is never touched by Wait,
	// so reaping the child concurrently with draining it is safe.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return errx.Wrap(ErrSpawn, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return errx.Wrap(ErrSpawn, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		return errx.Wrap(ErrSpawn, err)
	}
	// The parent's copies of the write ends must close now: the read ends
	// only see EOF once every write-end fd, including these, is closed.
	stdoutW.Close()
	stderrW.Close()

	waitDone := make(chan struct{})
	go func() {
		cmd.Wait()
		close(waitDone)
	}()

	// pipesDone closes once both fan-out tasks have drained their pipe to
	// EOF. emitExit waits on it so ExitStatus, once it reaches out, is
	// never followed by a stdout/stderr chunk that was merely queued
	// behind it.
	var pipesWG sync.WaitGroup
	pipesWG.Add(2)
	pipesDone := make(chan struct{})
	go func() {
		pipesWG.Wait()
		close(pipesDone)
	}()

	// The three sibling tasks (fan-out-stdout, fan-out-stderr, fan-in) are
	// tracked through an errgroup so CallProgram doesn't return, and the
	// caller doesn't close out, until all three have stopped writing to it.
	var g errgroup.Group

	g.Go(func() error {
		defer pipesWG.Done()
		defer stdoutR.Close()
		fanOut(ctx, stdoutR, out, func(b []byte) *wire.ProgramOutput {
			return &wire.ProgramOutput{StdoutChunk: &wire.StdoutChunk{Data: b}}
		})
		return nil
	})
	g.Go(func() error {
		defer pipesWG.Done()
		defer stderrR.Close()
		fanOut(ctx, stderrR, out, func(b []byte) *wire.ProgramOutput {
			return &wire.ProgramOutput{StderrChunk: &wire.StderrChunk{Data: b}}
		})
		return nil
	})

	var exitOnce sync.Once
	emitExit := func() {
		exitOnce.Do(func() {
			select {
			case <-pipesDone:
			case <-ctx.Done():
				return
			}
			code := int32(-1)
			if cmd.ProcessState != nil {
				code = int32(cmd.ProcessState.ExitCode())
			}
			select {
			case out <- &wire.ProgramOutput{ExitStatus: &wire.ExitStatus{Code: code}}:
			case <-ctx.Done():
			}
		})
	}

	g.Go(func() error {
		return c.faninLoop(ctx, cmd, stdin, waitDone, emitExit)
	})

	return g.Wait()
}

// faninLoop owns the request stream until it ends, a Kill arrives, or the
// caller's context is cancelled, then applies the call's teardown policy.
func (c *ProgramCaller) faninLoop(ctx context.Context, cmd *exec.Cmd, stdin io.WriteCloser, waitDone chan struct{}, emitExit func()) error {
	chunks := make(chan *wire.ExecuteRequestChunk)
	recvErr := make(chan error, 1)
	readerDone := make(chan struct{})
	defer close(readerDone)

	// The reader runs for as long as c.recv.Recv() keeps returning chunks,
	// which can outlast the select loop below (a Kill, ctx cancellation,
	// or stdin EOF all exit the loop while a chunk may already be in
	// flight). Without readerDone this goroutine would block forever on
	// an unbuffered send nobody is left to receive.
	go func() {
		for {
			chunk, err := c.recv.Recv()
			if err != nil {
				select {
				case recvErr <- err:
				case <-readerDone:
				}
				return
			}
			select {
			case chunks <- chunk:
			case <-readerDone:
				return
			}
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	killed := false

loop:
	for {
		select {
		case chunk := <-chunks:
			switch {
			case chunk.StdinChunk != nil:
				if len(chunk.StdinChunk.Data) == 0 {
					stdin.Close()
					break loop
				}
				if _, err := stdin.Write(chunk.StdinChunk.Data); err != nil {
					stdin.Close()
					return errx.Wrap(ErrStdinWrite, err)
				}
			case chunk.Kill != nil:
				killed = true
				cmd.Process.Kill()
				<-waitDone
				emitExit()
				break loop
			case chunk.Command != nil:
				// repeat Command after the first is ignored, not re-spawned.
			}
		case <-recvErr:
			// The request stream itself ending is terminal for the loop:
			// there is no more stdin or control traffic to wait for, so
			// teardown's leak policy decides the child's fate immediately
			// rather than polling a possibly long-lived leaked child.
			recvErr = nil
			break loop
		case <-ticker.C:
			if exited(waitDone) {
				break loop
			}
		case <-ctx.Done():
			break loop
		}
	}

	if killed {
		return nil
	}

	c.teardown(waitDone, cmd, emitExit)
	return nil
}

// teardown applies the call's leak policy once the fan-in loop has exited
// for any reason other than Kill (which has already reaped and reported) or
// a failed stdin write (which returns its error without reaching teardown).
func (c *ProgramCaller) teardown(waitDone <-chan struct{}, cmd *exec.Cmd, emitExit func()) {
	if !c.Leak {
		cmd.Process.Kill()
		<-waitDone
		emitExit()
		return
	}

	select {
	case <-waitDone:
		emitExit()
	default:
		// Child is still running and deliberately left to outlive the call.
	}
}

// exited reports whether waitDone has already closed, without blocking.
func exited(waitDone <-chan struct{}) bool {
	select {
	case <-waitDone:
		return true
	default:
		return false
	}
}

// fanOut copies r in readBufSize chunks to out via wrap, until r returns an
// error (including clean EOF) or ctx is cancelled. Send failures and read
// errors both end the task silently; streaming is best-effort.
func fanOut(ctx context.Context, r io.ReadCloser, out chan<- *wire.ProgramOutput, wrap func([]byte) *wire.ProgramOutput) {
	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- wrap(chunk):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
