package caller

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/azazo1/rex/pkg/resolver"
	"github.com/azazo1/rex/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReceiver replays the chunks pushed to it; when none are queued, Recv
// blocks until another is pushed. It never returns an error.
type fakeReceiver struct {
	mu     sync.Mutex
	chunks []*wire.ExecuteRequestChunk
}

func (f *fakeReceiver) push(c *wire.ExecuteRequestChunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, c)
}

func (f *fakeReceiver) Recv() (*wire.ExecuteRequestChunk, error) {
	for {
		f.mu.Lock()
		if len(f.chunks) > 0 {
			c := f.chunks[0]
			f.chunks = f.chunks[1:]
			f.mu.Unlock()
			return c, nil
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func commandChunk(executable string, args []string) *wire.ExecuteRequestChunk {
	return &wire.ExecuteRequestChunk{Command: &wire.Command{Executable: executable, Args: args}}
}

func drain(t *testing.T, out <-chan *wire.ProgramOutput, timeout time.Duration) (stdout, stderr []byte, exitCode *int32) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				return
			}
			switch {
			case msg.StdoutChunk != nil:
				stdout = append(stdout, msg.StdoutChunk.Data...)
			case msg.StderrChunk != nil:
				stderr = append(stderr, msg.StderrChunk.Data...)
			case msg.ExitStatus != nil:
				code := msg.ExitStatus.Code
				exitCode = &code
			}
		case <-deadline:
			return
		}
	}
}

func TestParseRejectsNonCommandFirstChunk(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(&wire.ExecuteRequestChunk{Kill: &wire.Kill{}})

	_, err := Parse(recv)
	assert.ErrorIs(t, err, ErrBadFirstChunk)
}

func TestParseDefaultsCurrentDirToExecutableParent(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(commandChunk("echo", []string{"hi"}))

	pc, err := Parse(recv)
	require.NoError(t, err)
	assert.NotEmpty(t, pc.CurrentDir)
	assert.Equal(t, []string{"hi"}, pc.Args)
}

func TestCallProgramCapturesStdoutAndExitCode(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(commandChunk("bash", []string{"-c", "echo hello"}))

	pc, err := Parse(recv)
	require.NoError(t, err)

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = pc.CallProgram(ctx, out)
	close(out)
	require.NoError(t, err)

	stdout, _, exitCode := drain(t, out, 2*time.Second)
	assert.Equal(t, "hello\n", string(stdout))
	require.NotNil(t, exitCode)
	assert.Equal(t, int32(0), *exitCode)
}

func TestCallProgramReportsNonZeroExit(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(commandChunk("bash", []string{"-c", "exit 7"}))

	pc, err := Parse(recv)
	require.NoError(t, err)

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, pc.CallProgram(ctx, out))
	close(out)

	_, _, exitCode := drain(t, out, 2*time.Second)
	require.NotNil(t, exitCode)
	assert.Equal(t, int32(7), *exitCode)
}

func TestCallProgramEchoesStdin(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(commandChunk("cat", nil))

	pc, err := Parse(recv)
	require.NoError(t, err)

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv.push(&wire.ExecuteRequestChunk{StdinChunk: &wire.StdinChunk{Data: []byte("ping\n")}})
	recv.push(&wire.ExecuteRequestChunk{StdinChunk: &wire.StdinChunk{Data: []byte{}}})

	require.NoError(t, pc.CallProgram(ctx, out))
	close(out)

	stdout, _, exitCode := drain(t, out, 2*time.Second)
	assert.Equal(t, "ping\n", string(stdout))
	require.NotNil(t, exitCode)
	assert.Equal(t, int32(0), *exitCode)
}

func TestCallProgramKillStopsLongRunningChild(t *testing.T) {
	recv := &fakeReceiver{}
	recv.push(commandChunk("bash", []string{"-c", "sleep 30"}))

	pc, err := Parse(recv)
	require.NoError(t, err)

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		recv.push(&wire.ExecuteRequestChunk{Kill: &wire.Kill{}})
	}()

	start := time.Now()
	require.NoError(t, pc.CallProgram(ctx, out))
	elapsed := time.Since(start)
	close(out)

	assert.Less(t, elapsed, time.Second)

	_, _, exitCode := drain(t, out, time.Second)
	require.NotNil(t, exitCode)
}

// disconnectingReceiver returns io.EOF immediately after serving its fixed
// chunks, simulating a client that drops the connection.
type disconnectingReceiver struct {
	fakeReceiver
	served bool
}

func (d *disconnectingReceiver) Recv() (*wire.ExecuteRequestChunk, error) {
	d.mu.Lock()
	if len(d.chunks) > 0 {
		c := d.chunks[0]
		d.chunks = d.chunks[1:]
		d.mu.Unlock()
		return c, nil
	}
	d.mu.Unlock()
	return nil, io.EOF
}

func TestCallProgramKillsChildOnDisconnectWithoutLeak(t *testing.T) {
	dir := t.TempDir()
	marker := dir + "/done"

	recv := &disconnectingReceiver{}
	recv.push(commandChunk("bash", []string{"-c", "sleep 2 && touch " + marker}))
	chunk, err := recv.Recv()
	require.NoError(t, err)
	require.NotNil(t, chunk.Command)

	path, err := resolver.Resolve("bash")
	require.NoError(t, err)
	pc := &ProgramCaller{Executable: path, CurrentDir: "/", Args: []string{"-c", "sleep 2 && touch " + marker}, Leak: false, recv: recv}

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, pc.CallProgram(ctx, out))
	close(out)

	drain(t, out, 200*time.Millisecond)

	time.Sleep(3 * time.Second)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "child should have been killed before it could create %s", marker)
}

func TestCallProgramLeaksChildOnDisconnect(t *testing.T) {
	recv := &disconnectingReceiver{}
	recv.push(commandChunk("bash", []string{"-c", "sleep 30"}))
	chunk, err := recv.Recv()
	require.NoError(t, err)
	require.NotNil(t, chunk.Command)

	path, err := resolver.Resolve("bash")
	require.NoError(t, err)
	pc := &ProgramCaller{Executable: path, CurrentDir: "/", Args: []string{"-c", "sleep 30"}, Leak: true, recv: recv}

	out := make(chan *wire.ProgramOutput, 30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, pc.CallProgram(ctx, out))
	close(out)

	_, _, exitCode := drain(t, out, 200*time.Millisecond)
	assert.Nil(t, exitCode, "leaked child must not report an exit status while still running")
}
