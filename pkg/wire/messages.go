// Package wire defines the message set framing the Execute call: the
// client-to-server Command/StdinChunk/Kill chunks and the server-to-client
// StdoutChunk/StderrChunk/ExitStatus chunks, plus the gRPC service glue that
// carries them over a single bidirectional-streaming RPC.
package wire

// Command is sent exactly once, as the first client->server chunk. It
// describes the program to launch.
type Command struct {
	Executable string   `json:"executable"`
	Args       []string `json:"args,omitempty"`
	// CurrentDir is nil when the client wants the server to default it to
	// the resolved executable's parent directory.
	CurrentDir *string `json:"current_dir,omitempty"`
	Leak       bool     `json:"leak,omitempty"`
}

// StdinChunk carries a slice of local stdin. An empty Data denotes EOF.
type StdinChunk struct {
	Data []byte `json:"data"`
}

// Kill is an in-band request to terminate the child immediately.
type Kill struct{}

// ExecuteRequestChunk is a single client->server message. Exactly one of
// Command, StdinChunk, or Kill is non-nil.
type ExecuteRequestChunk struct {
	Command    *Command    `json:"command,omitempty"`
	StdinChunk *StdinChunk `json:"stdin_chunk,omitempty"`
	Kill       *Kill       `json:"kill,omitempty"`
}

// StdoutChunk carries a slice of the child's standard output.
type StdoutChunk struct {
	Data []byte `json:"data,omitempty"`
}

// StderrChunk carries a slice of the child's standard error.
type StderrChunk struct {
	Data []byte `json:"data,omitempty"`
}

// ExitStatus is the terminal message of a call, if one is sent at all; no
// ProgramOutput follows it.
type ExitStatus struct {
	Code int32 `json:"code"`
}

// ProgramOutput is a single server->client message. Exactly one of
// StdoutChunk, StderrChunk, or ExitStatus is non-nil.
type ProgramOutput struct {
	StdoutChunk *StdoutChunk `json:"stdout_chunk,omitempty"`
	StderrChunk *StderrChunk `json:"stderr_chunk,omitempty"`
	ExitStatus  *ExitStatus  `json:"exit_status,omitempty"`
}
