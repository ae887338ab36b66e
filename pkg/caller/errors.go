package caller

import "errors"

// ErrBadFirstChunk means the first request chunk wasn't a Command.
var ErrBadFirstChunk = errors.New("can not get command in first chunk")

// ErrNoCurrentDir means current_dir was omitted and the resolved executable
// has no parent directory to default to.
var ErrNoCurrentDir = errors.New("cannot set current dir automatically")

// ErrSpawn means the OS refused to start the child process.
var ErrSpawn = errors.New("failed to spawn child process")

// ErrStdinWrite means a write to the child's stdin pipe failed.
var ErrStdinWrite = errors.New("failed to write to child stdin")
