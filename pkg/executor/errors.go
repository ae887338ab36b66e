package executor

import "errors"

// ErrDial means the client could not establish the mTLS channel.
var ErrDial = errors.New("executor: dial")

// ErrCommandRequired means an ExecuteOptions was missing the executable to run.
var ErrCommandRequired = errors.New("executor: executable is required")
