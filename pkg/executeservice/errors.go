package executeservice

import "errors"

// ErrListen means the server could not bind the requested address.
var ErrListen = errors.New("executeservice: listen")
