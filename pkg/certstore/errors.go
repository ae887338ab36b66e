package certstore

import "errors"

// ErrMissingFile means one of the five fixed PEM files was not found in the
// store directory.
var ErrMissingFile = errors.New("certstore: missing file")

// ErrInvalidPEM means a file existed but did not parse as the PEM content
// its filename implies (certificate vs. private key).
var ErrInvalidPEM = errors.New("certstore: invalid PEM content")
