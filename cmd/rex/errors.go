package main

import "errors"

// Client errors
var (
	ErrResolveCertDir = errors.New("resolve cert directory")
	ErrConnect        = errors.New("connect to server")
	ErrExecute        = errors.New("execute remote command")
)

// Server errors
var (
	ErrListenAndServe = errors.New("serve")
)

// Gen-cert errors
var (
	ErrGenerateCerts = errors.New("generate certificates")
)
