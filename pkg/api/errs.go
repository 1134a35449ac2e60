package api

import "errors"

var (
	// ErrServer wraps a non-2xx reply; the message is the server's error text.
	ErrServer = errors.New("api: request failed")

	// ErrClosed is returned by Listen after Close.
	ErrClosed = errors.New("api: server closed")
)
