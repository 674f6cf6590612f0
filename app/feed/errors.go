package feed

import "errors"

var (
	// ErrUpstream marks a non-2xx response from a source.
	ErrUpstream = errors.New("upstream error")
	// ErrTimeout marks a fetch that exceeded its deadline.
	ErrTimeout = errors.New("fetch timeout")
	// ErrParse marks malformed XML or an unrecognized feed schema.
	ErrParse = errors.New("feed parse error")
)
