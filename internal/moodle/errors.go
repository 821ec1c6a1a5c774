package moodle

import "fmt"

// RemoteError is an application-level exception reported in-band by the
// remote API. Moodle returns these in a 200 body, so the client must probe
// every response for one.
type RemoteError struct {
	Exception string
	ErrorCode string
	Message   string
	Function  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (%s, function %s)", e.Exception, e.Message, e.ErrorCode, e.Function)
}

// TransportError is a network or timeout failure reaching the remote API.
// Retry policy belongs to the caller, not this layer.
type TransportError struct {
	Function string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("moodle %s: %v", e.Function, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
