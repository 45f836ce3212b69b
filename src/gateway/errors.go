package gateway

import (
	"errors"
	"fmt"
)

// ErrIdentityInUse is returned by Connect when the requested client id is
// already attached to the gateway. Session retries once with a random id.
var ErrIdentityInUse = errors.New("client id already in use")

// ErrNotConnected is returned by commands issued before Connect succeeds or
// after Disconnect.
var ErrNotConnected = errors.New("gateway session not connected")

// ConnectionError wraps a failure to establish or keep the gateway session.
// It is fatal at startup and surfaced to the operator.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
