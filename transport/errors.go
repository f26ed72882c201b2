package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no datagram arrived before the deadline
	ErrTimeout = errors.New("receive timed out")

	// ErrDatagramTooLarge indicates a datagram larger than the receive buffer
	ErrDatagramTooLarge = errors.New("datagram too large")

	// ErrClosed indicates the transport has been closed
	ErrClosed = errors.New("transport closed")
)

// OpError describes a failed transport operation.
type OpError struct {
	Op   string // operation that caused the error
	Addr string // peer address if relevant
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("udp %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("udp %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func newOpError(op, addr string, err error) *OpError {
	return &OpError{Op: op, Addr: addr, Err: err}
}
