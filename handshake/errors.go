package handshake

import (
	"errors"
	"fmt"
)

// Failure kinds. Every handshake failure returned by Client.Login matches
// exactly one of them with errors.Is. Invalid credentials are rejected before
// the handshake starts and match none.
var (
	// ErrServerUnresponsive indicates no reply arrived within the timeout.
	ErrServerUnresponsive = errors.New("server unresponsive")

	// ErrMalformedMessage indicates a framing, field-count, or decoding violation.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrKeyTransport indicates an envelope's key-transport block was rejected.
	ErrKeyTransport = errors.New("key transport error")

	// ErrAuthenticationFailed indicates the server's signature or password proof failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrChallengeMismatch indicates the final nonce echo did not match.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrInternal indicates a local failure such as an exhausted entropy source.
	ErrInternal = errors.New("internal handshake failure")
)

// Error reports a failed login attempt.
type Error struct {
	Kind  error // one of the failure kinds above
	State State // state the session was in when it failed
	Err   error // underlying cause, nil when it must not be disclosed
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed in %s: %v: %v", e.State, e.Kind, e.Err)
	}
	return fmt.Sprintf("handshake failed in %s: %v", e.State, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, state State, err error) *Error {
	return &Error{Kind: kind, State: state, Err: err}
}

// KindOf returns the failure kind of err, or nil if err is not a handshake error.
func KindOf(err error) error {
	var hsErr *Error
	if errors.As(err, &hsErr) {
		return hsErr.Kind
	}
	return nil
}
