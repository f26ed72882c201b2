// Package limits provides centralized message size limits for the login protocol.
package limits

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// MaxCookieDatagram is the receive buffer for the round-1 cookie reply.
	MaxCookieDatagram = 1024

	// MaxCookieSize bounds the opaque cookie that is echoed back to the server.
	MaxCookieSize = MaxCookieDatagram

	// MaxLoginReply is the receive buffer for the round-2 server reply.
	MaxLoginReply = 8192

	// MaxChallengeReply is the receive buffer for the round-3 server reply.
	MaxChallengeReply = 4096

	// MaxDatagram is the largest datagram either side will send.
	MaxDatagram = 65507

	// MaxUsernameLength bounds the username carried in the login envelope.
	MaxUsernameLength = 256

	// MaxChatMessage bounds one line of chat text before sealing.
	MaxChatMessage = 1024

	// MaxChatDatagram is the receive buffer for relayed chat messages. It
	// holds a sealed MaxChatMessage line prefixed by the sender's username.
	MaxChatDatagram = 4096
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidCookie indicates a cookie that cannot be echoed inside a frame
	ErrInvalidCookie = errors.New("invalid cookie")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidateCookie checks that a server cookie is non-empty, bounded, and free
// of field delimiters.
func ValidateCookie(cookie []byte) error {
	if err := ValidateMessageSize(cookie, MaxCookieSize); err != nil {
		return err
	}
	if bytes.IndexByte(cookie, ',') >= 0 {
		return fmt.Errorf("%w: contains field delimiter", ErrInvalidCookie)
	}
	return nil
}

// ValidateUsername checks that a username is non-empty, bounded, and free of
// field delimiters.
func ValidateUsername(username string) error {
	if err := ValidateMessageSize([]byte(username), MaxUsernameLength); err != nil {
		return err
	}
	if bytes.IndexByte([]byte(username), ',') >= 0 {
		return fmt.Errorf("username contains field delimiter")
	}
	return nil
}

// ValidateChatMessage checks that a chat line is non-empty and bounded.
func ValidateChatMessage(text []byte) error {
	return ValidateMessageSize(text, MaxChatMessage)
}
