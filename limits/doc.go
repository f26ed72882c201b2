// Package limits provides centralized datagram size constants and validation
// functions for the secureim login protocol.
//
// # Receive Buffers
//
// Each round of the handshake reads into a bounded buffer:
//
//   - MaxCookieDatagram (1024 bytes): the server's round-1 cookie reply.
//   - MaxLoginReply (8192 bytes): the server's round-2 envelope.
//   - MaxChallengeReply (4096 bytes): the server's round-3 envelope.
//
// A datagram that does not fit its buffer is rejected rather than truncated.
// After login, relayed chat datagrams are read into MaxChatDatagram.
//
// # Cookies
//
// The DoS cookie is opaque to the client, but it is echoed inside a
// comma-delimited frame, so ValidateCookie also rejects cookies that contain
// the field delimiter:
//
//	if err := limits.ValidateCookie(cookie); err != nil {
//	    // abort with a malformed-message failure
//	}
//
// # Error Types
//
//   - ErrMessageEmpty: an empty or nil message was provided
//   - ErrMessageTooLarge: a message exceeds the specified limit
//   - ErrInvalidCookie: a cookie contains bytes that would break framing
package limits
