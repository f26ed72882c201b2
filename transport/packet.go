package transport

import (
	"bytes"
)

const (
	// LoginTag opens round 1 and prefixes the round-2 client frame.
	LoginTag = "LOGIN"

	// Delimiter separates fields in a frame.
	Delimiter = ','

	// MessageTag prefixes a chat line sent by a logged-in client.
	MessageTag = "MESSAGE:"

	// IncomingTag prefixes a chat line relayed by the server.
	IncomingTag = "INCOMING:"
)

// JoinFrame joins fields into one datagram payload.
func JoinFrame(fields ...[]byte) []byte {
	return bytes.Join(fields, []byte{Delimiter})
}

// SplitFrame splits a datagram payload into at most n fields. The last field
// holds the unsplit remainder, so a result of length n signals surplus fields
// when the caller expected n-1.
func SplitFrame(data []byte, n int) [][]byte {
	return bytes.SplitN(data, []byte{Delimiter}, n)
}

// EncodeMessage frames an outgoing chat body.
func EncodeMessage(body []byte) []byte {
	return append([]byte(MessageTag), body...)
}

// DecodeMessage strips the MessageTag prefix. It reports false when data is
// not a chat message.
func DecodeMessage(data []byte) ([]byte, bool) {
	return bytes.CutPrefix(data, []byte(MessageTag))
}

// EncodeIncoming frames a relayed chat body.
func EncodeIncoming(body []byte) []byte {
	return append([]byte(IncomingTag), body...)
}

// DecodeIncoming strips the IncomingTag prefix. It reports false when data is
// not a relayed chat message.
func DecodeIncoming(data []byte) ([]byte, bool) {
	return bytes.CutPrefix(data, []byte(IncomingTag))
}
