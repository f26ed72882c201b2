package chat

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/handshake"
	"github.com/opd-ai/secureim/transport"
)

// ErrMalformedMessage reports a chat body that cannot be opened.
var ErrMalformedMessage = errors.New("malformed chat message")

// SealMessage encrypts text under key with a fresh IV and returns the body
// that follows a chat tag.
func SealMessage(text, key []byte) ([]byte, error) {
	iv, err := crypto.GenerateIV()
	if err != nil {
		return nil, err
	}
	sealed, err := handshake.SealValue(text, key, iv)
	if err != nil {
		return nil, err
	}
	return transport.JoinFrame(
		[]byte(base64.StdEncoding.EncodeToString(iv)),
		[]byte(base64.StdEncoding.EncodeToString(sealed)),
	), nil
}

// OpenMessage reverses SealMessage.
func OpenMessage(body, key []byte) ([]byte, error) {
	parts := transport.SplitFrame(body, 3)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %d fields, want 2", ErrMalformedMessage, len(parts))
	}

	iv, err := base64.StdEncoding.DecodeString(string(parts[0]))
	if err != nil || len(iv) != crypto.IVSize {
		return nil, fmt.Errorf("%w: bad IV", ErrMalformedMessage)
	}
	sealed, err := base64.StdEncoding.DecodeString(string(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not base64", ErrMalformedMessage)
	}

	text, err := handshake.OpenValue(sealed, key, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return text, nil
}
