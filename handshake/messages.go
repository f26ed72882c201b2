package handshake

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/limits"
	"github.com/opd-ai/secureim/transport"
)

// LoginRequest is the plaintext of the round-2 client envelope.
type LoginRequest struct {
	Username    string
	IV          []byte
	Signature   []byte // over SHA-256(username ‖ IV)
	EncryptedDH []byte // client DH value sealed under the password hash
}

// Fields returns the plaintext fields in wire order.
func (m LoginRequest) Fields() [][]byte {
	return [][]byte{[]byte(m.Username), encode(m.IV), encode(m.Signature), encode(m.EncryptedDH)}
}

// ParseLoginRequest decodes the fields of a round-2 client envelope.
func ParseLoginRequest(fields [][]byte) (LoginRequest, error) {
	decoded, err := decodeFields(fields, 4, 1)
	if err != nil {
		return LoginRequest{}, err
	}
	if err := limits.ValidateUsername(string(fields[0])); err != nil {
		return LoginRequest{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := checkSize("IV", decoded[1], crypto.IVSize); err != nil {
		return LoginRequest{}, err
	}
	return LoginRequest{
		Username:    string(fields[0]),
		IV:          decoded[1],
		Signature:   decoded[2],
		EncryptedDH: decoded[3],
	}, nil
}

// ServerAuth is the plaintext of the round-2 server envelope.
type ServerAuth struct {
	IV          []byte
	Signature   []byte // over SHA-256(IV)
	EncryptedDH []byte // server DH value sealed under the password hash
	Nonce       []byte // server challenge
}

// Fields returns the plaintext fields in wire order.
func (m ServerAuth) Fields() [][]byte {
	return [][]byte{encode(m.IV), encode(m.Signature), encode(m.EncryptedDH), encode(m.Nonce)}
}

// ParseServerAuth decodes the fields of a round-2 server envelope.
func ParseServerAuth(fields [][]byte) (ServerAuth, error) {
	decoded, err := decodeFields(fields, 4, 0)
	if err != nil {
		return ServerAuth{}, err
	}
	if err := checkSize("IV", decoded[0], crypto.IVSize); err != nil {
		return ServerAuth{}, err
	}
	if err := checkSize("nonce", decoded[3], crypto.NonceSize); err != nil {
		return ServerAuth{}, err
	}
	return ServerAuth{
		IV:          decoded[0],
		Signature:   decoded[1],
		EncryptedDH: decoded[2],
		Nonce:       decoded[3],
	}, nil
}

// Challenge is the plaintext of the round-3 client envelope.
type Challenge struct {
	IV            []byte
	EncryptedEcho []byte // server nonce sealed under the session key
	Nonce         []byte // client challenge
}

// Fields returns the plaintext fields in wire order.
func (m Challenge) Fields() [][]byte {
	return [][]byte{encode(m.IV), encode(m.EncryptedEcho), encode(m.Nonce)}
}

// ParseChallenge decodes the fields of a round-3 client envelope.
func ParseChallenge(fields [][]byte) (Challenge, error) {
	decoded, err := decodeFields(fields, 3, 0)
	if err != nil {
		return Challenge{}, err
	}
	if err := checkSize("IV", decoded[0], crypto.IVSize); err != nil {
		return Challenge{}, err
	}
	if err := checkSize("nonce", decoded[2], crypto.NonceSize); err != nil {
		return Challenge{}, err
	}
	return Challenge{IV: decoded[0], EncryptedEcho: decoded[1], Nonce: decoded[2]}, nil
}

// ChallengeReply is the plaintext of the round-3 server envelope.
type ChallengeReply struct {
	IV            []byte
	EncryptedEcho []byte // client nonce sealed under the session key
}

// Fields returns the plaintext fields in wire order.
func (m ChallengeReply) Fields() [][]byte {
	return [][]byte{encode(m.IV), encode(m.EncryptedEcho)}
}

// ParseChallengeReply decodes the fields of a round-3 server envelope.
func ParseChallengeReply(fields [][]byte) (ChallengeReply, error) {
	decoded, err := decodeFields(fields, 2, 0)
	if err != nil {
		return ChallengeReply{}, err
	}
	if err := checkSize("IV", decoded[0], crypto.IVSize); err != nil {
		return ChallengeReply{}, err
	}
	return ChallengeReply{IV: decoded[0], EncryptedEcho: decoded[1]}, nil
}

// EncodeEnvelope renders an envelope as "transport_keys,ciphertext".
func EncodeEnvelope(env *crypto.Envelope) []byte {
	return transport.JoinFrame([]byte(env.TransportKeys), []byte(env.Ciphertext))
}

// DecodeEnvelope parses "transport_keys,ciphertext". Fewer or more fields are
// both malformed.
func DecodeEnvelope(data []byte) (*crypto.Envelope, error) {
	parts := transport.SplitFrame(data, 3)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: envelope has %d fields, want 2", ErrMalformedMessage, len(parts))
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return nil, fmt.Errorf("%w: empty envelope field", ErrMalformedMessage)
	}
	return &crypto.Envelope{TransportKeys: string(parts[0]), Ciphertext: string(parts[1])}, nil
}

// EncodeLoginFrame renders the round-2 client datagram "LOGIN,cookie,tk,ct".
func EncodeLoginFrame(cookie []byte, env *crypto.Envelope) []byte {
	return transport.JoinFrame([]byte(transport.LoginTag), cookie, EncodeEnvelope(env))
}

// DecodeLoginFrame parses a round-2 client datagram.
func DecodeLoginFrame(data []byte) (cookie []byte, env *crypto.Envelope, err error) {
	parts := transport.SplitFrame(data, 3)
	if len(parts) != 3 || !bytes.Equal(parts[0], []byte(transport.LoginTag)) {
		return nil, nil, fmt.Errorf("%w: not a login frame", ErrMalformedMessage)
	}
	if err := limits.ValidateCookie(parts[1]); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	env, err = DecodeEnvelope(parts[2])
	if err != nil {
		return nil, nil, err
	}
	return parts[1], env, nil
}

// IsLoginIntent reports whether data is the round-1 datagram.
func IsLoginIntent(data []byte) bool {
	return bytes.Equal(data, []byte(transport.LoginTag))
}

// SealValue encrypts the base64 text of value under key and iv.
func SealValue(value, key, iv []byte) ([]byte, error) {
	return crypto.SymmetricEncrypt([]byte(base64.StdEncoding.EncodeToString(value)), key, iv)
}

// OpenValue reverses SealValue.
func OpenValue(ciphertext, key, iv []byte) ([]byte, error) {
	text, err := crypto.SymmetricDecrypt(ciphertext, key, iv)
	if err != nil {
		return nil, err
	}
	value, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nil, fmt.Errorf("sealed value is not base64: %w", err)
	}
	return value, nil
}

func encode(b []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out
}

// decodeFields checks the field count and base64-decodes every field from
// index first onwards.
func decodeFields(fields [][]byte, want, first int) ([][]byte, error) {
	if len(fields) != want {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedMessage, len(fields), want)
	}
	decoded := make([][]byte, want)
	for i := first; i < want; i++ {
		b, err := base64.StdEncoding.DecodeString(string(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("%w: field %d is not base64", ErrMalformedMessage, i)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("%w: field %d is empty", ErrMalformedMessage, i)
		}
		decoded[i] = b
	}
	return decoded, nil
}

func checkSize(name string, b []byte, want int) error {
	if len(b) != want {
		return fmt.Errorf("%w: %s is %d bytes, want %d", ErrMalformedMessage, name, len(b), want)
	}
	return nil
}
