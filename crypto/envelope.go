package crypto

import "bytes"

const (
	// SymmetricKeySize is the AES-256 key length carried in the key-transport block.
	SymmetricKeySize = 32

	// IVSize is the AES-CBC initialization vector length.
	IVSize = 16

	// NonceSize is the length of challenge nonces.
	NonceSize = 32

	// FieldDelimiter separates fields inside an envelope plaintext and on the wire.
	FieldDelimiter = ','
)

// Envelope is the two-part wire unit produced by HybridEncrypt.
// Both parts are standard base64 text.
type Envelope struct {
	// TransportKeys is base64(RSA-OAEP(key ‖ IV)).
	TransportKeys string
	// Ciphertext is base64(AES-CBC(plaintext)).
	Ciphertext string
}

// JoinFields joins fields with FieldDelimiter.
func JoinFields(fields ...[]byte) []byte {
	return bytes.Join(fields, []byte{FieldDelimiter})
}

// SplitFields splits data on every FieldDelimiter. An empty input yields a
// single empty field.
func SplitFields(data []byte) [][]byte {
	return bytes.Split(data, []byte{FieldDelimiter})
}
