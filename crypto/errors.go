package crypto

import "errors"

var (
	// ErrKeyTransport indicates the RSA key-transport block of an envelope was rejected.
	// It deliberately carries no information about why decryption failed.
	ErrKeyTransport = errors.New("key transport rejected")

	// ErrMalformedEnvelope indicates an envelope part could not be decoded.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrInvalidPadding indicates PKCS#7 padding was missing or inconsistent.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrInvalidKeySize indicates a symmetric key of the wrong length.
	ErrInvalidKeySize = errors.New("invalid symmetric key size")

	// ErrInvalidIVSize indicates an IV that is not exactly one block long.
	ErrInvalidIVSize = errors.New("invalid IV size")

	// ErrInvalidCiphertext indicates ciphertext that is empty or not block aligned.
	ErrInvalidCiphertext = errors.New("invalid ciphertext length")

	// ErrInvalidDHValue indicates a peer DH public value that cannot be used.
	ErrInvalidDHValue = errors.New("invalid DH public value")

	// ErrMissingKey indicates a nil RSA key was supplied.
	ErrMissingKey = errors.New("missing RSA key")

	// ErrKeyMismatch indicates a public key does not belong to the private key it was paired with.
	ErrKeyMismatch = errors.New("public key does not match private key")
)
