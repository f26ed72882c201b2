package crypto

import "crypto/sha256"

// PasswordHashSize is the length of a password hash and of the AES key it doubles as.
const PasswordHashSize = sha256.Size

// HashPassword returns SHA-256(secret) and wipes secret.
//
// The hash is used directly as AES-256 key material for the DH exchange,
// without salt or stretching. The server derives the same value, so this
// cannot change on the client alone.
func HashPassword(secret []byte) [PasswordHashSize]byte {
	sum := sha256.Sum256(secret)
	ZeroBytes(secret)
	return sum
}
