package handshake

import (
	"fmt"

	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/limits"
)

// Credentials identify the user for one login attempt. The raw password is
// never stored; only its hash is kept.
type Credentials struct {
	Username     string
	PasswordHash [crypto.PasswordHashSize]byte
}

// NewCredentials validates username and hashes password. password is wiped.
func NewCredentials(username string, password []byte) (Credentials, error) {
	if err := limits.ValidateUsername(username); err != nil {
		crypto.ZeroBytes(password)
		return Credentials{}, fmt.Errorf("invalid username: %w", err)
	}
	return Credentials{
		Username:     username,
		PasswordHash: crypto.HashPassword(password),
	}, nil
}

// Wipe erases the password hash.
func (c *Credentials) Wipe() {
	crypto.ZeroBytes(c.PasswordHash[:])
}
