package crypto

import (
	"crypto/rand"
	"crypto/rsa"

	"github.com/samber/oops"
)

// DefaultRSABits is the modulus size used for generated key pairs.
const DefaultRSABits = 2048

// KeyPair is a long-lived RSA key pair.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// GenerateKeyPair creates a new RSA key pair of the given modulus size.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits < 1024 {
		return nil, oops.Errorf("RSA modulus of %d bits is too small", bits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to generate RSA key")
	}

	return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// KeyMaterial holds the three long-lived keys a client needs: its own pair
// and the server's public key. It is read-only once constructed and may be
// shared between handshake attempts.
type KeyMaterial struct {
	Own          KeyPair
	ServerPublic *rsa.PublicKey
}

// NewKeyMaterial validates and bundles the client's keys.
func NewKeyMaterial(priv *rsa.PrivateKey, pub, serverPub *rsa.PublicKey) (*KeyMaterial, error) {
	km := &KeyMaterial{
		Own:          KeyPair{Public: pub, Private: priv},
		ServerPublic: serverPub,
	}
	if err := km.Validate(); err != nil {
		return nil, err
	}
	return km, nil
}

// Validate checks that all keys are present and the own pair matches.
func (km *KeyMaterial) Validate() error {
	if km == nil || km.Own.Private == nil || km.Own.Public == nil || km.ServerPublic == nil {
		return ErrMissingKey
	}
	if !km.Own.Private.PublicKey.Equal(km.Own.Public) {
		return ErrKeyMismatch
	}
	if err := km.Own.Private.Validate(); err != nil {
		return oops.Wrapf(err, "invalid private key")
	}
	return nil
}
