package crypto

import (
	"crypto/rand"

	"github.com/flynn/noise"
	"github.com/samber/oops"
	"golang.org/x/crypto/curve25519"
)

// DHExchange is one side of an ephemeral X25519 exchange.
type DHExchange struct {
	key noise.DHKey
}

// NewDHExchange generates a fresh ephemeral key pair.
func NewDHExchange() (*DHExchange, error) {
	key, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to generate DH key pair")
	}
	return &DHExchange{key: key}, nil
}

// PublicValue returns a copy of the public value to send to the peer.
func (d *DHExchange) PublicValue() []byte {
	pub := make([]byte, len(d.key.Public))
	copy(pub, d.key.Public)
	return pub
}

// SharedSecret combines the private value with the peer's public value.
// Low-order peer values are rejected.
func (d *DHExchange) SharedSecret(peerPublic []byte) ([]byte, error) {
	if len(peerPublic) != curve25519.PointSize {
		return nil, oops.Wrapf(ErrInvalidDHValue, "got %d bytes, want %d", len(peerPublic), curve25519.PointSize)
	}
	if len(d.key.Private) == 0 {
		return nil, oops.Errorf("DH exchange already wiped")
	}

	shared, err := noise.DH25519.DH(d.key.Private, peerPublic)
	if err != nil {
		return nil, oops.Wrapf(ErrInvalidDHValue, "%v", err)
	}
	return shared, nil
}

// Wipe erases the private value. The exchange cannot be used afterwards.
func (d *DHExchange) Wipe() {
	if d == nil {
		return
	}
	ZeroBytes(d.key.Private)
	d.key.Private = nil
}
