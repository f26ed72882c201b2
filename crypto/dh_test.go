package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHExchangeAgreement(t *testing.T) {
	client, err := NewDHExchange()
	require.NoError(t, err)
	server, err := NewDHExchange()
	require.NoError(t, err)

	k1, err := client.SharedSecret(server.PublicValue())
	require.NoError(t, err)
	k2, err := server.SharedSecret(client.PublicValue())
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, SymmetricKeySize)
}

func TestDHExchangeFreshness(t *testing.T) {
	a, err := NewDHExchange()
	require.NoError(t, err)
	b, err := NewDHExchange()
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicValue(), b.PublicValue())
}

func TestDHExchangeRejectsBadPeerValue(t *testing.T) {
	d, err := NewDHExchange()
	require.NoError(t, err)

	_, err = d.SharedSecret(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidDHValue)

	// The all-zero point has low order and yields an all-zero secret.
	_, err = d.SharedSecret(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidDHValue)
}

func TestDHExchangeWipe(t *testing.T) {
	d, err := NewDHExchange()
	require.NoError(t, err)
	peer, err := NewDHExchange()
	require.NoError(t, err)

	d.Wipe()
	_, err = d.SharedSecret(peer.PublicValue())
	assert.Error(t, err)

	var nilDH *DHExchange
	nilDH.Wipe()
}

func TestPublicValueIsCopy(t *testing.T) {
	d, err := NewDHExchange()
	require.NoError(t, err)

	pub := d.PublicValue()
	pub[0] ^= 0xFF
	assert.NotEqual(t, pub, d.PublicValue())
}
