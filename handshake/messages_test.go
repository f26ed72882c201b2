package handshake

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/opd-ai/secureim/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestDecodeEnvelopeFieldCount(t *testing.T) {
	cases := []struct {
		name string
		data string
		ok   bool
	}{
		{"two fields", "dGs=,Y3Q=", true},
		{"one field", "dGs=", false},
		{"three fields", "a,b,c", false},
		{"empty", "", false},
		{"empty transport keys", ",Y3Q=", false},
		{"trailing delimiter", "a,b,", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.data))
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, "dGs=", env.TransportKeys)
				assert.Equal(t, "Y3Q=", env.Ciphertext)
				return
			}
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestLoginFrameRoundTrip(t *testing.T) {
	env := &crypto.Envelope{TransportKeys: "dGs=", Ciphertext: "Y3Q="}
	frame := EncodeLoginFrame([]byte("cookie"), env)
	assert.Equal(t, "LOGIN,cookie,dGs=,Y3Q=", string(frame))

	cookie, decoded, err := DecodeLoginFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte("cookie"), cookie)
	assert.Equal(t, env, decoded)

	_, _, err = DecodeLoginFrame([]byte("HELLO,cookie,a,b"))
	assert.ErrorIs(t, err, ErrMalformedMessage)
	_, _, err = DecodeLoginFrame([]byte("LOGIN,,a,b"))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestIsLoginIntent(t *testing.T) {
	assert.True(t, IsLoginIntent([]byte("LOGIN")))
	assert.False(t, IsLoginIntent([]byte("LOGIN,")))
	assert.False(t, IsLoginIntent(nil))
}

func TestServerAuthFields(t *testing.T) {
	auth := ServerAuth{
		IV:          randomBytes(t, crypto.IVSize),
		Signature:   randomBytes(t, 256),
		EncryptedDH: randomBytes(t, 64),
		Nonce:       randomBytes(t, crypto.NonceSize),
	}

	parsed, err := ParseServerAuth(crypto.SplitFields(crypto.JoinFields(auth.Fields()...)))
	require.NoError(t, err)
	assert.Equal(t, auth, parsed)

	_, err = ParseServerAuth(auth.Fields()[:3])
	assert.ErrorIs(t, err, ErrMalformedMessage)

	bad := auth.Fields()
	bad[1] = []byte("%%%")
	_, err = ParseServerAuth(bad)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	short := auth
	short.Nonce = short.Nonce[:8]
	_, err = ParseServerAuth(short.Fields())
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestLoginRequestFields(t *testing.T) {
	req := LoginRequest{
		Username:    "alice",
		IV:          randomBytes(t, crypto.IVSize),
		Signature:   randomBytes(t, 256),
		EncryptedDH: randomBytes(t, 64),
	}

	parsed, err := ParseLoginRequest(req.Fields())
	require.NoError(t, err)
	assert.Equal(t, req, parsed)

	fields := req.Fields()
	fields[0] = nil
	_, err = ParseLoginRequest(fields)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestChallengeFields(t *testing.T) {
	ch := Challenge{
		IV:            randomBytes(t, crypto.IVSize),
		EncryptedEcho: randomBytes(t, 48),
		Nonce:         randomBytes(t, crypto.NonceSize),
	}
	parsed, err := ParseChallenge(ch.Fields())
	require.NoError(t, err)
	assert.Equal(t, ch, parsed)

	reply := ChallengeReply{IV: randomBytes(t, crypto.IVSize), EncryptedEcho: randomBytes(t, 48)}
	parsedReply, err := ParseChallengeReply(reply.Fields())
	require.NoError(t, err)
	assert.Equal(t, reply, parsedReply)

	_, err = ParseChallengeReply(append(reply.Fields(), []byte("eA==")))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestSealOpenValue(t *testing.T) {
	key := randomBytes(t, crypto.SymmetricKeySize)
	iv := randomBytes(t, crypto.IVSize)
	value := randomBytes(t, crypto.NonceSize)

	sealed, err := SealValue(value, key, iv)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, value))

	opened, err := OpenValue(sealed, key, iv)
	require.NoError(t, err)
	assert.Equal(t, value, opened)

	_, err = OpenValue(sealed[:len(sealed)-1], key, iv)
	assert.Error(t, err)
}
