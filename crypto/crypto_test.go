package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeysOnce sync.Once
	testKeys     [2]*KeyPair
	testKeysErr  error
)

// loadTestKeys generates two RSA pairs once for the whole package.
func loadTestKeys(t testing.TB) (*KeyPair, *KeyPair) {
	t.Helper()
	testKeysOnce.Do(func() {
		for i := range testKeys {
			testKeys[i], testKeysErr = GenerateKeyPair(DefaultRSABits)
			if testKeysErr != nil {
				return
			}
		}
	})
	require.NoError(t, testKeysErr)
	return testKeys[0], testKeys[1]
}

func randomBytes(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestSymmetricRoundTrip(t *testing.T) {
	key := randomBytes(t, SymmetricKeySize)

	for n := 0; n <= 3*aes.BlockSize+1; n++ {
		plaintext := randomBytes(t, n)
		iv, err := GenerateIV()
		require.NoError(t, err)

		ciphertext, err := SymmetricEncrypt(plaintext, key, iv)
		require.NoError(t, err)

		padding := len(ciphertext) - n
		assert.GreaterOrEqual(t, padding, 1, "length %d", n)
		assert.LessOrEqual(t, padding, aes.BlockSize, "length %d", n)
		assert.Zero(t, len(ciphertext)%aes.BlockSize)

		decrypted, err := SymmetricDecrypt(ciphertext, key, iv)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(plaintext, decrypted), "length %d", n)
	}
}

func TestPadUnpad(t *testing.T) {
	for n := 0; n <= 2*aes.BlockSize; n++ {
		data := bytes.Repeat([]byte{0xAB}, n)
		padded := pkcs7Pad(data, aes.BlockSize)
		assert.Zero(t, len(padded)%aes.BlockSize)

		padding := len(padded) - n
		assert.GreaterOrEqual(t, padding, 1, "length %d", n)
		assert.LessOrEqual(t, padding, aes.BlockSize, "length %d", n)
		if n%aes.BlockSize == 0 {
			assert.Equal(t, aes.BlockSize, padding, "aligned input gets a full block of padding")
		}
		assert.Equal(t, byte(padding), padded[len(padded)-1])

		unpadded, err := pkcs7Unpad(padded, aes.BlockSize)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}
}

func TestUnpadRejectsBadPadding(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unaligned", make([]byte, 15)},
		{"zero padding byte", make([]byte, 16)},
		{"padding larger than block", append(make([]byte, 15), 17)},
		{"inconsistent bytes", append(bytes.Repeat([]byte{1}, 14), 2, 2+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pkcs7Unpad(tc.data, aes.BlockSize)
			assert.ErrorIs(t, err, ErrInvalidPadding)
		})
	}
}

func TestSymmetricRejectsBadParameters(t *testing.T) {
	key := randomBytes(t, SymmetricKeySize)
	iv := randomBytes(t, IVSize)

	_, err := SymmetricEncrypt([]byte("x"), key[:16], iv)
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = SymmetricEncrypt([]byte("x"), key, iv[:8])
	assert.ErrorIs(t, err, ErrInvalidIVSize)

	_, err = SymmetricDecrypt([]byte("short"), key, iv)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = SymmetricDecrypt(nil, key, iv)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSymmetricWrongKeyFails(t *testing.T) {
	key := randomBytes(t, SymmetricKeySize)
	other := randomBytes(t, SymmetricKeySize)
	iv, err := GenerateIV()
	require.NoError(t, err)

	plaintext := []byte(base64.StdEncoding.EncodeToString(randomBytes(t, NonceSize)))
	ciphertext, err := SymmetricEncrypt(plaintext, key, iv)
	require.NoError(t, err)

	decrypted, err := SymmetricDecrypt(ciphertext, other, iv)
	if err == nil {
		assert.NotEqual(t, plaintext, decrypted)
	} else {
		assert.ErrorIs(t, err, ErrInvalidPadding)
	}
}

func TestGenerateIVDistinct(t *testing.T) {
	const samples = 2000
	seen := make(map[string]struct{}, samples)

	for i := 0; i < samples; i++ {
		iv, err := GenerateIV()
		require.NoError(t, err)
		require.Len(t, iv, IVSize)

		_, dup := seen[string(iv)]
		require.False(t, dup, "IV reused after %d samples", i)
		seen[string(iv)] = struct{}{}
	}
}

func TestGenerateNonce(t *testing.T) {
	n1, err := GenerateNonce()
	require.NoError(t, err)
	n2, err := GenerateNonce()
	require.NoError(t, err)

	assert.Len(t, n1, NonceSize)
	assert.NotEqual(t, n1, n2)
}

func TestSignVerify(t *testing.T) {
	alice, bob := loadTestKeys(t)

	digest := Digest([]byte("alice"), randomBytes(t, IVSize))
	sig, err := Sign(digest, alice.Private)
	require.NoError(t, err)

	assert.True(t, Verify(digest, sig, alice.Public))
	assert.False(t, Verify(digest, sig, bob.Public), "wrong key must not verify")

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0x01
	assert.False(t, Verify(digest, tampered, alice.Public), "flipped bit must not verify")

	other := Digest([]byte("mallory"))
	assert.False(t, Verify(other, sig, alice.Public))

	assert.False(t, Verify(digest, sig, nil))

	_, err = Sign([]byte("not a digest"), alice.Private)
	assert.Error(t, err)

	_, err = Sign(digest, nil)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestDigestConcatenation(t *testing.T) {
	assert.Equal(t, Digest([]byte("ab"), []byte("c")), Digest([]byte("abc")))
	assert.Len(t, Digest(), 32)
}

func TestKeyMaterialValidate(t *testing.T) {
	alice, server := loadTestKeys(t)

	km, err := NewKeyMaterial(alice.Private, alice.Public, server.Public)
	require.NoError(t, err)
	assert.Same(t, server.Public, km.ServerPublic)

	_, err = NewKeyMaterial(alice.Private, server.Public, server.Public)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = NewKeyMaterial(alice.Private, alice.Public, nil)
	assert.ErrorIs(t, err, ErrMissingKey)

	var nilKM *KeyMaterial
	assert.True(t, errors.Is(nilKM.Validate(), ErrMissingKey))
}

func TestGenerateKeyPairRejectsSmallModulus(t *testing.T) {
	_, err := GenerateKeyPair(512)
	assert.Error(t, err)
}
