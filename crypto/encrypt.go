package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// GenerateIV returns a fresh random AES-CBC initialization vector.
func GenerateIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, oops.Wrapf(err, "failed to generate IV")
	}
	return iv, nil
}

// GenerateNonce returns a fresh random challenge nonce.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, oops.Wrapf(err, "failed to generate nonce")
	}
	return nonce, nil
}

// SymmetricEncrypt pads plaintext with PKCS#7 and encrypts it with AES-CBC.
// key must be 32 bytes and iv must be a fresh IV from GenerateIV.
func SymmetricEncrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	ZeroBytes(padded)

	return ciphertext, nil
}

// HybridEncrypt encrypts plaintext under a fresh AES key and IV and transports
// key ‖ IV to the holder of recipient's private key with RSA-OAEP.
func HybridEncrypt(plaintext []byte, recipient *rsa.PublicKey) (*Envelope, error) {
	if recipient == nil {
		return nil, ErrMissingKey
	}

	keyAndIV := make([]byte, SymmetricKeySize+IVSize)
	defer ZeroBytes(keyAndIV)
	if _, err := rand.Read(keyAndIV); err != nil {
		return nil, oops.Wrapf(err, "failed to generate envelope key")
	}
	key, iv := keyAndIV[:SymmetricKeySize], keyAndIV[SymmetricKeySize:]

	ciphertext, err := SymmetricEncrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}

	transport, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, recipient, keyAndIV, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to encrypt envelope key")
	}

	logrus.WithFields(logrus.Fields{
		"function":          "HybridEncrypt",
		"plaintext_length":  len(plaintext),
		"ciphertext_length": len(ciphertext),
		"transport_length":  len(transport),
	}).Debug("Envelope sealed")

	return &Envelope{
		TransportKeys: base64.StdEncoding.EncodeToString(transport),
		Ciphertext:    base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// newBlock validates key and IV sizes and builds the AES block cipher.
func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != SymmetricKeySize {
		return nil, oops.Wrapf(ErrInvalidKeySize, "got %d bytes, want %d", len(key), SymmetricKeySize)
	}
	if len(iv) != aes.BlockSize {
		return nil, oops.Wrapf(ErrInvalidIVSize, "got %d bytes, want %d", len(iv), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create AES cipher")
	}
	return block, nil
}
