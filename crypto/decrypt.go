package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// SymmetricDecrypt decrypts AES-CBC ciphertext and strips its PKCS#7 padding.
func SymmetricDecrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, oops.Wrapf(ErrInvalidCiphertext, "length %d", len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		ZeroBytes(padded)
		return nil, err
	}
	return plaintext, nil
}

// HybridDecrypt opens an envelope with the recipient's private key and returns
// the plaintext split on FieldDelimiter.
//
// Any rejection of the key-transport block, including a recovered block of the
// wrong length, is reported as ErrKeyTransport with no wrapped cause.
func HybridDecrypt(env *Envelope, recipient *rsa.PrivateKey) ([][]byte, error) {
	if recipient == nil {
		return nil, ErrMissingKey
	}
	if env == nil {
		return nil, oops.Wrapf(ErrMalformedEnvelope, "nil envelope")
	}

	transport, err := base64.StdEncoding.DecodeString(env.TransportKeys)
	if err != nil {
		return nil, oops.Wrapf(ErrMalformedEnvelope, "transport keys are not base64")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, oops.Wrapf(ErrMalformedEnvelope, "ciphertext is not base64")
	}

	keyAndIV, err := rsa.DecryptOAEP(sha1.New(), nil, recipient, transport, nil)
	if err != nil || len(keyAndIV) != SymmetricKeySize+IVSize {
		ZeroBytes(keyAndIV)
		logrus.WithField("function", "HybridDecrypt").Warn("Key transport block rejected")
		return nil, ErrKeyTransport
	}
	defer ZeroBytes(keyAndIV)

	plaintext, err := SymmetricDecrypt(ciphertext, keyAndIV[:SymmetricKeySize], keyAndIV[SymmetricKeySize:])
	if err != nil {
		return nil, oops.Wrapf(ErrMalformedEnvelope, "envelope payload: %v", err)
	}

	fields := SplitFields(plaintext)

	logrus.WithFields(logrus.Fields{
		"function":    "HybridDecrypt",
		"field_count": len(fields),
	}).Debug("Envelope opened")

	return fields, nil
}
