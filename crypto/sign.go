package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	"github.com/samber/oops"
)

// Digest returns the SHA-256 hash of the concatenation of parts.
func Digest(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Sign produces an RSA PKCS#1 v1.5 signature over a SHA-256 digest.
func Sign(digest []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, ErrMissingKey
	}
	if len(digest) != sha256.Size {
		return nil, oops.Errorf("digest must be %d bytes, got %d", sha256.Size, len(digest))
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to sign digest")
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of digest under pub.
func Verify(digest, sig []byte, pub *rsa.PublicKey) bool {
	if pub == nil || len(digest) != sha256.Size {
		return false
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig) == nil
}
