// Package keys loads and writes the RSA key files used by the login client.
//
// Private keys may be PEM encoded PKCS#1, PKCS#8, or OpenSSH. Public keys may
// be PEM "PUBLIC KEY" (PKIX), PEM "RSA PUBLIC KEY" (PKCS#1), or a single
// authorized_keys line.
package keys

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opd-ai/secureim/crypto"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// ErrNotRSA indicates a key of some other algorithm.
var ErrNotRSA = errors.New("key is not RSA")

// Paths names the three key files a client needs.
type Paths struct {
	Private      string
	Public       string
	ServerPublic string
}

// Load reads and cross-checks all key files named by p.
func Load(p Paths) (*crypto.KeyMaterial, error) {
	priv, err := LoadPrivateKey(p.Private)
	if err != nil {
		return nil, err
	}
	pub, err := LoadPublicKey(p.Public)
	if err != nil {
		return nil, err
	}
	serverPub, err := LoadPublicKey(p.ServerPublic)
	if err != nil {
		return nil, err
	}

	km, err := crypto.NewKeyMaterial(priv, pub, serverPub)
	if err != nil {
		return nil, oops.Wrapf(err, "key files %s and %s", p.Private, p.Public)
	}

	logrus.WithFields(logrus.Fields{
		"function": "keys.Load",
		"private":  p.Private,
		"server":   p.ServerPublic,
		"bits":     priv.N.BitLen(),
	}).Debug("Key material loaded")

	return km, nil
}

// LoadPrivateKey reads an RSA private key file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "read private key")
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, oops.Wrapf(err, "parse private key %s", path)
	}
	return key, nil
}

// LoadPublicKey reads an RSA public key file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "read public key")
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, oops.Wrapf(err, "parse public key %s", path)
	}
	return key, nil
}

// ParsePrivateKey decodes an RSA private key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	raw, err := ssh.ParseRawPrivateKey(bytes.TrimSpace(data))
	if err != nil {
		return nil, err
	}
	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotRSA, raw)
	}
	return key, nil
}

// ParsePublicKey decodes an RSA public key.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	data = bytes.TrimSpace(data)

	if block, _ := pem.Decode(data); block != nil {
		switch block.Type {
		case "PUBLIC KEY":
			raw, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			key, ok := raw.(*rsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("%w: got %T", ErrNotRSA, raw)
			}
			return key, nil
		case "RSA PUBLIC KEY":
			return x509.ParsePKCS1PublicKey(block.Bytes)
		default:
			return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
		}
	}

	sshKey, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("neither PEM nor authorized_keys: %w", err)
	}
	cryptoKey, ok := sshKey.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRSA, sshKey.Type())
	}
	key, ok := cryptoKey.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRSA, sshKey.Type())
	}
	return key, nil
}

// MarshalPrivateKey encodes key as a PEM "RSA PRIVATE KEY" block.
func MarshalPrivateKey(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// MarshalPublicKey encodes key as a PEM "PUBLIC KEY" block.
func MarshalPublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// WriteKeyPair generates a key pair and writes <name>_priv.txt and
// <name>_pub.txt into dir. Existing files are not overwritten.
func WriteKeyPair(dir, name string, bits int) (Paths, error) {
	pair, err := crypto.GenerateKeyPair(bits)
	if err != nil {
		return Paths{}, err
	}

	paths := Paths{
		Private: filepath.Join(dir, name+"_priv.txt"),
		Public:  filepath.Join(dir, name+"_pub.txt"),
	}

	pubPEM, err := MarshalPublicKey(pair.Public)
	if err != nil {
		return Paths{}, err
	}
	if err := writeNew(paths.Private, MarshalPrivateKey(pair.Private), 0o600); err != nil {
		return Paths{}, err
	}
	if err := writeNew(paths.Public, pubPEM, 0o644); err != nil {
		return Paths{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "keys.WriteKeyPair",
		"private":  paths.Private,
		"public":   paths.Public,
		"bits":     bits,
	}).Info("Key pair written")

	return paths, nil
}

func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return oops.Wrapf(err, "create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return oops.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
