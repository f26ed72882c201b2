package crypto

import (
	"bytes"
	"crypto/subtle"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// pkcs7Pad appends between 1 and blockSize bytes so the result is block aligned.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	padded := make([]byte, len(data), len(data)+padding)
	copy(padded, data)
	padded = append(padded, bytes.Repeat([]byte{byte(padding)}, padding)...)

	logrus.WithFields(logrus.Fields{
		"function":      "pkcs7Pad",
		"data_length":   len(data),
		"padding":       padding,
		"padded_length": len(padded),
	}).Debug("PKCS#7 padding applied")

	return padded
}

// pkcs7Unpad strips and checks PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	length := len(data)
	if length == 0 || length%blockSize != 0 {
		return nil, oops.Wrapf(ErrInvalidPadding, "padded length %d is not a multiple of %d", length, blockSize)
	}

	padding := int(data[length-1])
	if padding == 0 || padding > blockSize {
		return nil, oops.Wrapf(ErrInvalidPadding, "padding byte %d out of range", padding)
	}

	expected := bytes.Repeat([]byte{byte(padding)}, padding)
	if subtle.ConstantTimeCompare(data[length-padding:], expected) != 1 {
		return nil, oops.Wrapf(ErrInvalidPadding, "inconsistent padding bytes")
	}

	return data[:length-padding], nil
}
