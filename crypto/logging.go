package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SecureFieldHash creates a loggable preview of sensitive data.
// Only the first 8 bytes and the length are exposed.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	preview := "nil"
	if len(data) > 0 {
		previewLen := 8
		if len(data) < previewLen {
			previewLen = len(data)
		}
		preview = fmt.Sprintf("%x", data[:previewLen])
		if len(data) > previewLen {
			preview += "..."
		}
	}

	return logrus.Fields{
		name + "_preview": preview,
		name + "_size":    len(data),
	}
}

// Fingerprint returns a short hex digest suitable for displaying a key to a user.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%x", Digest(data)[:8])
}
