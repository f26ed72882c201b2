package crypto

import (
	"testing"
)

func TestSecureMemoryHandling(t *testing.T) {
	key, err := GenerateNonce()
	if err != nil {
		t.Fatalf("Failed to generate key material: %v", err)
	}

	allZeroInitially := true
	for _, b := range key {
		if b != 0 {
			allZeroInitially = false
			break
		}
	}
	if allZeroInitially {
		t.Fatalf("Key material is all zeros before wiping, test cannot proceed")
	}

	if err := SecureWipe(key); err != nil {
		t.Fatalf("SecureWipe failed: %v", err)
	}

	for i, b := range key {
		if b != 0 {
			t.Fatalf("byte %d was not wiped", i)
		}
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("SecureWipe should reject nil input")
	}

	// ZeroBytes tolerates nil.
	ZeroBytes(nil)
}

func TestHashPasswordWipesSecret(t *testing.T) {
	secret := []byte("correct horse battery staple")
	again := []byte("correct horse battery staple")

	h1 := HashPassword(secret)
	h2 := HashPassword(again)

	if h1 != h2 {
		t.Error("HashPassword is not deterministic")
	}
	for i, b := range secret {
		if b != 0 {
			t.Fatalf("secret byte %d was not wiped", i)
		}
	}
	if h1 == HashPassword([]byte("another secret")) {
		t.Error("different secrets produced the same hash")
	}
}
