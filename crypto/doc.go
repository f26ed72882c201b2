// Package crypto implements the envelope cipher used by the secureim login protocol.
//
// The package provides the stateless primitives the handshake is built from:
// hybrid public-key encryption, password and shared-key symmetric encryption,
// detached signatures, ephemeral Diffie-Hellman, and random IV/nonce generation.
//
// # Hybrid Encryption
//
// A payload is encrypted with a fresh AES-256 key and IV, and the key ‖ IV pair
// is transported under the recipient's RSA public key with OAEP padding:
//
//	env, err := crypto.HybridEncrypt([]byte("alice,aXY=,c2ln,ZGg="), serverPublicKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fields, err := crypto.HybridDecrypt(env, serverPrivateKey)
//
// HybridDecrypt splits the recovered plaintext on FieldDelimiter. Every failure
// of the key-transport block is reported as [ErrKeyTransport] with no further
// detail, so callers cannot tell a padding failure from any other RSA failure.
//
// # Symmetric Encryption
//
// SymmetricEncrypt and SymmetricDecrypt run AES-CBC with PKCS#7 padding. Every
// call must use an IV from [GenerateIV]; an IV is never reused with the same key.
//
// # Signatures
//
// Sign and Verify produce and check RSA PKCS#1 v1.5 signatures over SHA-256
// digests computed with [Digest].
//
// # Diffie-Hellman
//
// DHExchange wraps an ephemeral X25519 key pair from the Noise DH25519 function.
// The 32-byte shared secret is used directly as the AES-256 session key.
//
// # Known Weakness
//
// The password-derived step encrypts the DH public value with the raw SHA-256
// password hash as AES key material, without a key-derivation function. This
// matches the deployed server and is kept deliberately; see [HashPassword].
//
// # Secure Memory Handling
//
// Sensitive buffers should be wiped once no longer needed:
//
//	defer crypto.ZeroBytes(sessionKey)
//	defer dh.Wipe()
package crypto
