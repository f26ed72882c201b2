// Package secureim is the root of the secureim login client.
//
// secureim authenticates a user to a server over UDP with a three-round
// handshake. Both sides prove their identity with RSA signatures, the user
// also proves knowledge of a password, and the exchange ends with a fresh
// AES-256 session key that only the two parties know.
//
// # Packages
//
//   - crypto: the envelope cipher, signatures, Diffie-Hellman, and IV/nonce generation
//   - handshake: the client state machine and wire messages
//   - chat: the post-login relay of sealed text lines
//   - transport: the UDP datagram transport with bounded, timed receives
//   - limits: per-round datagram and field size bounds
//   - keys: RSA key file loading and generation
//   - config: viper-backed client settings
//   - testserver: a scripted server for tests
//   - cmd/secureim: the command-line client
//
// # Getting Started
//
//	km, err := keys.Load(keys.Paths{
//	    Private:      "alice_priv.txt",
//	    Public:       "alice_pub.txt",
//	    ServerPublic: "server_pub_key.txt",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tr, err := transport.DialUDP("localhost:9999")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.Close()
//
//	client, err := handshake.NewClient(handshake.DefaultConfig(), km, tr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	creds, err := handshake.NewCredentials("alice", password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := client.Login(ctx, creds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer crypto.ZeroBytes(result.SessionKey)
//
// # Security Notes
//
// The password hash is a single unsalted SHA-256 and is used directly as an
// AES key, which matches deployed servers but offers no resistance to offline
// guessing once a handshake transcript and the client's private key are both
// compromised. Signatures do not cover the ciphertexts they accompany.
package secureim
