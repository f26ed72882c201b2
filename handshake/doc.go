// Package handshake implements the client side of the secureim login protocol.
//
// A login is a three-round exchange over a connectionless transport that turns
// a username, a password hash, and long-lived RSA keys into a mutually verified
// AES-256 session key:
//
//	INIT → COOKIE_RECEIVED → CREDENTIALS_SENT → SERVER_AUTH_VERIFIED → CHALLENGE_SENT → ESTABLISHED
//
// Any step may instead end in FAILED. Failures are never retried here; a caller
// that wants another attempt calls Login again, which starts over from INIT.
//
// # Usage
//
//	creds, err := handshake.NewCredentials("alice", password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := handshake.NewClient(handshake.DefaultConfig(), keyMaterial, tr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := client.Login(ctx, creds)
//	switch {
//	case errors.Is(err, handshake.ErrServerUnresponsive):
//	    // nothing came back in time
//	case errors.Is(err, handshake.ErrAuthenticationFailed):
//	    // the server could not prove its identity
//	case err != nil:
//	    // other failure kinds
//	}
//	defer crypto.ZeroBytes(result.SessionKey)
//
// # Session Values
//
// Each round is a function from one Session value to the next. Sessions are
// never modified in place, and every transition is appended to a history that
// can be inspected with Session.History.
//
// # Wire Format
//
// Frames are comma-separated text. Binary values are base64 encoded, and values
// protected by a symmetric key carry base64 text inside the AES plaintext. The
// message types in messages.go cover both directions so the server side can be
// simulated in tests.
package handshake
