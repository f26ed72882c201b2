// Package chat relays text lines over a transport once a login handshake has
// agreed a session key.
//
// Outgoing lines are sent as "MESSAGE:" followed by a sealed body, and the
// server relays other users' lines back as "INCOMING:" followed by a body
// sealed under this client's session key. A body is the base64 IV and the
// base64 ciphertext joined by the field delimiter.
//
// # Usage
//
//	result, err := client.Login(ctx, creds)
//	if err != nil {
//	    return err
//	}
//	relay, err := chat.NewRelay(tr, result.SessionKey, os.Stdin, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	return relay.Run(ctx)
//
// Run returns when ctx is cancelled, the input reaches EOF, or the transport
// fails.
package chat
