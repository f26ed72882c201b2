// Package testserver provides a scripted responder for the secureim login
// protocol.
//
// The responder plays the server's side of all three rounds over a real UDP
// socket so that handshake.Client can be exercised end to end. Options inject
// faults such as a silent server, a corrupted signature, or a tampered nonce
// echo.
//
// This is test infrastructure. It keeps no persistent state and implements
// none of the server's account management.
package testserver
