package handshake

import (
	"slices"
	"time"

	"github.com/opd-ai/secureim/crypto"
)

// State is a position in the login state machine.
type State uint8

const (
	StateInit State = iota
	StateCookieReceived
	StateCredentialsSent
	StateServerAuthVerified
	StateChallengeSent
	StateEstablished
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCookieReceived:
		return "COOKIE_RECEIVED"
	case StateCredentialsSent:
		return "CREDENTIALS_SENT"
	case StateServerAuthVerified:
		return "SERVER_AUTH_VERIFIED"
	case StateChallengeSent:
		return "CHALLENGE_SENT"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateEstablished || s == StateFailed
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Session is the client's view of one login attempt. Round functions take a
// Session and return the next one; a Session is never changed after it has
// been returned.
type Session struct {
	state State
	creds Credentials
	keys  *crypto.KeyMaterial

	cookie []byte
	dh     *crypto.DHExchange

	// serverNonce is issued by the server in round 2 and echoed in round 3.
	serverNonce []byte
	// clientNonce is issued by the client in round 3 and echoed back.
	clientNonce []byte

	sharedKey []byte
	history   []Transition
}

func newSession(creds Credentials, keys *crypto.KeyMaterial) Session {
	return Session{state: StateInit, creds: creds, keys: keys}
}

// State returns the current state.
func (s Session) State() State {
	return s.state
}

// History returns the transitions taken so far, oldest first.
func (s Session) History() []Transition {
	return slices.Clone(s.history)
}

// advance returns a copy of s in state to with the transition recorded.
func (s Session) advance(to State) Session {
	next := s
	next.state = to
	next.history = append(slices.Clone(s.history), Transition{
		From: s.state,
		To:   to,
		At:   time.Now(),
	})
	return next
}

// discard erases all ephemeral secrets reachable from s.
func (s Session) discard() {
	s.dh.Wipe()
	crypto.ZeroBytes(s.sharedKey)
	crypto.ZeroBytes(s.serverNonce)
	crypto.ZeroBytes(s.clientNonce)
}
