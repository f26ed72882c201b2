package handshake

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/limits"
	"github.com/opd-ai/secureim/transport"
	"github.com/sirupsen/logrus"
)

// Client drives login attempts against one server.
type Client struct {
	config    Config
	keys      *crypto.KeyMaterial
	transport transport.Transport
}

// Result is the outcome of a successful login.
type Result struct {
	Username string
	// SessionKey is the 32-byte AES-256 key agreed with the server. The caller
	// owns it and should erase it with crypto.ZeroBytes when done.
	SessionKey []byte
	Elapsed    time.Duration
	History    []Transition
}

// round advances a session by one protocol step. On failure the returned
// session is in StateFailed and still holds any secrets created by the step,
// so the caller can erase them.
type round func(ctx context.Context, s Session) (Session, error)

// NewClient creates a client. keys must hold a matching RSA pair and the
// server's public key.
func NewClient(config Config, keys *crypto.KeyMaterial, tr transport.Transport) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("key material: %w", err)
	}
	if tr == nil {
		return nil, errors.New("transport is required")
	}
	return &Client{config: config, keys: keys, transport: tr}, nil
}

// Login runs the three-round handshake and returns the session key once the
// server has proven knowledge of it. Credentials that fail validation are
// rejected with a plain error before any datagram is sent; every handshake
// failure after that is a *Error.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Result, error) {
	if err := limits.ValidateUsername(creds.Username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"function": "Client.Login",
		"username": creds.Username,
		"server":   c.transport.RemoteAddr().String(),
	})
	logger.Info("Starting login handshake")

	start := time.Now()
	s := newSession(creds, c.keys)

	rounds := []round{
		c.requestCookie,
		c.sendCredentials,
		c.verifyServer,
		c.sendChallenge,
		c.confirmChallenge,
	}
	for _, step := range rounds {
		next, err := step(ctx, s)
		if err != nil {
			next.discard()
			logger.WithFields(logrus.Fields{
				"state": s.state.String(),
				"kind":  KindOf(err),
			}).Warn("Login handshake failed")
			return nil, err
		}
		s = next
	}

	// The DH private value and nonces are no longer needed.
	s.dh.Wipe()
	crypto.ZeroBytes(s.serverNonce)
	crypto.ZeroBytes(s.clientNonce)

	result := &Result{
		Username:   creds.Username,
		SessionKey: s.sharedKey,
		Elapsed:    time.Since(start),
		History:    s.History(),
	}

	logger.WithFields(logrus.Fields{
		"elapsed":     result.Elapsed,
		"fingerprint": crypto.Fingerprint(result.SessionKey),
	}).Info("Login handshake established")

	return result, nil
}

// requestCookie sends the login intent and waits for the server cookie.
func (c *Client) requestCookie(ctx context.Context, s Session) (Session, error) {
	if err := c.transport.Send([]byte(transport.LoginTag)); err != nil {
		return s.fail(ErrServerUnresponsive, err)
	}

	cookie, err := c.receive(ctx, c.config.CookieTimeout, limits.MaxCookieDatagram)
	if err != nil {
		return s.fail(receiveKind(err), err)
	}
	if err := limits.ValidateCookie(cookie); err != nil {
		return s.fail(ErrMalformedMessage, err)
	}

	next := s.advance(StateCookieReceived)
	next.cookie = cookie

	logrus.WithFields(crypto.SecureFieldHash(cookie, "cookie")).
		WithField("function", "Client.requestCookie").
		Debug("Cookie received")

	return next, nil
}

// sendCredentials proves possession of the client's private key and password
// hash, and offers a fresh DH value.
func (c *Client) sendCredentials(ctx context.Context, s Session) (Session, error) {
	dh, err := crypto.NewDHExchange()
	if err != nil {
		return s.fail(ErrInternal, err)
	}
	working := s
	working.dh = dh

	iv, err := crypto.GenerateIV()
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	encryptedDH, err := SealValue(dh.PublicValue(), s.creds.PasswordHash[:], iv)
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	signature, err := crypto.Sign(crypto.Digest([]byte(s.creds.Username), iv), s.keys.Own.Private)
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	request := LoginRequest{
		Username:    s.creds.Username,
		IV:          iv,
		Signature:   signature,
		EncryptedDH: encryptedDH,
	}
	env, err := crypto.HybridEncrypt(crypto.JoinFields(request.Fields()...), s.keys.ServerPublic)
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	if err := c.transport.Send(EncodeLoginFrame(s.cookie, env)); err != nil {
		return working.fail(ErrServerUnresponsive, err)
	}

	logrus.WithField("function", "Client.sendCredentials").Debug("Credentials sent")

	return working.advance(StateCredentialsSent), nil
}

// verifyServer authenticates the round-2 reply and derives the session key.
// Nothing from the reply is used before its signature has been checked.
func (c *Client) verifyServer(ctx context.Context, s Session) (Session, error) {
	data, err := c.receive(ctx, c.config.RoundTimeout, limits.MaxLoginReply)
	if err != nil {
		return s.fail(receiveKind(err), err)
	}

	fields, err := c.openEnvelope(data)
	if err != nil {
		return s.failWith(err)
	}

	auth, err := ParseServerAuth(fields)
	if err != nil {
		return s.fail(ErrMalformedMessage, err)
	}

	if !crypto.Verify(crypto.Digest(auth.IV), auth.Signature, s.keys.ServerPublic) {
		return s.fail(ErrAuthenticationFailed, errors.New("server signature does not verify"))
	}

	// Only a server holding the password hash can seal a usable DH value.
	serverDH, err := OpenValue(auth.EncryptedDH, s.creds.PasswordHash[:], auth.IV)
	if err != nil {
		return s.fail(ErrAuthenticationFailed, fmt.Errorf("server DH value: %w", err))
	}

	sharedKey, err := s.dh.SharedSecret(serverDH)
	if err != nil {
		return s.fail(ErrAuthenticationFailed, err)
	}

	next := s.advance(StateServerAuthVerified)
	next.serverNonce = auth.Nonce
	next.sharedKey = sharedKey

	logrus.WithFields(crypto.SecureFieldHash(auth.Nonce, "server_nonce")).
		WithFields(logrus.Fields{
			"function":    "Client.verifyServer",
			"fingerprint": crypto.Fingerprint(sharedKey),
		}).Debug("Server authenticated")

	return next, nil
}

// sendChallenge proves knowledge of the session key and issues the client
// challenge.
func (c *Client) sendChallenge(ctx context.Context, s Session) (Session, error) {
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return s.fail(ErrInternal, err)
	}
	working := s
	working.clientNonce = nonce

	iv, err := crypto.GenerateIV()
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	echo, err := SealValue(s.serverNonce, s.sharedKey, iv)
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	challenge := Challenge{IV: iv, EncryptedEcho: echo, Nonce: nonce}
	env, err := crypto.HybridEncrypt(crypto.JoinFields(challenge.Fields()...), s.keys.ServerPublic)
	if err != nil {
		return working.fail(ErrInternal, err)
	}

	if err := c.transport.Send(EncodeEnvelope(env)); err != nil {
		return working.fail(ErrServerUnresponsive, err)
	}

	logrus.WithField("function", "Client.sendChallenge").Debug("Challenge sent")

	return working.advance(StateChallengeSent), nil
}

// confirmChallenge checks that the server echoed the client challenge under
// the session key.
func (c *Client) confirmChallenge(ctx context.Context, s Session) (Session, error) {
	data, err := c.receive(ctx, c.config.RoundTimeout, limits.MaxChallengeReply)
	if err != nil {
		return s.fail(receiveKind(err), err)
	}

	fields, err := c.openEnvelope(data)
	if err != nil {
		return s.failWith(err)
	}

	reply, err := ParseChallengeReply(fields)
	if err != nil {
		return s.fail(ErrMalformedMessage, err)
	}

	echo, err := OpenValue(reply.EncryptedEcho, s.sharedKey, reply.IV)
	if err != nil {
		return s.fail(ErrChallengeMismatch, err)
	}
	defer crypto.ZeroBytes(echo)

	if subtle.ConstantTimeCompare(echo, s.clientNonce) != 1 {
		return s.fail(ErrChallengeMismatch, errors.New("nonce echo differs"))
	}

	return s.advance(StateEstablished), nil
}

// receive waits for one datagram and rejects empty ones.
func (c *Client) receive(ctx context.Context, timeout time.Duration, maxSize int) ([]byte, error) {
	data, err := c.transport.Receive(ctx, timeout, maxSize)
	if err != nil {
		return nil, err
	}
	if err := limits.ValidateMessageSize(data, maxSize); err != nil {
		return nil, err
	}
	return data, nil
}

// openEnvelope decodes and decrypts a server envelope addressed to this client.
func (c *Client) openEnvelope(data []byte) ([][]byte, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedMessage, Err: err}
	}

	fields, err := crypto.HybridDecrypt(env, c.keys.Own.Private)
	switch {
	case err == nil:
		return fields, nil
	case errors.Is(err, crypto.ErrKeyTransport):
		return nil, &Error{Kind: ErrKeyTransport}
	case errors.Is(err, crypto.ErrMalformedEnvelope):
		return nil, &Error{Kind: ErrMalformedMessage, Err: err}
	default:
		return nil, &Error{Kind: ErrInternal, Err: err}
	}
}

// receiveKind classifies a transport receive failure.
func receiveKind(err error) error {
	switch {
	case errors.Is(err, transport.ErrDatagramTooLarge),
		errors.Is(err, limits.ErrMessageEmpty),
		errors.Is(err, limits.ErrMessageTooLarge):
		return ErrMalformedMessage
	default:
		// Timeouts, cancellation, and socket errors all mean no usable reply.
		return ErrServerUnresponsive
	}
}

// fail moves s to StateFailed and builds the matching error.
func (s Session) fail(kind, cause error) (Session, error) {
	hsErr := newError(kind, s.state, cause)
	if kind == ErrKeyTransport {
		hsErr.Err = nil
	}
	return s.advance(StateFailed), hsErr
}

// failWith fails s with a pre-classified error from openEnvelope.
func (s Session) failWith(err error) (Session, error) {
	var hsErr *Error
	if errors.As(err, &hsErr) {
		return s.fail(hsErr.Kind, hsErr.Err)
	}
	return s.fail(ErrInternal, err)
}
