package testserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/secureim/chat"
	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/handshake"
	"github.com/opd-ai/secureim/limits"
	"github.com/opd-ai/secureim/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// pollInterval bounds each receive so Serve notices cancellation.
const pollInterval = 50 * time.Millisecond

// User is a registered account.
type User struct {
	PublicKey    *rsa.PublicKey
	PasswordHash [crypto.PasswordHashSize]byte
}

// chatRound marks records of relayed chat messages.
const chatRound = 4

// ExchangeRecord describes one datagram the server handled. Rounds 1 to 3
// are the login handshake and round 4 is a relayed chat message.
type ExchangeRecord struct {
	Round     int
	Peer      string
	Size      int
	Timestamp int64
	Success   bool
	Error     error
}

// Option configures a Server.
type Option func(*Server)

// WithSilence makes the server drop every datagram.
func WithSilence() Option {
	return func(s *Server) { s.silent = true }
}

// WithSignatureTamper flips a bit of the round-2 signature.
func WithSignatureTamper() Option {
	return func(s *Server) { s.tamperSignature = true }
}

// WithNonceTamper flips a bit of the client nonce before echoing it.
func WithNonceTamper() Option {
	return func(s *Server) { s.tamperNonce = true }
}

// WithCookie replaces the generated round-1 cookie.
func WithCookie(cookie []byte) Option {
	return func(s *Server) { s.cookieOverride = cookie }
}

// WithCookieRate limits how many cookies the server hands out. Requests over
// the limit are dropped.
func WithCookieRate(limit rate.Limit, burst int) Option {
	return func(s *Server) { s.cookieLimiter = rate.NewLimiter(limit, burst) }
}

// WithLoginReply rewrites the raw round-2 reply before it is sent.
func WithLoginReply(rewrite func(reply []byte) []byte) Option {
	return func(s *Server) { s.rewriteLogin = rewrite }
}

// WithChallengeReply rewrites the raw round-3 reply before it is sent.
func WithChallengeReply(rewrite func(reply []byte) []byte) Option {
	return func(s *Server) { s.rewriteChallenge = rewrite }
}

// pendingLogin is a client between round 2 and round 3.
type pendingLogin struct {
	username  string
	sharedKey []byte
	nonce     []byte
}

// peer is a client that completed the handshake.
type peer struct {
	username   string
	sessionKey []byte
	addr       net.Addr
}

// Server answers login handshakes on a loopback UDP socket and relays chat
// lines between logged-in peers.
type Server struct {
	listener *transport.UDPListener
	keys     *crypto.KeyPair
	secret   []byte
	replay   *crypto.ReplayGuard

	mu       sync.RWMutex
	users    map[string]User
	pending  map[string]*pendingLogin
	sessions map[string][]byte
	peers    map[string]*peer
	records  []ExchangeRecord

	silent           bool
	tamperSignature  bool
	tamperNonce      bool
	cookieOverride   []byte
	cookieLimiter    *rate.Limiter
	rewriteLogin     func([]byte) []byte
	rewriteChallenge func([]byte) []byte
}

// New binds a server to an ephemeral loopback port.
func New(keys *crypto.KeyPair, opts ...Option) (*Server, error) {
	if keys == nil || keys.Private == nil {
		return nil, crypto.ErrMissingKey
	}

	secret, err := crypto.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("cookie secret: %w", err)
	}

	listener, err := transport.ListenUDP("127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: listener,
		keys:     keys,
		secret:   secret,
		replay:   crypto.NewReplayGuard(crypto.DefaultReplayWindow, nil),
		users:    make(map[string]User),
		pending:  make(map[string]*pendingLogin),
		sessions: make(map[string][]byte),
		peers:    make(map[string]*peer),

		cookieLimiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	logrus.WithFields(logrus.Fields{
		"function": "testserver.New",
		"addr":     listener.LocalAddr().String(),
	}).Info("Scripted login server listening")

	return s, nil
}

// Addr returns the address clients should dial.
func (s *Server) Addr() string {
	return s.listener.LocalAddr().String()
}

// AddUser registers an account.
func (s *Server) AddUser(username string, pub *rsa.PublicKey, passwordHash [crypto.PasswordHashSize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = User{PublicKey: pub, PasswordHash: passwordHash}
}

// SessionKey returns the key the server agreed with username in its most
// recent completed handshake.
func (s *Server) SessionKey(username string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.sessions[username]
	return append([]byte(nil), key...), ok
}

// Records returns a copy of the exchange log.
func (s *Server) Records() []ExchangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ExchangeRecord(nil), s.records...)
}

// Serve answers datagrams until ctx is cancelled or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	for {
		data, addr, err := s.listener.ReceiveFrom(ctx, pollInterval, limits.MaxDatagram)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, transport.ErrTimeout), errors.Is(err, transport.ErrDatagramTooLarge):
			continue
		case err != nil:
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if s.silent {
			continue
		}
		s.handle(data, addr)
	}
}

// Close shuts down the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handle(data []byte, addr net.Addr) {
	var (
		round int
		reply []byte
		err   error
	)

	switch {
	case handshake.IsLoginIntent(data):
		round = 1
		if s.cookieLimiter.Allow() {
			reply = s.cookieFor(addr)
		} else {
			err = errors.New("cookie rate exceeded")
		}
	case len(data) > len(transport.LoginTag) && string(data[:len(transport.LoginTag)+1]) == transport.LoginTag+",":
		round = 2
		reply, err = s.handleLogin(data, addr)
	case bytes.HasPrefix(data, []byte(transport.MessageTag)):
		round = chatRound
		err = s.relay(data, addr)
	default:
		round = 3
		reply, err = s.handleChallenge(data, addr)
	}

	if err == nil && reply != nil {
		err = s.listener.SendTo(reply, addr)
	}
	s.record(round, addr, len(data), err)
}

func (s *Server) record(round int, addr net.Addr, size int, err error) {
	s.mu.Lock()
	s.records = append(s.records, ExchangeRecord{
		Round:     round,
		Peer:      addr.String(),
		Size:      size,
		Timestamp: time.Now().UnixNano(),
		Success:   err == nil,
		Error:     err,
	})
	s.mu.Unlock()

	entry := logrus.WithFields(logrus.Fields{
		"function": "Server.handle",
		"round":    round,
		"peer":     addr.String(),
	})
	if err != nil {
		entry.WithError(err).Warn("Dropped datagram")
		return
	}
	entry.Debug("Handled datagram")
}

// cookieFor derives a stateless cookie bound to the peer address.
func (s *Server) cookieFor(addr net.Addr) []byte {
	if s.cookieOverride != nil {
		return s.cookieOverride
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(addr.String()))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func (s *Server) handleLogin(data []byte, addr net.Addr) ([]byte, error) {
	cookie, env, err := handshake.DecodeLoginFrame(data)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(cookie, s.cookieFor(addr)) {
		return nil, errors.New("cookie does not match peer")
	}

	fields, err := crypto.HybridDecrypt(env, s.keys.Private)
	if err != nil {
		return nil, err
	}
	request, err := handshake.ParseLoginRequest(fields)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	user, ok := s.users[request.Username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown user %q", request.Username)
	}

	if !crypto.Verify(crypto.Digest([]byte(request.Username), request.IV), request.Signature, user.PublicKey) {
		return nil, errors.New("client signature does not verify")
	}
	if !s.replay.CheckAndStore(request.IV) {
		return nil, errors.New("replayed login request")
	}

	clientDH, err := handshake.OpenValue(request.EncryptedDH, user.PasswordHash[:], request.IV)
	if err != nil {
		return nil, fmt.Errorf("client DH value: %w", err)
	}

	dh, err := crypto.NewDHExchange()
	if err != nil {
		return nil, err
	}
	defer dh.Wipe()

	sharedKey, err := dh.SharedSecret(clientDH)
	if err != nil {
		return nil, err
	}

	iv, err := crypto.GenerateIV()
	if err != nil {
		return nil, err
	}
	signature, err := crypto.Sign(crypto.Digest(iv), s.keys.Private)
	if err != nil {
		return nil, err
	}
	if s.tamperSignature {
		signature[len(signature)-1] ^= 0x01
	}
	encryptedDH, err := handshake.SealValue(dh.PublicValue(), user.PasswordHash[:], iv)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}

	auth := handshake.ServerAuth{IV: iv, Signature: signature, EncryptedDH: encryptedDH, Nonce: nonce}
	out, err := crypto.HybridEncrypt(crypto.JoinFields(auth.Fields()...), user.PublicKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pending[addr.String()] = &pendingLogin{username: request.Username, sharedKey: sharedKey, nonce: nonce}
	s.mu.Unlock()

	reply := handshake.EncodeEnvelope(out)
	if s.rewriteLogin != nil {
		reply = s.rewriteLogin(reply)
	}
	return reply, nil
}

func (s *Server) handleChallenge(data []byte, addr net.Addr) ([]byte, error) {
	s.mu.Lock()
	pending, ok := s.pending[addr.String()]
	delete(s.pending, addr.String())
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("no login in progress for peer")
	}

	env, err := handshake.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	fields, err := crypto.HybridDecrypt(env, s.keys.Private)
	if err != nil {
		return nil, err
	}
	challenge, err := handshake.ParseChallenge(fields)
	if err != nil {
		return nil, err
	}

	echo, err := handshake.OpenValue(challenge.EncryptedEcho, pending.sharedKey, challenge.IV)
	if err != nil {
		return nil, fmt.Errorf("server nonce echo: %w", err)
	}
	if !hmac.Equal(echo, pending.nonce) {
		return nil, errors.New("server nonce echo differs")
	}

	clientNonce := challenge.Nonce
	if s.tamperNonce {
		clientNonce = append([]byte(nil), clientNonce...)
		clientNonce[0] ^= 0x01
	}

	iv, err := crypto.GenerateIV()
	if err != nil {
		return nil, err
	}
	sealed, err := handshake.SealValue(clientNonce, pending.sharedKey, iv)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	user := s.users[pending.username]
	s.mu.RUnlock()

	reply := handshake.ChallengeReply{IV: iv, EncryptedEcho: sealed}
	out, err := crypto.HybridEncrypt(crypto.JoinFields(reply.Fields()...), user.PublicKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[pending.username] = pending.sharedKey
	s.peers[addr.String()] = &peer{username: pending.username, sessionKey: pending.sharedKey, addr: addr}
	s.mu.Unlock()

	raw := handshake.EncodeEnvelope(out)
	if s.rewriteChallenge != nil {
		raw = s.rewriteChallenge(raw)
	}
	return raw, nil
}

// relay forwards a chat line from a logged-in peer to every other logged-in
// peer as "username: text", sealed under each recipient's session key.
func (s *Server) relay(data []byte, addr net.Addr) error {
	body, _ := transport.DecodeMessage(data)

	s.mu.RLock()
	sender, ok := s.peers[addr.String()]
	recipients := make([]*peer, 0, len(s.peers))
	for key, p := range s.peers {
		if key != addr.String() {
			recipients = append(recipients, p)
		}
	}
	s.mu.RUnlock()
	if !ok {
		return errors.New("chat message from peer that has not logged in")
	}

	text, err := chat.OpenMessage(body, sender.sessionKey)
	if err != nil {
		return err
	}
	line := []byte(sender.username + ": " + string(text))

	var errs []error
	for _, p := range recipients {
		sealed, err := chat.SealMessage(line, p.sessionKey)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.listener.SendTo(transport.EncodeIncoming(sealed), p.addr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
