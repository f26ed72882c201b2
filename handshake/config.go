package handshake

import (
	"fmt"
	"time"
)

const (
	// DefaultCookieTimeout bounds the wait for the round-1 cookie.
	DefaultCookieTimeout = time.Second

	// DefaultRoundTimeout bounds the wait for the round-2 and round-3 replies.
	DefaultRoundTimeout = 3 * time.Second
)

// Config holds the client's timing parameters.
type Config struct {
	CookieTimeout time.Duration
	RoundTimeout  time.Duration
}

// DefaultConfig returns the standard timeouts.
func DefaultConfig() Config {
	return Config{
		CookieTimeout: DefaultCookieTimeout,
		RoundTimeout:  DefaultRoundTimeout,
	}
}

// Validate rejects non-positive timeouts.
func (c Config) Validate() error {
	if c.CookieTimeout <= 0 {
		return fmt.Errorf("cookie timeout must be positive, got %v", c.CookieTimeout)
	}
	if c.RoundTimeout <= 0 {
		return fmt.Errorf("round timeout must be positive, got %v", c.RoundTimeout)
	}
	return nil
}
