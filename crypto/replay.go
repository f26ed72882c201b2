package crypto

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultReplayWindow is how long a value is remembered.
const DefaultReplayWindow = 5 * time.Minute

// ReplayGuard remembers recently seen values, such as login IVs, so that a
// replayed message can be dropped.
//
//	guard := crypto.NewReplayGuard(crypto.DefaultReplayWindow, nil)
//	if !guard.CheckAndStore(iv) {
//	    // replay, reject the message
//	}
//
// Values are stored as SHA-256 digests. The guard is safe for concurrent use.
type ReplayGuard struct {
	mu           sync.Mutex
	seen         map[[sha256.Size]byte]time.Time // digest -> expiry
	window       time.Duration
	nextPrune    time.Time
	timeProvider TimeProvider
}

// NewReplayGuard creates a guard that remembers values for window. Pass nil
// for tp to use the system clock.
func NewReplayGuard(window time.Duration, tp TimeProvider) *ReplayGuard {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	return &ReplayGuard{
		seen:         make(map[[sha256.Size]byte]time.Time),
		window:       window,
		timeProvider: tp,
	}
}

// CheckAndStore reports whether value is fresh and records it. It returns
// false if value was already seen within the window.
func (g *ReplayGuard) CheckAndStore(value []byte) bool {
	key := sha256.Sum256(value)
	now := g.timeProvider.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !now.Before(g.nextPrune) {
		g.prune(now)
		g.nextPrune = now.Add(g.window)
	}

	if expiry, ok := g.seen[key]; ok && now.Before(expiry) {
		logrus.WithFields(SecureFieldHash(value, "value")).
			WithField("function", "ReplayGuard.CheckAndStore").
			Warn("Replay detected: value already used")
		return false
	}

	g.seen[key] = now.Add(g.window)
	return true
}

// Size returns the number of remembered values, expired ones included until
// the next prune.
func (g *ReplayGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *ReplayGuard) prune(now time.Time) {
	removed := 0
	for key, expiry := range g.seen {
		if !now.Before(expiry) {
			delete(g.seen, key)
			removed++
		}
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "ReplayGuard.prune",
			"removed":   removed,
			"remaining": len(g.seen),
		}).Debug("Pruned expired replay entries")
	}
}
