// Package auth resolves request credentials to a trust level. Trusted callers
// see real figures, everyone else browses as a guest. Resolution always fails
// open to guest: bad input never breaks a read.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// TrustLevel classifies a request. There are exactly two tiers.
type TrustLevel int

const (
	Guest TrustLevel = iota
	Trusted
)

func (l TrustLevel) String() string {
	if l == Trusted {
		return "trusted"
	}
	return "guest"
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("trusted access required")
)

// TokenValidator is the injected allow-list lookup. Production uses TokenSet;
// tests substitute doubles with controlled tokens.
type TokenValidator interface {
	IsValid(token string) bool
}

// TokenSet is a fixed allow-list of trusted tokens, typically one per
// authorized user.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from raw token values, dropping blanks.
func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func (s TokenSet) IsValid(token string) bool {
	_, ok := s[token]
	return ok
}

// Session is an issued trusted session.
type Session struct {
	ID        string
	ExpiresAt time.Time
}

// Gate issues sessions against the allow-list and resolves credentials to a
// trust level. Sessions live in memory for the configured TTL; expired
// entries are rejected on read and swept by a background janitor.
type Gate struct {
	mu        sync.Mutex
	validator TokenValidator
	ttl       time.Duration
	now       func() time.Time
	sessions  map[string]time.Time

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// DefaultSessionTTL bounds how long a login stays trusted.
const DefaultSessionTTL = 30 * time.Minute

func NewGate(validator TokenValidator, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	g := &Gate{
		validator:   validator,
		ttl:         ttl,
		now:         time.Now,
		sessions:    make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
	}
	go g.startCleanup()
	return g
}

// Login exchanges a valid allow-list token for a fresh session. Unknown
// tokens get ErrInvalidToken and no state change.
func (g *Gate) Login(token string) (Session, error) {
	if g.validator == nil || !g.validator.IsValid(token) {
		return Session{}, ErrInvalidToken
	}
	id := newSessionID()
	expires := g.now().Add(g.ttl)

	g.mu.Lock()
	g.sessions[id] = expires
	g.mu.Unlock()

	return Session{ID: id, ExpiresAt: expires}, nil
}

// Resolve maps a credential to a trust level. A credential is either a
// session ID from Login or a raw allow-list token (header-based clients skip
// the login step). Anything else resolves to a guest, including expired
// sessions.
func (g *Gate) Resolve(credential string) TrustLevel {
	if credential == "" {
		return Guest
	}

	g.mu.Lock()
	expires, ok := g.sessions[credential]
	if ok && g.now().After(expires) {
		delete(g.sessions, credential)
		ok = false
	}
	g.mu.Unlock()
	if ok {
		return Trusted
	}

	if g.validator != nil && g.validator.IsValid(credential) {
		return Trusted
	}
	return Guest
}

// Status reports the trust level and, for live sessions, the expiry.
func (g *Gate) Status(credential string) (TrustLevel, time.Time) {
	level := g.Resolve(credential)

	g.mu.Lock()
	expires := g.sessions[credential]
	g.mu.Unlock()

	return level, expires
}

// Logout drops the session. Unknown credentials are a no-op.
func (g *Gate) Logout(credential string) {
	g.mu.Lock()
	delete(g.sessions, credential)
	g.mu.Unlock()
}

// RequireTrusted gates operations that have no guest variant, such as AI
// insights. It never consults the payload, only the tier.
func (g *Gate) RequireTrusted(level TrustLevel) error {
	if level != Trusted {
		return ErrForbidden
	}
	return nil
}

// ActiveSessions returns the number of unexpired sessions, for metrics.
func (g *Gate) ActiveSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	count := 0
	for _, expires := range g.sessions {
		if now.Before(expires) {
			count++
		}
	}
	return count
}

func (g *Gate) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweepExpired()
		case <-g.stopCleanup:
			return
		}
	}
}

func (g *Gate) sweepExpired() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, expires := range g.sessions {
		if now.After(expires) {
			delete(g.sessions, id)
		}
	}
}

// Stop shuts down the janitor goroutine.
func (g *Gate) Stop() {
	g.shutdownOnce.Do(func() {
		close(g.stopCleanup)
	})
}

func newSessionID() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to a time-derived ID if the OS entropy source fails.
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}
