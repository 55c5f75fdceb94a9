package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestGate(t *testing.T, tokens ...string) *Gate {
	t.Helper()
	g := NewGate(NewTokenSet(tokens), time.Minute)
	t.Cleanup(g.Stop)
	return g
}

func TestLogin(t *testing.T) {
	g := newTestGate(t, "secret-token")

	t.Run("valid token issues session", func(t *testing.T) {
		sess, err := g.Login("secret-token")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if sess.ID == "" {
			t.Fatalf("empty session id")
		}
		if !sess.ExpiresAt.After(time.Now()) {
			t.Fatalf("session already expired: %v", sess.ExpiresAt)
		}
		if g.Resolve(sess.ID) != Trusted {
			t.Fatalf("fresh session should resolve trusted")
		}
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		_, err := g.Login("wrong")
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err=%v, want ErrInvalidToken", err)
		}
	})

	t.Run("empty token rejected", func(t *testing.T) {
		if _, err := g.Login(""); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err=%v, want ErrInvalidToken", err)
		}
	})

	t.Run("distinct sessions per login", func(t *testing.T) {
		a, _ := g.Login("secret-token")
		b, _ := g.Login("secret-token")
		if a.ID == b.ID {
			t.Fatalf("session ids must be unique")
		}
	})
}

func TestResolveFailsOpenToGuest(t *testing.T) {
	g := newTestGate(t, "secret-token")

	cases := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"garbage", "not-a-session-or-token"},
		{"almost a token", "secret-token "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Resolve(tc.credential); got != Guest {
				t.Fatalf("Resolve(%q)=%v, want guest", tc.credential, got)
			}
		})
	}

	t.Run("nil validator", func(t *testing.T) {
		bare := NewGate(nil, time.Minute)
		defer bare.Stop()
		if bare.Resolve("anything") != Guest {
			t.Fatalf("gate without validator must treat everyone as guest")
		}
	})
}

func TestResolveRawToken(t *testing.T) {
	g := newTestGate(t, "secret-token")
	// Header-based clients present the allow-list token directly, without a
	// login round trip.
	if g.Resolve("secret-token") != Trusted {
		t.Fatalf("raw trusted token should resolve trusted")
	}
}

func TestSessionExpiry(t *testing.T) {
	g := newTestGate(t, "secret-token")
	sess, err := g.Login("secret-token")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	g.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }

	if got := g.Resolve(sess.ID); got != Guest {
		t.Fatalf("expired session resolved %v, want guest", got)
	}

	g.mu.Lock()
	_, still := g.sessions[sess.ID]
	g.mu.Unlock()
	if still {
		t.Fatalf("expired session should be evicted on read")
	}
}

func TestLogout(t *testing.T) {
	g := newTestGate(t, "secret-token")
	sess, _ := g.Login("secret-token")

	g.Logout(sess.ID)
	if g.Resolve(sess.ID) != Guest {
		t.Fatalf("logged-out session should be guest")
	}

	// Idempotent, including for credentials that never existed.
	g.Logout(sess.ID)
	g.Logout("never-existed")
}

func TestStatus(t *testing.T) {
	g := newTestGate(t, "secret-token")
	sess, _ := g.Login("secret-token")

	level, expires := g.Status(sess.ID)
	if level != Trusted {
		t.Fatalf("level=%v", level)
	}
	if !expires.Equal(sess.ExpiresAt) {
		t.Fatalf("expiry %v, want %v", expires, sess.ExpiresAt)
	}

	level, expires = g.Status("nobody")
	if level != Guest || !expires.IsZero() {
		t.Fatalf("guest status: %v %v", level, expires)
	}
}

func TestRequireTrusted(t *testing.T) {
	g := newTestGate(t, "secret-token")
	if err := g.RequireTrusted(Trusted); err != nil {
		t.Fatalf("trusted should pass: %v", err)
	}
	if err := g.RequireTrusted(Guest); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden", err)
	}
}

func TestSweepExpired(t *testing.T) {
	g := newTestGate(t, "secret-token")
	live, _ := g.Login("secret-token")
	dead, _ := g.Login("secret-token")

	g.mu.Lock()
	g.sessions[dead.ID] = time.Now().Add(-time.Hour)
	g.mu.Unlock()

	g.sweepExpired()

	g.mu.Lock()
	_, liveOK := g.sessions[live.ID]
	_, deadOK := g.sessions[dead.ID]
	g.mu.Unlock()

	if !liveOK || deadOK {
		t.Fatalf("sweep kept=%v dropped=%v", liveOK, deadOK)
	}
	if g.ActiveSessions() != 1 {
		t.Fatalf("active=%d, want 1", g.ActiveSessions())
	}
}
