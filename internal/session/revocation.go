package session

import (
	"sync"
	"time"
)

// RevocationLedger is the blacklist of tokens invalidated before their
// natural expiry. Each entry carries the token's expiry so a sweep can evict
// it once the signature check would reject the token anyway.
type RevocationLedger struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewRevocationLedger() *RevocationLedger {
	return &RevocationLedger{revoked: make(map[string]time.Time)}
}

// Revoke inserts the token. Repeated revocation of the same token is a no-op.
func (l *RevocationLedger) Revoke(token string, expiresAt time.Time) {
	l.mu.Lock()
	if _, ok := l.revoked[token]; !ok {
		l.revoked[token] = expiresAt
	}
	l.mu.Unlock()
}

func (l *RevocationLedger) IsRevoked(token string) bool {
	l.mu.Lock()
	_, ok := l.revoked[token]
	l.mu.Unlock()
	return ok
}

func (l *RevocationLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.revoked)
}

// Sweep evicts entries whose token expiry has passed and returns how many
// were removed.
func (l *RevocationLedger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for token, expiresAt := range l.revoked {
		if expiresAt.Before(now) {
			delete(l.revoked, token)
			removed++
		}
	}
	return removed
}
