// Package session holds the process-local session state: the registry of
// live tokens, the revocation ledger and the logout history log. None of it
// is persisted; a restart forgets every live session and forces re-login.
package session

import (
	"sort"
	"sync"
	"time"
)

// Record is the live association between an issued token and an account.
type Record struct {
	Token      string
	UserID     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Origin     string
	Device     string
	LastActive time.Time
}

// Registry tracks live sessions keyed by token. All methods are safe for
// concurrent use; no lock is held across blocking calls.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Record
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Record)}
}

func (r *Registry) Open(token string, userID string, issuedAt, expiresAt time.Time, origin string) Record {
	rec := Record{
		Token:      token,
		UserID:     userID,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Origin:     origin,
		Device:     "Web Client",
		LastActive: issuedAt,
	}

	r.mu.Lock()
	r.sessions[token] = rec
	r.mu.Unlock()
	return rec
}

// Touch refreshes last-active metadata. A missing entry is a no-op, not an
// error: tokens issued before a restart stay valid without a registry entry.
func (r *Registry) Touch(token string, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	if !ok {
		return
	}
	rec.LastActive = time.Now()
	if origin != "" {
		rec.Origin = origin
	}
	r.sessions[token] = rec
}

func (r *Registry) Get(token string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	return rec, ok
}

// ListByUser returns the user's live sessions ordered by last activity,
// most recent first.
func (r *Registry) ListByUser(userID string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, rec := range r.sessions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

// Close removes the entry and reports whether one existed.
func (r *Registry) Close(token string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
	}
	return rec, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops entries whose token TTL has elapsed and returns how many were
// removed. Expiry needs no explicit state transition; the sweep only keeps
// the map from growing without bound.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, rec := range r.sessions {
		if rec.ExpiresAt.Before(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastActive.After(recs[j].LastActive)
	})
}
