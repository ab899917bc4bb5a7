package session

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const maxReasonLength = 200

// LogoutRecord is an immutable audit entry written when a session is revoked.
type LogoutRecord struct {
	Token           string    `json:"-"`
	Origin          string    `json:"origin"`
	Device          string    `json:"device"`
	LoggedOutAt     time.Time `json:"loggedOutAt"`
	Reason          string    `json:"reason"`
	DurationSeconds int64     `json:"durationSeconds"`
}

// HistoryLog keeps per-user logout records until the account is deleted.
type HistoryLog struct {
	mu      sync.Mutex
	entries map[string][]LogoutRecord
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{entries: make(map[string][]LogoutRecord)}
}

// Record appends an entry for the closed session. The reason is opaque caller
// input: trimmed, length-capped, never interpreted.
func (h *HistoryLog) Record(userID string, rec Record, reason string, at time.Time) LogoutRecord {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "User logged out"
	}
	// cap in runes, not bytes, so the cut never splits a multi-byte character
	if utf8.RuneCountInString(reason) > maxReasonLength {
		reason = string([]rune(reason)[:maxReasonLength])
	}

	entry := LogoutRecord{
		Token:           rec.Token,
		Origin:          rec.Origin,
		Device:          rec.Device,
		LoggedOutAt:     at,
		Reason:          reason,
		DurationSeconds: int64(at.Sub(rec.IssuedAt).Seconds()),
	}

	h.mu.Lock()
	h.entries[userID] = append(h.entries[userID], entry)
	h.mu.Unlock()
	return entry
}

// ListByUser returns the user's logout history in chronological order.
func (h *HistoryLog) ListByUser(userID string) []LogoutRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries[userID]
	out := make([]LogoutRecord, len(entries))
	copy(out, entries)
	return out
}

// Purge drops all history for the account. Only account deletion calls this.
func (h *HistoryLog) Purge(userID string) {
	h.mu.Lock()
	delete(h.entries, userID)
	h.mu.Unlock()
}
