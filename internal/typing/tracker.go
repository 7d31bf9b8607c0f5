// ABOUTME: Ephemeral typing-signal tracker with a TTL expiry window.
// ABOUTME: Retains only the newest signal per participant; stale signals clear on read.

package typing

import (
	"sync"
	"time"
)

// DefaultWindow is how long a typing signal stays live without a follow-up.
const DefaultWindow = 4 * time.Second

type signal struct {
	typing bool
	at     time.Time
}

// Tracker holds the most recent typing signal per participant. Signals are
// never persisted; a "typing" signal older than the window counts as cleared,
// so a lost stop-typing event cannot leave the indicator stuck. Expiry is
// applied on read rather than by a background goroutine; the presentation
// layer polls anyway.
type Tracker struct {
	mu      sync.RWMutex
	window  time.Duration
	signals map[string]signal
}

// NewTracker creates a tracker. A non-positive window falls back to DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window:  window,
		signals: make(map[string]signal),
	}
}

// Set records a typing signal, replacing any previous signal for the participant.
func (t *Tracker) Set(participantID string, isTyping bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signals[participantID] = signal{typing: isTyping, at: at}
}

// IsTyping reports whether the participant is typing as of now, applying the
// expiry window.
func (t *Tracker) IsTyping(participantID string, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.signals[participantID]
	if !ok || !s.typing {
		return false
	}
	return now.Sub(s.at) < t.window
}

// Last returns the raw most-recent signal for the participant, without
// applying the expiry window.
func (t *Tracker) Last(participantID string) (isTyping bool, at time.Time, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.signals[participantID]
	return s.typing, s.at, ok
}

// Snapshot returns the set of participants typing as of now.
func (t *Tracker) Snapshot(now time.Time) map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]bool)
	for id, s := range t.signals {
		if s.typing && now.Sub(s.at) < t.window {
			out[id] = true
		}
	}
	return out
}
