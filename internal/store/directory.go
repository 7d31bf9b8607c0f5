// ABOUTME: Participant directory holding records and their denormalized summaries
// ABOUTME: Populated once at session start, then patched as message activity happens

package store

import (
	"fmt"
	"sync"
	"time"
)

// Directory holds the participant records for the staff user's session.
// It owns only the denormalized summary fields (last message, unread count,
// presence); message identity and ordering belong to the MessageStore.
type Directory struct {
	mu           sync.RWMutex
	participants map[string]*Participant
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		participants: make(map[string]*Participant),
	}
}

// Upsert stores a participant record, replacing any existing record with the
// same id. Used for initial population from the directory fetch.
func (d *Directory) Upsert(p Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := p
	d.participants[p.ID] = &cp
}

// Touch applies a summary patch to an existing participant. The directory
// must already know the id: message activity against an unknown participant
// is a precondition violation, reported as ErrNotFound and never recovered
// internally.
func (d *Directory) Touch(participantID string, patch SummaryPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.participants[participantID]
	if !ok {
		return fmt.Errorf("touch participant %q: %w", participantID, ErrNotFound)
	}
	p.LastMessageID = patch.LastMessageID
	p.UnreadCount = patch.UnreadCount
	return nil
}

// SetOnline updates a participant's presence. Going online stamps OnlineSince
// unless the participant was already online; going offline clears it.
func (d *Directory) SetOnline(participantID string, online bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.participants[participantID]
	if !ok {
		return fmt.Errorf("set online for participant %q: %w", participantID, ErrNotFound)
	}
	switch {
	case online && p.OnlineSince == nil:
		now := time.Now()
		p.OnlineSince = &now
	case !online:
		p.OnlineSince = nil
	}
	return nil
}

// Get returns a copy of a participant record.
func (d *Directory) Get(participantID string) (Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.participants[participantID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// List returns copies of all participant records in no particular order;
// the view projector owns sorting.
func (d *Directory) List() []Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Participant, 0, len(d.participants))
	for _, p := range d.participants {
		out = append(out, *p)
	}
	return out
}

// Len returns the number of known participants.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.participants)
}
