// ABOUTME: Per-participant append-only message logs with deterministic ordering
// ABOUTME: Owns message identity, sequence assignment and state transitions

package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MessageStore holds one ordered append log of messages per participant.
// It is the sole owner of message identity and ordering: every mutation of a
// message goes through here, and callers receive copies, never shared slices.
type MessageStore struct {
	mu   sync.RWMutex
	logs map[string]*messageLog
}

type messageLog struct {
	msgs    []Message
	byID    map[string]int // message id -> index into msgs
	nextSeq uint64
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		logs: make(map[string]*messageLog),
	}
}

func (s *MessageStore) log(participantID string) *messageLog {
	l, ok := s.logs[participantID]
	if !ok {
		l = &messageLog{byID: make(map[string]int), nextSeq: 1}
		s.logs[participantID] = l
	}
	return l
}

// Append inserts a message at the end of the participant's log and assigns the
// next sequence number atomically with the insertion. Returns the assigned
// sequence, or ErrDuplicateMessage if the id is already present in the log.
func (s *MessageStore) Append(participantID string, msg Message) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.log(participantID)
	if _, exists := l.byID[msg.ID]; exists {
		return 0, fmt.Errorf("append %q: %w", msg.ID, ErrDuplicateMessage)
	}

	msg.ParticipantID = participantID
	msg.Seq = l.nextSeq
	l.nextSeq++

	l.byID[msg.ID] = len(l.msgs)
	l.msgs = append(l.msgs, msg)
	return msg.Seq, nil
}

// Replace swaps a provisional message for its server-confirmed counterpart in
// the same log slot. The original sequence number is preserved so the message
// keeps its position in the total order and any render key bound to the slot
// stays stable. Returns ErrNotFound if the provisional id is absent.
func (s *MessageStore) Replace(participantID, provisionalID string, confirmed Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[participantID]
	if !ok {
		return fmt.Errorf("replace %q: %w", provisionalID, ErrNotFound)
	}
	idx, ok := l.byID[provisionalID]
	if !ok {
		return fmt.Errorf("replace %q: %w", provisionalID, ErrNotFound)
	}

	confirmed.ParticipantID = participantID
	confirmed.Seq = l.msgs[idx].Seq

	delete(l.byID, provisionalID)
	l.byID[confirmed.ID] = idx
	l.msgs[idx] = confirmed
	return nil
}

// MarkRead stamps a message as read. Returns false when the message is absent
// or already read; both are no-ops, not errors.
func (s *MessageStore) MarkRead(participantID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[participantID]
	if !ok {
		return false
	}
	idx, ok := l.byID[messageID]
	if !ok {
		return false
	}
	if l.msgs[idx].ReadAt != nil {
		return false
	}
	now := time.Now()
	l.msgs[idx].ReadAt = &now
	return true
}

// MarkFailed transitions a message's delivery state to failed in place.
// The message stays in the log so the user can see the failure and retry.
// Returns false if the message is absent.
func (s *MessageStore) MarkFailed(participantID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[participantID]
	if !ok {
		return false
	}
	idx, ok := l.byID[messageID]
	if !ok {
		return false
	}
	l.msgs[idx].DeliveryState = DeliveryFailed
	return true
}

// ListOrdered returns a copy of the participant's log sorted ascending by
// (CreatedAt, Seq). An unknown participant yields an empty slice.
func (s *MessageStore) ListOrdered(participantID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[participantID]
	if !ok {
		return nil
	}
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Get returns a copy of a single message by id.
func (s *MessageStore) Get(participantID, messageID string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[participantID]
	if !ok {
		return Message{}, false
	}
	idx, ok := l.byID[messageID]
	if !ok {
		return Message{}, false
	}
	return l.msgs[idx], true
}

// Contains reports whether a message id is present in the participant's log.
func (s *MessageStore) Contains(participantID, messageID string) bool {
	_, ok := s.Get(participantID, messageID)
	return ok
}

// UnreadCount counts incoming messages without a read stamp. This is the
// source of truth for the participant's unread badge.
func (s *MessageStore) UnreadCount(participantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[participantID]
	if !ok {
		return 0
	}
	n := 0
	for _, m := range l.msgs {
		if m.Unread() {
			n++
		}
	}
	return n
}

// LastMessage returns the newest message in log order, if any.
func (s *MessageStore) LastMessage(participantID string) (Message, bool) {
	msgs := s.ListOrdered(participantID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// LoadHistory replaces the participant's log with a fetched history, assigning
// fresh sequence numbers in the given order. Incoming records are normalized
// to DeliverySent. Used to populate a log before first render.
func (s *MessageStore) LoadHistory(participantID string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &messageLog{byID: make(map[string]int, len(msgs)), nextSeq: 1}
	for _, m := range msgs {
		if _, exists := l.byID[m.ID]; exists {
			continue
		}
		m.ParticipantID = participantID
		if m.Direction == DirectionIncoming || m.DeliveryState == "" {
			m.DeliveryState = DeliverySent
		}
		m.Seq = l.nextSeq
		l.nextSeq++
		l.byID[m.ID] = len(l.msgs)
		l.msgs = append(l.msgs, m)
	}
	s.logs[participantID] = l
}
