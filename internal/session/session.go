// ABOUTME: Conversation session state machine tracking the active participant
// ABOUTME: Activation marks the participant's unread messages read and zeroes the badge

package session

import (
	"fmt"
	"log/slog"

	"github.com/neurotrack/chat-engine/internal/store"
)

// Session tracks which conversation the staff user is looking at. It has two
// states: no active conversation, or active on exactly one participant.
//
// Session is not safe for concurrent use on its own; the engine serializes
// every mutation entry point behind its state lock and is the only caller of
// Activate and Deactivate in production wiring.
type Session struct {
	msgs   *store.MessageStore
	dir    *store.Directory
	logger *slog.Logger
	active string
}

// New creates a session. Pass nil logger for the default.
func New(msgs *store.MessageStore, dir *store.Directory, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		msgs:   msgs,
		dir:    dir,
		logger: logger.With("component", "session"),
	}
}

// Activate switches the session to the given participant. Every unread
// incoming message in that participant's log is marked read and the
// directory's unread count drops to zero: an open conversation is "seen".
// Activating the already-active participant is a no-op, so re-activation
// never re-marks messages. Returns store.ErrNotFound for an unknown id.
func (s *Session) Activate(participantID string) error {
	if s.active == participantID {
		return nil
	}
	if _, ok := s.dir.Get(participantID); !ok {
		return fmt.Errorf("activate participant %q: %w", participantID, store.ErrNotFound)
	}

	marked := 0
	for _, m := range s.msgs.ListOrdered(participantID) {
		if m.Unread() && s.msgs.MarkRead(participantID, m.ID) {
			marked++
		}
	}

	patch := store.SummaryPatch{UnreadCount: 0}
	if last, ok := s.msgs.LastMessage(participantID); ok {
		patch.LastMessageID = last.ID
	}
	if err := s.dir.Touch(participantID, patch); err != nil {
		return err
	}

	s.active = participantID
	s.logger.Debug("conversation activated",
		"participant_id", participantID,
		"marked_read", marked)
	return nil
}

// Deactivate returns the session to the no-active-conversation state.
func (s *Session) Deactivate() {
	if s.active == "" {
		return
	}
	s.logger.Debug("conversation deactivated", "participant_id", s.active)
	s.active = ""
}

// Active returns the active participant id, if any.
func (s *Session) Active() (string, bool) {
	return s.active, s.active != ""
}

// IsActive reports whether the given participant is the active conversation.
func (s *Session) IsActive(participantID string) bool {
	return participantID != "" && s.active == participantID
}
