// ABOUTME: Tests for the conversation session state machine
// ABOUTME: Verifies read-marking on activation, idempotence and the NotFound path

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurotrack/chat-engine/internal/store"
)

func setup(t *testing.T) (*Session, *store.MessageStore, *store.Directory) {
	t.Helper()
	msgs := store.NewMessageStore()
	dir := store.NewDirectory()
	return New(msgs, dir, nil), msgs, dir
}

func TestSession_ActivateMarksUnreadAndZeroesBadge(t *testing.T) {
	s, msgs, dir := setup(t)
	now := time.Now()

	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	for _, id := range []string{"m1", "m2"} {
		_, err := msgs.Append("p1", store.Message{
			ID: id, Direction: store.DirectionIncoming, Body: "hi",
			CreatedAt: now, DeliveryState: store.DeliverySent,
		})
		require.NoError(t, err)
	}
	require.NoError(t, dir.Touch("p1", store.SummaryPatch{LastMessageID: "m2", UnreadCount: 2}))

	require.NoError(t, s.Activate("p1"))

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "p1", active)

	for _, m := range msgs.ListOrdered("p1") {
		assert.False(t, m.Unread())
	}
	p, _ := dir.Get("p1")
	assert.Equal(t, 0, p.UnreadCount)
	assert.Equal(t, "m2", p.LastMessageID)
	assert.Equal(t, 0, msgs.UnreadCount("p1"))
}

func TestSession_ActivateUnknownParticipant(t *testing.T) {
	s, _, _ := setup(t)

	err := s.Activate("ghost")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, ok := s.Active()
	assert.False(t, ok, "failed activation must not change state")
}

func TestSession_ReactivateSameParticipantIsNoop(t *testing.T) {
	s, msgs, dir := setup(t)
	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	require.NoError(t, s.Activate("p1"))

	// New unread arrives while the conversation is already open; re-activating
	// the same id must not trigger another read-marking pass.
	_, err := msgs.Append("p1", store.Message{
		ID: "m1", Direction: store.DirectionIncoming, Body: "hi",
		CreatedAt: time.Now(), DeliveryState: store.DeliverySent,
	})
	require.NoError(t, err)

	require.NoError(t, s.Activate("p1"))
	assert.Equal(t, 1, msgs.UnreadCount("p1"), "no-op re-activation must not mark messages")
}

func TestSession_SwitchingConversations(t *testing.T) {
	s, _, dir := setup(t)
	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	dir.Upsert(store.Participant{ID: "p2", Kind: store.KindPhysiotherapist, DisplayName: "Bob"})

	require.NoError(t, s.Activate("p1"))
	require.NoError(t, s.Activate("p2"))

	assert.True(t, s.IsActive("p2"))
	assert.False(t, s.IsActive("p1"))

	s.Deactivate()
	_, ok := s.Active()
	assert.False(t, ok)
	assert.False(t, s.IsActive(""))
}
