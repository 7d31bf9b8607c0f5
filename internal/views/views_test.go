// ABOUTME: Tests for the conversation list projections
// ABOUTME: Covers recency sorting, kind filtering and free-text search

package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurotrack/chat-engine/internal/store"
	"github.com/neurotrack/chat-engine/internal/typing"
)

func seed(t *testing.T) (*store.MessageStore, *store.Directory) {
	t.Helper()
	msgs := store.NewMessageStore()
	dir := store.NewDirectory()
	return msgs, dir
}

func mustAppend(t *testing.T, msgs *store.MessageStore, pid string, m store.Message) {
	t.Helper()
	_, err := msgs.Append(pid, m)
	require.NoError(t, err)
}

func TestProjector_ConversationsSortByRecency(t *testing.T) {
	msgs, dir := seed(t)
	now := time.Now()

	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	dir.Upsert(store.Participant{ID: "p2", Kind: store.KindPatient, DisplayName: "Carol"})
	dir.Upsert(store.Participant{ID: "p3", Kind: store.KindPhysiotherapist, DisplayName: "Bob"})
	dir.Upsert(store.Participant{ID: "p4", Kind: store.KindPatient, DisplayName: "Zoe"})

	mustAppend(t, msgs, "p1", store.Message{
		ID: "m1", Direction: store.DirectionIncoming, Body: "old",
		CreatedAt: now.Add(-2 * time.Hour), DeliveryState: store.DeliverySent,
	})
	mustAppend(t, msgs, "p2", store.Message{
		ID: "m2", Direction: store.DirectionIncoming, Body: "recent",
		CreatedAt: now.Add(-time.Minute), DeliveryState: store.DeliverySent,
	})

	p := NewProjector(msgs, dir, nil)
	rows := p.Conversations(now)
	require.Len(t, rows, 4)

	// Most recent first, then older, then the no-message pair by name
	assert.Equal(t, "Carol", rows[0].Participant.DisplayName)
	assert.Equal(t, "Alice", rows[1].Participant.DisplayName)
	assert.Equal(t, "Bob", rows[2].Participant.DisplayName)
	assert.Equal(t, "Zoe", rows[3].Participant.DisplayName)

	assert.Equal(t, "recent", rows[0].LastMessage.Body)
	assert.Equal(t, "1m", rows[0].WhenLabel)
	assert.Nil(t, rows[2].LastMessage)
	assert.Empty(t, rows[2].WhenLabel)
}

func TestProjector_ConversationsTieBreakByName(t *testing.T) {
	msgs, dir := seed(t)
	now := time.Now()
	at := now.Add(-time.Hour)

	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Nina"})
	dir.Upsert(store.Participant{ID: "p2", Kind: store.KindPatient, DisplayName: "Mark"})
	mustAppend(t, msgs, "p1", store.Message{ID: "m1", Direction: store.DirectionIncoming, Body: "a", CreatedAt: at, DeliveryState: store.DeliverySent})
	mustAppend(t, msgs, "p2", store.Message{ID: "m2", Direction: store.DirectionIncoming, Body: "b", CreatedAt: at, DeliveryState: store.DeliverySent})

	rows := NewProjector(msgs, dir, nil).Conversations(now)
	require.Len(t, rows, 2)
	assert.Equal(t, "Mark", rows[0].Participant.DisplayName)
	assert.Equal(t, "Nina", rows[1].Participant.DisplayName)
}

func TestProjector_FilteredByKindAndQuery(t *testing.T) {
	msgs, dir := seed(t)
	now := time.Now()

	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	dir.Upsert(store.Participant{ID: "p2", Kind: store.KindPhysiotherapist, DisplayName: "Bob"})
	mustAppend(t, msgs, "p1", store.Message{
		ID: "m1", Direction: store.DirectionIncoming, Body: "Thank you for the advice!",
		CreatedAt: now.Add(-time.Hour), DeliveryState: store.DeliverySent,
	})
	mustAppend(t, msgs, "p2", store.Message{
		ID: "m2", Direction: store.DirectionIncoming, Body: "See you at the session",
		CreatedAt: now.Add(-time.Hour), DeliveryState: store.DeliverySent,
	})

	p := NewProjector(msgs, dir, nil)

	rows := p.Filtered(FilterPatient, "thank", now)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].Participant.ID)

	// Query matches message bodies, not just names
	rows = p.Filtered(FilterAll, "ADVICE", now)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].Participant.ID)

	// Name substring match
	rows = p.Filtered(FilterAll, "bo", now)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].Participant.ID)

	// Kind filter alone
	rows = p.Filtered(FilterPhysiotherapist, "", now)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].Participant.ID)

	// Empty filter behaves like all
	rows = p.Filtered("", "", now)
	assert.Len(t, rows, 2)
}

func TestProjector_TypingFlag(t *testing.T) {
	msgs, dir := seed(t)
	now := time.Now()
	tracker := typing.NewTracker(5 * time.Second)

	dir.Upsert(store.Participant{ID: "p1", Kind: store.KindPatient, DisplayName: "Alice"})
	tracker.Set("p1", true, now)

	rows := NewProjector(msgs, dir, tracker).Conversations(now)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Typing)

	rows = NewProjector(msgs, dir, tracker).Conversations(now.Add(time.Minute))
	assert.False(t, rows[0].Typing, "stale typing signal must clear")
}
