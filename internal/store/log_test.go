// ABOUTME: Tests for the per-participant message log
// ABOUTME: Covers ordering, sequence assignment, reconciliation and read marking

package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incoming(id, body string, at time.Time) Message {
	return Message{
		ID:            id,
		Direction:     DirectionIncoming,
		Body:          body,
		CreatedAt:     at,
		DeliveryState: DeliverySent,
	}
}

func TestMessageStore_AppendAssignsMonotonicSequences(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	seq1, err := s.Append("p1", incoming("m1", "first", base))
	require.NoError(t, err)
	seq2, err := s.Append("p1", incoming("m2", "second", base.Add(time.Second)))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)

	// Sequences are per-log, not global
	seqOther, err := s.Append("p2", incoming("m1", "other log", base))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seqOther)
}

func TestMessageStore_AppendRejectsDuplicateID(t *testing.T) {
	s := NewMessageStore()

	_, err := s.Append("p1", incoming("m1", "hello", time.Now()))
	require.NoError(t, err)

	_, err = s.Append("p1", incoming("m1", "hello again", time.Now()))
	require.ErrorIs(t, err, ErrDuplicateMessage)

	assert.Len(t, s.ListOrdered("p1"), 1)
}

func TestMessageStore_ListOrderedSortsByCreatedAtThenSeq(t *testing.T) {
	s := NewMessageStore()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// Appended out of timestamp order
	_, err := s.Append("p1", incoming("late", "arrived first", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.Append("p1", incoming("early", "arrived second", base))
	require.NoError(t, err)
	// Identical timestamps fall back to insertion order
	_, err = s.Append("p1", incoming("tie-a", "tie a", base.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = s.Append("p1", incoming("tie-b", "tie b", base.Add(2*time.Minute)))
	require.NoError(t, err)

	msgs := s.ListOrdered("p1")
	require.Len(t, msgs, 4)
	assert.Equal(t, "early", msgs[0].ID)
	assert.Equal(t, "late", msgs[1].ID)
	assert.Equal(t, "tie-a", msgs[2].ID)
	assert.Equal(t, "tie-b", msgs[3].ID)
}

func TestMessageStore_ReplaceKeepsSlotAndSequence(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	_, err := s.Append("p1", Message{
		ID:            "local-123",
		Direction:     DirectionOutgoing,
		Body:          "hello",
		CreatedAt:     base,
		DeliveryState: DeliveryPending,
	})
	require.NoError(t, err)
	provisional, ok := s.Get("p1", "local-123")
	require.True(t, ok)

	confirmed := Message{
		ID:            "srv-9",
		Direction:     DirectionOutgoing,
		Body:          "hello",
		CreatedAt:     base.Add(200 * time.Millisecond), // server timestamp
		DeliveryState: DeliverySent,
	}
	require.NoError(t, s.Replace("p1", "local-123", confirmed))

	// Provisional entry is gone, confirmed entry took its slot
	assert.False(t, s.Contains("p1", "local-123"))
	got, ok := s.Get("p1", "srv-9")
	require.True(t, ok)
	assert.Equal(t, provisional.Seq, got.Seq)
	assert.Equal(t, DeliverySent, got.DeliveryState)
	assert.Len(t, s.ListOrdered("p1"), 1)
}

func TestMessageStore_ReplaceUnknownProvisional(t *testing.T) {
	s := NewMessageStore()
	err := s.Replace("p1", "local-missing", Message{ID: "srv-1"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMessageStore_MarkReadIsIdempotent(t *testing.T) {
	s := NewMessageStore()
	_, err := s.Append("p1", incoming("m1", "hi", time.Now()))
	require.NoError(t, err)

	assert.True(t, s.MarkRead("p1", "m1"))
	assert.False(t, s.MarkRead("p1", "m1"), "second mark must be a no-op")
	assert.False(t, s.MarkRead("p1", "absent"), "absent id must be a no-op")
	assert.False(t, s.MarkRead("ghost", "m1"), "unknown log must be a no-op")

	msg, ok := s.Get("p1", "m1")
	require.True(t, ok)
	require.NotNil(t, msg.ReadAt)
}

func TestMessageStore_MarkFailedKeepsMessageVisible(t *testing.T) {
	s := NewMessageStore()
	_, err := s.Append("p1", Message{
		ID:            "local-1",
		Direction:     DirectionOutgoing,
		Body:          "hello",
		CreatedAt:     time.Now(),
		DeliveryState: DeliveryPending,
	})
	require.NoError(t, err)

	assert.True(t, s.MarkFailed("p1", "local-1"))
	assert.False(t, s.MarkFailed("p1", "absent"))

	msg, ok := s.Get("p1", "local-1")
	require.True(t, ok)
	assert.Equal(t, DeliveryFailed, msg.DeliveryState)
	assert.Len(t, s.ListOrdered("p1"), 1, "failed message must not be removed")
}

func TestMessageStore_UnreadCountTracksEveryMutation(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	for i := 0; i < 3; i++ {
		_, err := s.Append("p1", incoming(fmt.Sprintf("in-%d", i), "hi", base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}
	// Outgoing messages never count as unread
	_, err := s.Append("p1", Message{
		ID: "out-1", Direction: DirectionOutgoing, Body: "reply",
		CreatedAt: base.Add(5 * time.Second), DeliveryState: DeliverySent,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.UnreadCount("p1"))

	s.MarkRead("p1", "in-1")
	assert.Equal(t, 2, s.UnreadCount("p1"))

	s.MarkRead("p1", "in-0")
	s.MarkRead("p1", "in-2")
	assert.Equal(t, 0, s.UnreadCount("p1"))
}

func TestMessageStore_LastMessageFollowsLogOrder(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	_, ok := s.LastMessage("p1")
	assert.False(t, ok)

	_, err := s.Append("p1", incoming("newest", "b", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.Append("p1", incoming("oldest", "a", base))
	require.NoError(t, err)

	last, ok := s.LastMessage("p1")
	require.True(t, ok)
	assert.Equal(t, "newest", last.ID)
}

func TestMessageStore_LoadHistoryReplacesLog(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	_, err := s.Append("p1", incoming("stale", "old state", base))
	require.NoError(t, err)

	s.LoadHistory("p1", []Message{
		{ID: "h1", Direction: DirectionIncoming, Body: "one", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "h2", Direction: DirectionOutgoing, Body: "two", CreatedAt: base.Add(-time.Hour)},
		{ID: "h2", Direction: DirectionOutgoing, Body: "dup ignored", CreatedAt: base.Add(-time.Hour)},
	})

	msgs := s.ListOrdered("p1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "h1", msgs[0].ID)
	assert.Equal(t, "h2", msgs[1].ID)
	assert.False(t, s.Contains("p1", "stale"))
	assert.Equal(t, DeliverySent, msgs[0].DeliveryState, "incoming history is normalized to sent")
	assert.Equal(t, uint64(1), msgs[0].Seq)
	assert.Equal(t, uint64(2), msgs[1].Seq)
	assert.Equal(t, 1, s.UnreadCount("p1"))
}
