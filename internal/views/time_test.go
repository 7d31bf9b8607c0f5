// ABOUTME: Tests for day bucketing and relative time labels
// ABOUTME: Pins the Today/Yesterday/date rules and the label thresholds

package views

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurotrack/chat-engine/internal/store"
)

func msgAt(id string, at time.Time) store.Message {
	return store.Message{
		ID: id, Direction: store.DirectionIncoming, Body: "b",
		CreatedAt: at, DeliveryState: store.DeliverySent,
	}
}

func TestDayBuckets_TodayYesterdayOlder(t *testing.T) {
	// Mid-afternoon so now-1d2h lands on the previous calendar day
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	msgs := []store.Message{
		msgAt("old", now.Add(-10*24*time.Hour)),
		msgAt("yday", now.Add(-26*time.Hour)),
		msgAt("today", now.Add(-30*time.Second)),
	}

	buckets := DayBuckets(msgs, now)
	require.Len(t, buckets, 3)

	assert.Equal(t, "Mar 4, 2026", buckets[0].Label)
	assert.Equal(t, "Yesterday", buckets[1].Label)
	assert.Equal(t, "Today", buckets[2].Label)
	for i, want := range []string{"old", "yday", "today"} {
		require.Len(t, buckets[i].Messages, 1)
		assert.Equal(t, want, buckets[i].Messages[0].ID)
	}
}

func TestDayBuckets_GroupsConsecutiveSameDay(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	msgs := []store.Message{
		msgAt("a", now.Add(-3*time.Hour)),
		msgAt("b", now.Add(-2*time.Hour)),
		msgAt("c", now.Add(-time.Hour)),
	}

	buckets := DayBuckets(msgs, now)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Today", buckets[0].Label)
	require.Len(t, buckets[0].Messages, 3)
	assert.Equal(t, "a", buckets[0].Messages[0].ID)
	assert.Equal(t, "c", buckets[0].Messages[2].ID)
}

func TestDayBuckets_Empty(t *testing.T) {
	assert.Empty(t, DayBuckets(nil, time.Now()))
}

func TestRelativeLabel(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{59 * time.Second, "Just now"},
		{60 * time.Second, "1m"},
		{45 * time.Minute, "45m"},
		{90 * time.Minute, "1h"},
		{23 * time.Hour, "23h"},
		{25 * time.Hour, "1d"},
		{6 * 24 * time.Hour, "6d"},
		{8 * 24 * time.Hour, "Mar 6, 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"_"+fmt.Sprint(tt.age), func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeLabel(now.Add(-tt.age), now))
		})
	}
}
