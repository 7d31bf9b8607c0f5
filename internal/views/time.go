// ABOUTME: Calendar-day bucketing and relative timestamp labels
// ABOUTME: Pure functions of (timestamp, now); day math uses the viewer's zone from now

package views

import (
	"fmt"
	"time"

	"github.com/neurotrack/chat-engine/internal/store"
)

const dateLabelLayout = "Jan 2, 2006"

// DayBucket groups consecutive messages that fall on the same calendar day.
type DayBucket struct {
	Day      time.Time // midnight of the bucket's day in the viewer's zone
	Label    string    // "Today", "Yesterday", or an explicit date
	Messages []store.Message
}

// DayBuckets groups an ordered message list into calendar-day buckets,
// preserving message order. Days are resolved in now's location, which stands
// in for the viewer's local time zone.
func DayBuckets(msgs []store.Message, now time.Time) []DayBucket {
	loc := now.Location()
	today := midnight(now, loc)
	yesterday := today.AddDate(0, 0, -1)

	var buckets []DayBucket
	for _, m := range msgs {
		day := midnight(m.CreatedAt.In(loc), loc)
		if n := len(buckets); n > 0 && buckets[n-1].Day.Equal(day) {
			buckets[n-1].Messages = append(buckets[n-1].Messages, m)
			continue
		}
		var label string
		switch {
		case day.Equal(today):
			label = "Today"
		case day.Equal(yesterday):
			label = "Yesterday"
		default:
			label = day.Format(dateLabelLayout)
		}
		buckets = append(buckets, DayBucket{Day: day, Label: label, Messages: []store.Message{m}})
	}
	return buckets
}

// RelativeLabel renders a summary timestamp relative to now: "Just now" under
// a minute, then minutes, hours and days, and an explicit date past a week.
func RelativeLabel(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.In(now.Location()).Format(dateLabelLayout)
	}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
