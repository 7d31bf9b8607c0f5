// ABOUTME: Pure view projections over the message store and participant directory
// ABOUTME: Derives the sorted/filtered conversation list; no view is cached or authoritative

package views

import (
	"sort"
	"strings"
	"time"

	"github.com/neurotrack/chat-engine/internal/store"
	"github.com/neurotrack/chat-engine/internal/typing"
)

// Filter restricts the conversation list by participant kind.
type Filter string

const (
	FilterAll             Filter = "all"
	FilterPatient         Filter = "patient"
	FilterPhysiotherapist Filter = "physiotherapist"
)

// Conversation is one render-ready row of the conversation list.
type Conversation struct {
	Participant store.Participant
	LastMessage *store.Message
	Unread      int
	Online      bool
	Typing      bool
	WhenLabel   string // relative label for the last message, "" when no messages
}

// Projector derives render-ready views on demand. It holds read-only references
// and never mutates; every method recomputes from current state.
type Projector struct {
	msgs   *store.MessageStore
	dir    *store.Directory
	typing *typing.Tracker
}

// NewProjector creates a projector. The typing tracker may be nil when no
// typing indicator is wanted.
func NewProjector(msgs *store.MessageStore, dir *store.Directory, tracker *typing.Tracker) *Projector {
	return &Projector{msgs: msgs, dir: dir, typing: tracker}
}

// Conversations returns every participant as a conversation row, ordered by
// last-message recency descending. Participants with no messages sort last;
// ties break by display name ascending.
func (p *Projector) Conversations(now time.Time) []Conversation {
	rows := make([]Conversation, 0, p.dir.Len())
	for _, part := range p.dir.List() {
		rows = append(rows, p.row(part, now))
	}
	sortConversations(rows)
	return rows
}

// Filtered returns the sorted list restricted by kind and free-text query.
// The query matches case-insensitive substrings of the display name or of any
// message body in the participant's log.
func (p *Projector) Filtered(filter Filter, query string, now time.Time) []Conversation {
	query = strings.ToLower(strings.TrimSpace(query))

	rows := make([]Conversation, 0, p.dir.Len())
	for _, part := range p.dir.List() {
		if filter != FilterAll && filter != "" && Filter(part.Kind) != filter {
			continue
		}
		if query != "" && !p.matchesQuery(part, query) {
			continue
		}
		rows = append(rows, p.row(part, now))
	}
	sortConversations(rows)
	return rows
}

// Thread returns the participant's messages grouped into calendar-day buckets.
func (p *Projector) Thread(participantID string, now time.Time) []DayBucket {
	return DayBuckets(p.msgs.ListOrdered(participantID), now)
}

func (p *Projector) row(part store.Participant, now time.Time) Conversation {
	row := Conversation{
		Participant: part,
		Unread:      part.UnreadCount,
		Online:      part.Online(),
	}
	if last, ok := p.msgs.LastMessage(part.ID); ok {
		row.LastMessage = &last
		row.WhenLabel = RelativeLabel(last.CreatedAt, now)
	}
	if p.typing != nil {
		row.Typing = p.typing.IsTyping(part.ID, now)
	}
	return row
}

func (p *Projector) matchesQuery(part store.Participant, query string) bool {
	if strings.Contains(strings.ToLower(part.DisplayName), query) {
		return true
	}
	for _, m := range p.msgs.ListOrdered(part.ID) {
		if strings.Contains(strings.ToLower(m.Body), query) {
			return true
		}
	}
	return false
}

func sortConversations(rows []Conversation) {
	sort.SliceStable(rows, func(i, j int) bool {
		li, lj := rows[i].LastMessage, rows[j].LastMessage
		switch {
		case li == nil && lj == nil:
			return rows[i].Participant.DisplayName < rows[j].Participant.DisplayName
		case li == nil:
			return false
		case lj == nil:
			return true
		case !li.CreatedAt.Equal(lj.CreatedAt):
			return li.CreatedAt.After(lj.CreatedAt)
		default:
			return rows[i].Participant.DisplayName < rows[j].Participant.DisplayName
		}
	})
}
