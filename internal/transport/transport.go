// ABOUTME: Wire types shared by the REST client and the push channel reader
// ABOUTME: JSON DTOs and their conversions to the engine's data model

package transport

import (
	"time"

	"github.com/neurotrack/chat-engine/internal/store"
)

// participantRecord is the wire shape of a directory entry.
type participantRecord struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	DisplayName string     `json:"display_name"`
	RoleLabel   string     `json:"role_label"`
	OnlineSince *time.Time `json:"online_since,omitempty"`
}

func (r participantRecord) toParticipant() store.Participant {
	return store.Participant{
		ID:          r.ID,
		Kind:        store.Kind(r.Kind),
		DisplayName: r.DisplayName,
		RoleLabel:   r.RoleLabel,
		OnlineSince: r.OnlineSince,
	}
}

// messageRecord is the wire shape of a message in history responses, send
// confirmations and push frames.
type messageRecord struct {
	ID        string     `json:"id"`
	Direction string     `json:"direction"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func (r messageRecord) toMessage() store.Message {
	return store.Message{
		ID:        r.ID,
		Direction: store.Direction(r.Direction),
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
		ReadAt:    r.ReadAt,
	}
}
