// ABOUTME: Data model and sentinel errors for the conversation engine
// ABOUTME: Defines Participant, Message and the states they transition through

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced participant or message does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateMessage is returned when appending a message whose id is already in the log
var ErrDuplicateMessage = errors.New("message already exists")

// Kind identifies what role a participant plays in the care conversation
type Kind string

const (
	KindPatient         Kind = "patient"
	KindPhysiotherapist Kind = "physiotherapist"
)

// Direction indicates whether a message was received or sent by the staff user
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// DeliveryState tracks an outgoing message through the send pipeline.
// Incoming messages are always DeliverySent.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

// Message is a single entry in a participant's log. Once appended it is never
// removed; only DeliveryState and ReadAt may change.
type Message struct {
	ID            string
	ParticipantID string
	Direction     Direction
	Body          string
	CreatedAt     time.Time
	DeliveryState DeliveryState
	ReadAt        *time.Time

	// Seq is the per-log insertion sequence, assigned on append. It breaks
	// CreatedAt ties so log order stays a deterministic total order.
	Seq uint64
}

// Unread reports whether the message counts toward the unread badge.
func (m Message) Unread() bool {
	return m.Direction == DirectionIncoming && m.ReadAt == nil
}

// Participant is a patient or physiotherapist the staff user is chatting with.
// LastMessageID and UnreadCount are denormalized from the message log and are
// kept in sync by the engine on every log mutation.
type Participant struct {
	ID            string
	Kind          Kind
	DisplayName   string
	RoleLabel     string
	OnlineSince   *time.Time
	LastMessageID string
	UnreadCount   int
}

// Online reports whether the participant currently has presence.
func (p Participant) Online() bool {
	return p.OnlineSince != nil
}

// SummaryPatch carries the denormalized summary fields applied by Directory.Touch.
type SummaryPatch struct {
	LastMessageID string
	UnreadCount   int
}
