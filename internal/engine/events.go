// ABOUTME: Real-time event types delivered by the push channel
// ABOUTME: One Event struct covers message arrival, receipts, typing and presence

package engine

import "github.com/neurotrack/chat-engine/internal/store"

// EventType identifies a push-channel event.
type EventType string

const (
	EventMessageArrived  EventType = "message_arrived"
	EventReadReceipt     EventType = "read_receipt"
	EventTypingChanged   EventType = "typing_changed"
	EventPresenceChanged EventType = "presence_changed"
)

// Event is one inbound real-time event. The transport guarantees arrival
// order per participant and nothing else; the engine applies events strictly
// in that order.
type Event struct {
	Type          EventType
	ParticipantID string

	// Message is set for EventMessageArrived.
	Message *store.Message
	// MessageID is set for EventReadReceipt.
	MessageID string
	// IsTyping is set for EventTypingChanged.
	IsTyping bool
	// IsOnline is set for EventPresenceChanged.
	IsOnline bool
}
