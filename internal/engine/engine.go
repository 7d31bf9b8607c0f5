// ABOUTME: Sync coordinator applying outbound sends and inbound real-time events
// ABOUTME: Single owner of state mutation; record first, then hand off to transport

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurotrack/chat-engine/internal/session"
	"github.com/neurotrack/chat-engine/internal/store"
	"github.com/neurotrack/chat-engine/internal/typing"
)

// ErrNoActiveConversation is returned by Send when the target participant is
// not the active conversation.
var ErrNoActiveConversation = errors.New("no active conversation for participant")

// ErrEmptyBody is returned by Send when the message body is empty after trimming.
var ErrEmptyBody = errors.New("message body is empty")

// provisionalPrefix marks client-generated message ids awaiting server
// confirmation. Servers never issue ids with this prefix.
const provisionalPrefix = "local-"

// Sender delivers an outgoing message to the server. Every call must resolve:
// a confirmed message on success, an error otherwise. The transport owns
// timeout policy and must not abandon a send.
type Sender interface {
	Send(ctx context.Context, participantID, provisionalID, body string) (store.Message, error)
}

// DirectoryFetcher returns the participant records for the staff user's session.
type DirectoryFetcher interface {
	FetchDirectory(ctx context.Context) ([]store.Participant, error)
}

// HistoryFetcher returns the ordered message history for one participant.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, participantID string) ([]store.Message, error)
}

// Engine is the sync coordinator: the single owner of state mutation. Send,
// ApplyEvent and the session transitions all serialize on one mutex, so no
// mutation observes a partially-applied prior mutation. The transport call
// inside Send is the only suspension point and runs outside the lock, which
// is why outgoing messages carry an explicit pending state.
type Engine struct {
	mu       sync.Mutex
	msgs     *store.MessageStore
	dir      *store.Directory
	sess     *session.Session
	typing   *typing.Tracker
	sender   Sender
	notifier *Notifier
	logger   *slog.Logger
}

// New creates an engine over the given state and transport. Pass nil logger
// for the default.
func New(msgs *store.MessageStore, dir *store.Directory, sess *session.Session, tracker *typing.Tracker, sender Sender, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine")
	return &Engine{
		msgs:     msgs,
		dir:      dir,
		sess:     sess,
		typing:   tracker,
		sender:   sender,
		notifier: NewNotifier(logger),
		logger:   logger,
	}
}

// Subscribe registers a render-layer change listener. See Notifier.Subscribe.
func (e *Engine) Subscribe(ctx context.Context) (<-chan struct{}, string) {
	return e.notifier.Subscribe(ctx)
}

// Unsubscribe removes a change listener.
func (e *Engine) Unsubscribe(subID string) {
	e.notifier.Unsubscribe(subID)
}

// Close shuts down the change notifier.
func (e *Engine) Close() {
	e.notifier.Close()
}

// Activate opens a conversation, marking its unread messages read.
func (e *Engine) Activate(participantID string) error {
	e.mu.Lock()
	err := e.sess.Activate(participantID)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.notifier.Notify()
	return nil
}

// Deactivate closes the active conversation, if any.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	e.sess.Deactivate()
	e.mu.Unlock()
	e.notifier.Notify()
}

// ActiveConversation returns the active participant id, if any.
func (e *Engine) ActiveConversation() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Active()
}

// Send records an optimistic outgoing message and hands it to the transport.
// The pending message is visible in the log immediately; reconciliation
// happens asynchronously when the transport resolves. Returns the provisional
// id so the caller can correlate the eventual confirmed or failed record.
//
// Preconditions: non-empty body after trimming, and the conversation must be
// active on the target participant. Violations are rejected before any
// mutation.
func (e *Engine) Send(ctx context.Context, participantID, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}

	e.mu.Lock()
	if !e.sess.IsActive(participantID) {
		e.mu.Unlock()
		return "", fmt.Errorf("send to %q: %w", participantID, ErrNoActiveConversation)
	}

	provisionalID := provisionalPrefix + uuid.New().String()
	msg := store.Message{
		ID:            provisionalID,
		Direction:     store.DirectionOutgoing,
		Body:          body,
		CreatedAt:     time.Now(),
		DeliveryState: store.DeliveryPending,
	}
	if _, err := e.msgs.Append(participantID, msg); err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("recording outgoing message: %w", err)
	}
	e.touchLocked(participantID)
	e.mu.Unlock()

	e.logger.Debug("outgoing message recorded",
		"participant_id", participantID,
		"provisional_id", provisionalID)
	e.notifier.Notify()

	// Once handed to the transport there is no cancellation: the send must
	// resolve even if the caller's context ends first.
	go e.deliver(context.WithoutCancel(ctx), participantID, provisionalID, body)

	return provisionalID, nil
}

// deliver runs the transport call and reconciles the provisional record.
func (e *Engine) deliver(ctx context.Context, participantID, provisionalID, body string) {
	confirmed, err := e.sender.Send(ctx, participantID, provisionalID, body)

	e.mu.Lock()
	if err != nil {
		// Transport failure is recovered locally as delivery state, never
		// surfaced as an error: the message stays visible for retry.
		e.msgs.MarkFailed(participantID, provisionalID)
		e.touchLocked(participantID)
		e.mu.Unlock()

		e.logger.Warn("send failed",
			"participant_id", participantID,
			"provisional_id", provisionalID,
			"error", err)
		e.notifier.Notify()
		return
	}

	confirmed.Direction = store.DirectionOutgoing
	confirmed.DeliveryState = store.DeliverySent
	if confirmed.ID == "" {
		confirmed.ID = provisionalID
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = time.Now()
	}
	if err := e.msgs.Replace(participantID, provisionalID, confirmed); err != nil {
		// The provisional record vanished, which no code path should allow
		e.mu.Unlock()
		e.logger.Error("reconciliation failed",
			"participant_id", participantID,
			"provisional_id", provisionalID,
			"error", err)
		return
	}
	e.touchLocked(participantID)
	e.mu.Unlock()

	e.logger.Debug("message confirmed",
		"participant_id", participantID,
		"provisional_id", provisionalID,
		"message_id", confirmed.ID)
	e.notifier.Notify()
}

// ApplyEvent applies one inbound real-time event. Events must be fed in
// arrival order per participant; the engine never reorders by timestamp,
// since transport delivery order is the only ordering guarantee available.
func (e *Engine) ApplyEvent(ev Event) error {
	switch ev.Type {
	case EventMessageArrived:
		return e.applyMessageArrived(ev)
	case EventReadReceipt:
		return e.applyReadReceipt(ev)
	case EventTypingChanged:
		e.typing.Set(ev.ParticipantID, ev.IsTyping, time.Now())
		e.notifier.Notify()
		return nil
	case EventPresenceChanged:
		e.mu.Lock()
		err := e.dir.SetOnline(ev.ParticipantID, ev.IsOnline)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		e.notifier.Notify()
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func (e *Engine) applyMessageArrived(ev Event) error {
	if ev.Message == nil {
		return fmt.Errorf("%s event without message", EventMessageArrived)
	}

	e.mu.Lock()
	if _, ok := e.dir.Get(ev.ParticipantID); !ok {
		e.mu.Unlock()
		return fmt.Errorf("message for participant %q: %w", ev.ParticipantID, store.ErrNotFound)
	}

	if e.msgs.Contains(ev.ParticipantID, ev.Message.ID) {
		// Duplicate delivery: absorbed silently, never an error
		e.mu.Unlock()
		e.logger.Debug("duplicate message ignored",
			"participant_id", ev.ParticipantID,
			"message_id", ev.Message.ID)
		return nil
	}

	msg := *ev.Message
	if msg.Direction == "" {
		msg.Direction = store.DirectionIncoming
	}
	if msg.Direction == store.DirectionIncoming {
		msg.DeliveryState = store.DeliverySent
	}
	if _, err := e.msgs.Append(ev.ParticipantID, msg); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("storing arrived message: %w", err)
	}

	// An open conversation is "seen" immediately: no unread accrues while
	// the viewer is looking at it.
	if msg.Direction == store.DirectionIncoming && e.sess.IsActive(ev.ParticipantID) {
		e.msgs.MarkRead(ev.ParticipantID, msg.ID)
	}
	e.touchLocked(ev.ParticipantID)
	e.mu.Unlock()

	e.notifier.Notify()
	return nil
}

func (e *Engine) applyReadReceipt(ev Event) error {
	e.mu.Lock()
	changed := e.msgs.MarkRead(ev.ParticipantID, ev.MessageID)
	if changed {
		e.touchLocked(ev.ParticipantID)
	}
	e.mu.Unlock()

	if changed {
		e.notifier.Notify()
	}
	// A receipt for an unknown or already-read message is a no-op: receipts
	// can race ahead of their message on a fresh connection
	return nil
}

// LoadDirectory populates the directory from the fetch collaborator, deriving
// each participant's summary from whatever the store already holds. Used once
// at session start.
func (e *Engine) LoadDirectory(ctx context.Context, src DirectoryFetcher) error {
	participants, err := src.FetchDirectory(ctx)
	if err != nil {
		return fmt.Errorf("fetching directory: %w", err)
	}

	e.mu.Lock()
	for _, p := range participants {
		e.dir.Upsert(p)
		e.touchLocked(p.ID)
	}
	e.mu.Unlock()

	e.logger.Debug("directory loaded", "participants", len(participants))
	e.notifier.Notify()
	return nil
}

// LoadHistory populates one participant's log from the history fetch
// collaborator, replacing any prior contents, then reconciles the summary.
// If the conversation is currently active, the fetched messages are marked
// read immediately.
func (e *Engine) LoadHistory(ctx context.Context, src HistoryFetcher, participantID string) error {
	if _, ok := e.dir.Get(participantID); !ok {
		return fmt.Errorf("history for participant %q: %w", participantID, store.ErrNotFound)
	}

	history, err := src.FetchHistory(ctx, participantID)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	e.mu.Lock()
	e.msgs.LoadHistory(participantID, history)
	if e.sess.IsActive(participantID) {
		for _, m := range e.msgs.ListOrdered(participantID) {
			if m.Unread() {
				e.msgs.MarkRead(participantID, m.ID)
			}
		}
	}
	e.touchLocked(participantID)
	e.mu.Unlock()

	e.logger.Debug("history loaded",
		"participant_id", participantID,
		"messages", len(history))
	e.notifier.Notify()
	return nil
}

// touchLocked reconciles the participant's denormalized summary with the log.
// Must be called with e.mu held, after the directory entry is known to exist.
func (e *Engine) touchLocked(participantID string) {
	patch := store.SummaryPatch{
		UnreadCount: e.msgs.UnreadCount(participantID),
	}
	if last, ok := e.msgs.LastMessage(participantID); ok {
		patch.LastMessageID = last.ID
	}
	if err := e.dir.Touch(participantID, patch); err != nil {
		e.logger.Error("summary update failed",
			"participant_id", participantID,
			"error", err)
	}
}
