// ABOUTME: In-memory change notifier for the render subscription boundary
// ABOUTME: Coalescing edge triggers; subscribers re-pull projections on each tick

package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Notifier fans out notify-on-change ticks to render-layer subscribers.
// Ticks carry no payload; a subscriber re-derives views through the projector
// after each one. Channels are buffered at one and publishes never block, so
// rapid changes coalesce into a single pending tick. That is harmless since
// every pull sees current state.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan struct{}
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for the default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]chan struct{}),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers a change listener. Returns the tick channel and a
// subscription id for later removal. The subscription is cleaned up
// automatically when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan struct{}, string) {
	subID := uuid.New().String()
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subscribers[subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		n.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, ok := n.subscribers[subID]
	if !ok {
		return
	}
	delete(n.subscribers, subID)
	close(ch)

	n.logger.Debug("subscriber removed", "sub_id", subID)
}

// Notify signals every subscriber that state changed. Non-blocking: a
// subscriber with a tick already pending is skipped.
func (n *Notifier) Notify() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// Tick already pending; the next pull sees this change too
		}
	}
}

// Close removes all subscriptions and closes their channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for subID, ch := range n.subscribers {
		close(ch)
		delete(n.subscribers, subID)
	}
	n.logger.Debug("notifier closed")
}
