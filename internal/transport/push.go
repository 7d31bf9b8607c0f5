// ABOUTME: WebSocket push channel reader delivering real-time events to the engine
// ABOUTME: Applies frames strictly in read order; reconnect policy belongs to the caller

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neurotrack/chat-engine/internal/engine"
	"github.com/neurotrack/chat-engine/internal/store"
)

const (
	// pongWait is how long to wait for a pong before treating the
	// connection as dead; pings go out at a third of that.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait / 3
	writeWait  = 10 * time.Second
)

// EventSink consumes decoded push events. The engine implements it.
type EventSink interface {
	ApplyEvent(ev engine.Event) error
}

// eventFrame is the wire shape of one push-channel event.
type eventFrame struct {
	Type          string         `json:"type"`
	ParticipantID string         `json:"participant_id"`
	Message       *messageRecord `json:"message,omitempty"`
	MessageID     string         `json:"message_id,omitempty"`
	IsTyping      bool           `json:"is_typing,omitempty"`
	IsOnline      bool           `json:"is_online,omitempty"`
}

// PushReader owns one WebSocket connection to the push channel and feeds
// every frame to the sink in read order, which preserves the server's
// per-participant delivery order.
type PushReader struct {
	url    string
	token  string
	sink   EventSink
	logger *slog.Logger
}

// NewPushReader creates a reader for the given WebSocket URL. Pass nil logger
// for the default.
func NewPushReader(wsURL, token string, sink EventSink, logger *slog.Logger) *PushReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushReader{
		url:    wsURL,
		token:  token,
		sink:   sink,
		logger: logger.With("component", "push"),
	}
}

// Run dials the push channel and pumps events until ctx is cancelled or the
// connection breaks. A clean shutdown returns nil; connection errors are
// returned so the caller can decide whether to reconnect.
func (r *PushReader) Run(ctx context.Context) error {
	header := http.Header{}
	if r.token != "" {
		header.Set("Authorization", "Bearer "+r.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, header)
	if err != nil {
		return fmt.Errorf("dialing push channel: %w", err)
	}
	defer conn.Close()

	r.logger.Debug("push channel connected", "url", r.url)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keepalive pings and context-driven close
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				deadline := time.Now().Add(writeWait)
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading push channel: %w", err)
		}

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.logger.Warn("malformed push frame skipped", "error", err)
			continue
		}

		ev, err := frame.toEvent()
		if err != nil {
			r.logger.Warn("unusable push frame skipped", "error", err)
			continue
		}

		if err := r.sink.ApplyEvent(ev); err != nil {
			// A bad event must not tear down the channel; later events for
			// other participants are still valid
			level := slog.LevelWarn
			if errors.Is(err, store.ErrNotFound) {
				level = slog.LevelDebug
			}
			r.logger.Log(ctx, level, "push event rejected",
				"type", frame.Type,
				"participant_id", frame.ParticipantID,
				"error", err)
		}
	}
}

func (f eventFrame) toEvent() (engine.Event, error) {
	ev := engine.Event{
		Type:          engine.EventType(f.Type),
		ParticipantID: f.ParticipantID,
		MessageID:     f.MessageID,
		IsTyping:      f.IsTyping,
		IsOnline:      f.IsOnline,
	}
	switch ev.Type {
	case engine.EventMessageArrived:
		if f.Message == nil {
			return engine.Event{}, fmt.Errorf("%s frame without message", f.Type)
		}
		msg := f.Message.toMessage()
		ev.Message = &msg
	case engine.EventReadReceipt, engine.EventTypingChanged, engine.EventPresenceChanged:
		// No extra payload to validate
	default:
		return engine.Event{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return ev, nil
}
