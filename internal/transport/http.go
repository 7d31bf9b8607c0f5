// ABOUTME: REST client for the directory fetch, history fetch and send collaborators
// ABOUTME: JSON over net/http with the server's success-envelope responses

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neurotrack/chat-engine/internal/store"
)

const defaultRequestTimeout = 15 * time.Second

// Client talks to the chat API over REST. It implements the engine's
// DirectoryFetcher, HistoryFetcher and Sender interfaces. Every Send call
// resolves: a confirmed message or an error, never silence.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a REST client for the given API base URL. The token, if
// non-empty, is sent as a bearer Authorization header. Pass nil logger for
// the default.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger.With("component", "transport"),
	}
}

// FetchDirectory returns all participants the staff user is chatting with.
func (c *Client) FetchDirectory(ctx context.Context) ([]store.Participant, error) {
	var out struct {
		Success      bool                `json:"success"`
		Message      string              `json:"message"`
		Participants []participantRecord `json:"participants"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/participants", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("directory fetch rejected: %s", out.Message)
	}

	participants := make([]store.Participant, 0, len(out.Participants))
	for _, r := range out.Participants {
		participants = append(participants, r.toParticipant())
	}
	return participants, nil
}

// FetchHistory returns the ordered message history for one participant.
func (c *Client) FetchHistory(ctx context.Context, participantID string) ([]store.Message, error) {
	var out struct {
		Success  bool            `json:"success"`
		Message  string          `json:"message"`
		Messages []messageRecord `json:"messages"`
	}
	path := "/api/chat/history/" + url.PathEscape(participantID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("history fetch rejected: %s", out.Message)
	}

	msgs := make([]store.Message, 0, len(out.Messages))
	for _, r := range out.Messages {
		msgs = append(msgs, r.toMessage())
	}
	return msgs, nil
}

// Send delivers an outgoing message and returns the server-confirmed record.
// The provisional id travels with the request so the server can de-duplicate
// a retried delivery of the same send.
func (c *Client) Send(ctx context.Context, participantID, provisionalID, body string) (store.Message, error) {
	in := struct {
		ParticipantID string `json:"participant_id"`
		ProvisionalID string `json:"provisional_id"`
		Body          string `json:"body"`
	}{participantID, provisionalID, body}

	var out struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Sent    *messageRecord `json:"sent"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/send", in, &out); err != nil {
		return store.Message{}, err
	}
	if !out.Success || out.Sent == nil {
		return store.Message{}, fmt.Errorf("send rejected: %s", out.Message)
	}
	return out.Sent.toMessage(), nil
}

// doJSON performs one request with an optional JSON body, decoding the JSON
// response into out. Non-2xx statuses are errors.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: server returned status %d", method, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
