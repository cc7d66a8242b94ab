package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"snowboard-doctor/internal/utils"
)

// Request is the webhook payload. The field names are the backend's
// contract.
type Request struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
}

// Sender delivers one request to the conversational backend and returns the
// raw reply body.
type Sender interface {
	Send(ctx context.Context, req Request) ([]byte, error)
}

// StatusError is a reply with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

const maxErrorBody = 256

type WebhookOptions struct {
	URL      string
	Username string
	Password string
	Client   *http.Client
	Logger   *utils.Logger
}

// WebhookClient posts chat turns to an n8n chat webhook. Each call is a
// single attempt with no client-side timeout; ctx is the only bound.
type WebhookClient struct {
	url      string
	username string
	password string
	client   *http.Client
	logger   *utils.Logger
}

func NewWebhookClient(opts WebhookOptions) *WebhookClient {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &WebhookClient{
		url:      opts.URL,
		username: opts.Username,
		password: opts.Password,
		client:   client,
		logger:   logger,
	}
}

func (w *WebhookClient) Send(ctx context.Context, req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/html, application/json")
	if w.username != "" || w.password != "" {
		httpReq.SetBasicAuth(w.username, w.password)
	}

	w.logger.Debugf("posting chat turn (%d bytes) for session %.8s", len(payload), req.SessionID)
	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	w.logger.Debugf("webhook replied %d (%d bytes)", resp.StatusCode, len(body))
	return body, nil
}
