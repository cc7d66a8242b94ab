package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClientSend(t *testing.T) {
	var got Request
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "snowboard-doctor", user)
		assert.Equal(t, "snowboard-doctor", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"output":"hi there"}`))
	}))
	defer srv.Close()

	client := NewWebhookClient(WebhookOptions{
		URL:      srv.URL,
		Username: "snowboard-doctor",
		Password: "snowboard-doctor",
	})
	body, err := client.Send(context.Background(), Request{ChatInput: "hello", SessionID: "token-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":"hi there"}`, string(body))
	assert.Equal(t, Request{ChatInput: "hello", SessionID: "token-1"}, got)
	assert.Equal(t, 1, calls)
}

func TestWebhookClientWireFormat(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	}))
	defer srv.Close()

	_, err := NewWebhookClient(WebhookOptions{URL: srv.URL}).Send(context.Background(), Request{ChatInput: "q", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"chatInput": "q", "sessionId": "s"}, raw)
}

func TestWebhookClientStatusError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, strings.Repeat("x", 1000), http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewWebhookClient(WebhookOptions{URL: srv.URL}).Send(context.Background(), Request{ChatInput: "hello"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBody)
	assert.Equal(t, 1, calls, "failed requests are not retried")
}

func TestWebhookClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewWebhookClient(WebhookOptions{URL: url}).Send(context.Background(), Request{ChatInput: "hello"})
	assert.Error(t, err)
}

func TestWebhookClientHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewWebhookClient(WebhookOptions{URL: srv.URL}).Send(ctx, Request{ChatInput: "hello"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelOverWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<iframe srcdoc="Try a softer flex &amp; a setback stance."></iframe>`))
	}))
	defer srv.Close()

	c := newTestChannel(NewWebhookClient(WebhookOptions{URL: srv.URL}))
	out, ok := c.Submit(context.Background(), "powder tips?")
	require.True(t, ok)
	assert.Nil(t, out.Notice)
	assert.Equal(t, "Try a softer flex & a setback stance.", out.Reply.Content)
}
