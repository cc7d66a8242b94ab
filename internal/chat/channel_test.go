package chat

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowboard-doctor/internal/identity"
)

type fakeSender struct {
	body     []byte
	err      error
	requests []Request
	// observe runs during Send so tests can inspect the channel mid-flight.
	observe func()
}

func (f *fakeSender) Send(_ context.Context, req Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if f.observe != nil {
		f.observe()
	}
	return f.body, f.err
}

var testSession = identity.Session{
	Identity: identity.Identity{Kind: identity.KindGuest, Email: "rider@example.com"},
	Token:    "abcdefghijklmnopqrstuvwxyz012345",
}

func newTestChannel(sender Sender) *Channel {
	return NewChannel(ChannelOptions{
		Session: testSession,
		Sender:  sender,
		Now:     func() time.Time { return time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC) },
	})
}

func lastMessage(t *testing.T, c *Channel) Message {
	t.Helper()
	msgs := c.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func TestSubmitStructuredReply(t *testing.T) {
	sender := &fakeSender{body: []byte(`{"output":"hi there"}`)}
	c := newTestChannel(sender)

	out, ok := c.Submit(context.Background(), "hello")
	require.True(t, ok)
	assert.Nil(t, out.Notice)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, AuthorUser, msgs[0].Author)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, AuthorAssistant, msgs[1].Author)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.Equal(t, out.Reply, msgs[1])
	assert.False(t, c.Pending())

	require.Len(t, sender.requests, 1)
	assert.Equal(t, Request{ChatInput: "hello", SessionID: string(testSession.Token)}, sender.requests[0])
}

func TestSubmitFailureAppendsErrorReply(t *testing.T) {
	sender := &fakeSender{err: &StatusError{StatusCode: http.StatusInternalServerError}}
	c := newTestChannel(sender)

	out, ok := c.Submit(context.Background(), "hello")
	require.True(t, ok)
	require.NotNil(t, out.Notice)
	assert.Equal(t, ConnectionErrorNotice, *out.Notice)
	assert.Equal(t, ErrorReply, lastMessage(t, c).Content)
	assert.Equal(t, AuthorAssistant, lastMessage(t, c).Author)
	assert.False(t, c.Pending())
}

func TestSubmitBlankIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n "} {
		sender := &fakeSender{body: []byte(`{"output":"x"}`)}
		c := newTestChannel(sender)

		_, ok := c.Submit(context.Background(), text)
		assert.False(t, ok)
		assert.Empty(t, c.Messages())
		assert.Empty(t, sender.requests)
		assert.False(t, c.Pending())
	}
}

func TestSubmitEmbeddedDocumentReply(t *testing.T) {
	body := `<html><body><iframe sandbox="" srcdoc="Wax every &quot;5&quot; days &amp; check edges" style="border:0"></iframe></body></html>`
	c := newTestChannel(&fakeSender{body: []byte(body)})

	_, ok := c.Submit(context.Background(), "how often should I wax?")
	require.True(t, ok)
	assert.Equal(t, `Wax every "5" days & check edges`, lastMessage(t, c).Content)
}

func TestSubmitTrimsUserText(t *testing.T) {
	sender := &fakeSender{body: []byte(`{"output":"ok"}`)}
	c := newTestChannel(sender)

	_, ok := c.Submit(context.Background(), "  my edges are rusty  ")
	require.True(t, ok)
	assert.Equal(t, "my edges are rusty", c.Messages()[0].Content)
	assert.Equal(t, "my edges are rusty", sender.requests[0].ChatInput)
}

func TestBeginWhilePendingIsNoop(t *testing.T) {
	c := newTestChannel(&fakeSender{})

	req, ok := c.Begin("first")
	require.True(t, ok)
	assert.Equal(t, "first", req.ChatInput)
	assert.True(t, c.Pending())

	before := c.State()
	_, ok = c.Begin("second")
	assert.False(t, ok)
	assert.Equal(t, before, c.State())

	c.Complete(Result{Body: []byte(`{"output":"done"}`)})
	assert.False(t, c.Pending())
	_, ok = c.Begin("second")
	assert.True(t, ok)
}

func TestPendingHeldOnlyWhileInFlight(t *testing.T) {
	for name, sender := range map[string]*fakeSender{
		"success": {body: []byte(`{"output":"ok"}`)},
		"failure": {err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestChannel(sender)
			var during State
			sender.observe = func() { during = c.State() }

			_, ok := c.Submit(context.Background(), "hello")
			require.True(t, ok)
			assert.True(t, during.Pending)
			require.Len(t, during.Messages, 1)
			assert.Equal(t, AuthorUser, during.Messages[0].Author)
			assert.False(t, c.Pending())
		})
	}
}

func TestLogGrowsByTwoPerExchange(t *testing.T) {
	inputs := []string{"a", "why does my board chatter?", "ñandú", "  x  ", "multi\nline"}
	replies := []*fakeSender{
		{body: []byte(`{"output":"one"}`)},
		{err: errors.New("boom")},
		{body: []byte(`<iframe srcdoc="">`)},
		{body: []byte(`not json`)},
		{body: []byte(`[{"output":"array"}]`)},
	}
	c := newTestChannel(nil)
	for i, text := range inputs {
		c.sender = replies[i]
		before := len(c.Messages())
		_, ok := c.Submit(context.Background(), text)
		require.True(t, ok)
		assert.Len(t, c.Messages(), before+2)
	}

	msgs := c.Messages()
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, AuthorUser, msgs[i].Author)
		assert.Equal(t, AuthorAssistant, msgs[i+1].Author)
		assert.NotEqual(t, msgs[i].ID, msgs[i+1].ID)
	}
	assert.Equal(t, FallbackReply, msgs[5].Content)
	assert.Equal(t, FallbackReply, msgs[7].Content)
	assert.Equal(t, "array", msgs[9].Content)
}

func TestSubmitWithoutSenderFails(t *testing.T) {
	c := newTestChannel(nil)

	out, ok := c.Submit(context.Background(), "hello")
	require.True(t, ok)
	assert.NotNil(t, out.Notice)
	assert.Equal(t, ErrorReply, lastMessage(t, c).Content)
}

func TestCompleteWithoutPendingIsNoop(t *testing.T) {
	c := newTestChannel(&fakeSender{})

	out := c.Complete(Result{Body: []byte(`{"output":"stray"}`)})
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, c.Messages())
}

func TestSubmitReleasesPendingOnPanic(t *testing.T) {
	sender := &fakeSender{}
	sender.observe = func() { panic("transport blew up") }
	c := newTestChannel(sender)

	assert.Panics(t, func() { c.Submit(context.Background(), "hello") })
	assert.False(t, c.Pending())
	assert.Equal(t, ErrorReply, lastMessage(t, c).Content)
}

func TestStateIsACopy(t *testing.T) {
	c := newTestChannel(&fakeSender{body: []byte(`{"output":"ok"}`)})
	_, ok := c.Submit(context.Background(), "hello")
	require.True(t, ok)

	state := c.State()
	state.Messages[0].Content = "changed"
	assert.Equal(t, "hello", c.Messages()[0].Content)
}
