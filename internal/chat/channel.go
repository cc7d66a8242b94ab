package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"snowboard-doctor/internal/identity"
	"snowboard-doctor/internal/utils"
)

const (
	// FallbackReply stands in when a reply carries no text.
	FallbackReply = "I received your message!"
	// ErrorReply is appended in place of a reply when the exchange fails.
	ErrorReply = "Sorry, I encountered an error. Please try again."
)

// Notice is a transient notification for the user.
type Notice struct {
	Title       string
	Description string
}

var ConnectionErrorNotice = Notice{
	Title:       "Connection Error",
	Description: "Failed to send message. Please try again.",
}

var errSendInterrupted = errors.New("send interrupted")

// Result is the settled outcome of one request.
type Result struct {
	Body []byte
	Err  error
}

// Outcome is what Complete appended, plus a notice when the exchange failed.
type Outcome struct {
	Reply  Message
	Notice *Notice
}

// State is a snapshot of the conversation.
type State struct {
	Messages []Message
	Pending  bool
}

type ChannelOptions struct {
	Session identity.Session
	Sender  Sender
	Logger  *utils.Logger
	Now     func() time.Time
}

// Channel owns one conversation. At most one request is in flight: Begin
// refuses while a reply is pending, and Complete always releases it.
type Channel struct {
	session identity.Session
	sender  Sender
	logger  *utils.Logger
	now     func() time.Time

	mu       sync.Mutex
	messages []Message
	pending  bool
}

func NewChannel(opts ChannelOptions) *Channel {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Channel{
		session: opts.Session,
		sender:  opts.Sender,
		logger:  logger,
		now:     now,
	}
}

func (c *Channel) Session() identity.Session {
	return c.session
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Messages: append([]Message(nil), c.messages...), Pending: c.pending}
}

func (c *Channel) Messages() []Message {
	return c.State().Messages
}

func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Begin appends the user's message and marks the channel pending. It
// reports false, changing nothing, for blank text or while a reply is
// pending.
func (c *Channel) Begin(text string) (Request, bool) {
	content := strings.TrimSpace(text)
	if content == "" {
		return Request{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return Request{}, false
	}
	c.messages = append(c.messages, NewMessage(AuthorUser, content, c.now()))
	c.pending = true
	return Request{ChatInput: content, SessionID: string(c.session.Token)}, true
}

// Send performs the network exchange for a request returned by Begin. It
// touches no conversation state and may run off the UI loop.
func (c *Channel) Send(ctx context.Context, req Request) Result {
	if c.sender == nil {
		return Result{Err: errors.New("no webhook configured")}
	}
	body, err := c.sender.Send(ctx, req)
	return Result{Body: body, Err: err}
}

// Complete appends the assistant's reply for the pending request and clears
// pending. Without a pending request it does nothing.
func (c *Channel) Complete(res Result) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		c.logger.Warnf("dropping reply with no request pending")
		return Outcome{}
	}
	defer func() { c.pending = false }()

	var out Outcome
	if res.Err != nil {
		c.logger.Errorf("sending message: %v", res.Err)
		notice := ConnectionErrorNotice
		out.Notice = &notice
		out.Reply = NewMessage(AuthorAssistant, ErrorReply, c.now())
	} else {
		shape := Classify(res.Body)
		if _, ok := shape.(Unrecognized); ok {
			c.logger.Warnf("unrecognized reply shape (%d bytes)", len(res.Body))
		}
		out.Reply = NewMessage(AuthorAssistant, Extract(shape), c.now())
	}
	c.messages = append(c.messages, out.Reply)
	return out
}

// Submit runs a whole exchange synchronously. ok is false when Begin
// refused the text.
func (c *Channel) Submit(ctx context.Context, text string) (out Outcome, ok bool) {
	req, ok := c.Begin(text)
	if !ok {
		return Outcome{}, false
	}
	res := Result{Err: errSendInterrupted}
	defer func() { out = c.Complete(res) }()
	res = c.Send(ctx, req)
	return Outcome{}, true
}
