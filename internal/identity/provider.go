package identity

import (
	"context"
	"sync"
)

// Provider is the boundary to the hosted identity provider. All calls may
// block on the network and may fail.
type Provider interface {
	// CheckExistingSession returns the verified identity of a stored session,
	// or nil when there is none.
	CheckExistingSession(ctx context.Context) (*Identity, error)
	Subscribe() *Subscription
	// StartFederatedSignIn begins the redirect flow and returns once the
	// browser has been pointed at the provider. ctx bounds the whole attempt,
	// including waiting for the redirect back to redirectTarget. The outcome
	// is delivered to subscribers.
	StartFederatedSignIn(ctx context.Context, redirectTarget string) error
	SignOut(ctx context.Context) error
}

type EventKind int

const (
	EventSignedIn EventKind = iota + 1
	EventSignedOut
	EventSignInFailed
	// EventRedirect carries the URL the visitor must open to continue.
	EventRedirect
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventSignInFailed:
		return "sign_in_failed"
	case EventRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

type AuthEvent struct {
	Kind     EventKind
	Identity *Identity
	URL      string
	Err      error
}

const subscriptionBuffer = 8

// Subscription is one listener on auth-change events. Unsubscribe closes the
// event channel and is safe to call more than once.
type Subscription struct {
	ch     chan AuthEvent
	once   sync.Once
	detach func(*Subscription)
}

func (s *Subscription) Events() <-chan AuthEvent {
	return s.ch
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach(s)
		}
	})
}

// Broadcaster fans auth events out to subscriptions. The zero value is ready
// to use.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[*Subscription]struct{})
	}
	sub := &Subscription{ch: make(chan AuthEvent, subscriptionBuffer), detach: b.remove}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (b *Broadcaster) Publish(ev AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// DisabledProvider stands in when no hosted provider is configured: there is
// never an existing session and federated sign-in is unavailable.
type DisabledProvider struct {
	events Broadcaster
}

func (p *DisabledProvider) CheckExistingSession(context.Context) (*Identity, error) {
	return nil, nil
}

func (p *DisabledProvider) Subscribe() *Subscription {
	return p.events.Subscribe()
}

func (p *DisabledProvider) StartFederatedSignIn(context.Context, string) error {
	return ErrProviderUnavailable
}

func (p *DisabledProvider) SignOut(context.Context) error {
	return nil
}
