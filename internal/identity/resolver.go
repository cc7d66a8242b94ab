package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"snowboard-doctor/internal/utils"
)

type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticating
	StateGuestEntry
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateGuestEntry:
		return "guest_entry"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// SignalSource supplies fingerprint inputs when a guest token is minted.
type SignalSource func(ctx context.Context) Signals

type ResolverOptions struct {
	Provider       Provider
	Signals        SignalSource
	RedirectTarget string
	Logger         *utils.Logger
	Now            func() time.Time
}

// Resolver owns the visitor identity for one run of the client. Provider
// failures are logged and leave the current state in place.
type Resolver struct {
	provider       Provider
	signals        SignalSource
	redirectTarget string
	logger         *utils.Logger
	now            func() time.Time
	sub            *Subscription

	mu           sync.Mutex
	state        State
	session      *Session
	lastErr      error
	authorizeURL string
	cancelSignIn context.CancelFunc
}

func NewResolver(opts ResolverOptions) *Resolver {
	provider := opts.Provider
	if provider == nil {
		provider = &DisabledProvider{}
	}
	signals := opts.Signals
	if signals == nil {
		signals = func(context.Context) Signals { return Signals{} }
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		provider:       provider,
		signals:        signals,
		redirectTarget: opts.RedirectTarget,
		logger:         logger,
		now:            now,
		sub:            provider.Subscribe(),
		state:          StateLoading,
	}
}

// Events is the resolver's single auth-change subscription. Feed received
// events back through HandleEvent.
func (r *Resolver) Events() <-chan AuthEvent {
	return r.sub.Events()
}

// Close tears down the subscription and any sign-in still waiting for its
// redirect.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.cancelSignIn != nil {
		r.cancelSignIn()
		r.cancelSignIn = nil
	}
	r.mu.Unlock()
	r.sub.Unsubscribe()
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) Session() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

func (r *Resolver) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Resolver) AuthorizeURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authorizeURL
}

// Resolve performs the startup session check and leaves Loading.
func (r *Resolver) Resolve(ctx context.Context) State {
	if r.State() != StateLoading {
		return r.State()
	}
	ident, err := r.provider.CheckExistingSession(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLoading {
		return r.state
	}
	if err != nil {
		r.logger.Warnf("checking existing session: %v", err)
		r.lastErr = err
	}
	if err == nil && ident != nil {
		r.authenticateVerified(*ident)
		return r.state
	}
	r.state = StateUnauthenticated
	return r.state
}

// StartFederated hands off to the provider's redirect flow. Completion
// arrives later as an auth event.
func (r *Resolver) StartFederated(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateUnauthenticated {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: sign-in from %s", ErrInvalidTransition, state)
	}
	signInCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.state = StateAuthenticating
	r.cancelSignIn = cancel
	r.authorizeURL = ""
	r.lastErr = nil
	r.mu.Unlock()

	if err := r.provider.StartFederatedSignIn(signInCtx, r.redirectTarget); err != nil {
		cancel()
		r.logger.Errorf("starting federated sign-in: %v", err)
		r.mu.Lock()
		r.lastErr = err
		if r.state == StateAuthenticating {
			r.state = StateUnauthenticated
			r.cancelSignIn = nil
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Resolver) CancelFederated() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateAuthenticating {
		return fmt.Errorf("%w: cancel sign-in from %s", ErrInvalidTransition, r.state)
	}
	r.stopSignInLocked()
	r.state = StateUnauthenticated
	return nil
}

func (r *Resolver) BeginGuestEntry() error {
	return r.transition(StateUnauthenticated, StateGuestEntry)
}

func (r *Resolver) CancelGuestEntry() error {
	return r.transition(StateGuestEntry, StateUnauthenticated)
}

// SubmitGuest synthesizes a guest identity from the entered handle and mints
// a fresh session token from the environment.
func (r *Resolver) SubmitGuest(ctx context.Context, email, name string) (Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if state := r.State(); state != StateGuestEntry {
		return Session{}, fmt.Errorf("%w: guest sign-in from %s", ErrInvalidTransition, state)
	}
	if email == "" {
		return Session{}, ErrBlankHandle
	}
	email, name = normalizeHandle(email, name)

	token := GenerateSessionID(r.signals(ctx), r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateGuestEntry {
		return Session{}, fmt.Errorf("%w: guest sign-in from %s", ErrInvalidTransition, r.state)
	}
	r.session = &Session{
		Identity: Identity{Kind: KindGuest, Email: email, DisplayName: name},
		Token:    token,
	}
	r.state = StateAuthenticated
	r.lastErr = nil
	r.logger.Infof("guest session started for %s", email)
	return *r.session, nil
}

// normalizeHandle reduces "Name <addr>" to its bare address, taking the
// name from it when none was entered. Plain handles pass through.
func normalizeHandle(handle, name string) (string, string) {
	addr, err := mail.ParseAddress(handle)
	if err != nil || addr.Name == "" {
		return handle, name
	}
	if name == "" {
		name = addr.Name
	}
	return addr.Address, name
}

// SignOut ends the session. Guests are cleared locally; verified accounts
// are signed out at the provider first and stay signed in if that fails.
func (r *Resolver) SignOut(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateAuthenticated || r.session == nil {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: sign-out from %s", ErrInvalidTransition, state)
	}
	kind := r.session.Identity.Kind
	r.mu.Unlock()

	if kind == KindVerified {
		if err := r.provider.SignOut(ctx); err != nil {
			r.logger.Errorf("signing out: %v", err)
			r.mu.Lock()
			r.lastErr = err
			r.mu.Unlock()
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	r.state = StateUnauthenticated
	r.lastErr = nil
	return nil
}

// HandleEvent applies an auth-change notification and returns the new state.
func (r *Resolver) HandleEvent(ev AuthEvent) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case EventRedirect:
		if r.state == StateAuthenticating {
			r.authorizeURL = ev.URL
		}
	case EventSignedIn:
		if ev.Identity == nil {
			break
		}
		switch r.state {
		case StateLoading, StateUnauthenticated, StateAuthenticating:
			r.stopSignInLocked()
			r.authenticateVerified(*ev.Identity)
		}
	case EventSignInFailed:
		if r.state == StateAuthenticating {
			r.stopSignInLocked()
			r.lastErr = ev.Err
			r.state = StateUnauthenticated
			r.logger.Warnf("federated sign-in failed: %v", ev.Err)
		}
	case EventSignedOut:
		if r.state == StateAuthenticated && r.session != nil && r.session.Identity.Kind == KindVerified {
			r.session = nil
			r.state = StateUnauthenticated
		}
	}
	return r.state
}

func (r *Resolver) transition(from, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, r.state, to)
	}
	r.state = to
	return nil
}

// authenticateVerified keys the session by the account email so backend
// history stays associated across restarts.
func (r *Resolver) authenticateVerified(ident Identity) {
	ident.Kind = KindVerified
	r.session = &Session{Identity: ident, Token: Token(ident.Email)}
	r.state = StateAuthenticated
	r.lastErr = nil
	r.logger.Infof("verified session for %s", ident.Email)
}

func (r *Resolver) stopSignInLocked() {
	if r.cancelSignIn != nil {
		r.cancelSignIn()
		r.cancelSignIn = nil
	}
	r.authorizeURL = ""
}
