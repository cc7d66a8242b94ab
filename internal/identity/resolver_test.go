package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	existing   *Identity
	checkErr   error
	startErr   error
	signOutErr error
	startCalls int
	signOuts   int
	redirects  []string
	startCtx   context.Context
	events     Broadcaster
}

func (f *fakeProvider) CheckExistingSession(context.Context) (*Identity, error) {
	return f.existing, f.checkErr
}

func (f *fakeProvider) Subscribe() *Subscription { return f.events.Subscribe() }

func (f *fakeProvider) StartFederatedSignIn(ctx context.Context, redirectTarget string) error {
	f.startCalls++
	f.startCtx = ctx
	f.redirects = append(f.redirects, redirectTarget)
	return f.startErr
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.signOuts++
	return f.signOutErr
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestResolver(p *fakeProvider) *Resolver {
	return NewResolver(ResolverOptions{
		Provider:       p,
		Signals:        func(context.Context) Signals { return testSignals },
		RedirectTarget: "http://127.0.0.1:54321/auth/callback",
		Now:            func() time.Time { return fixedNow },
	})
}

func TestResolveWithExistingVerifiedSession(t *testing.T) {
	p := &fakeProvider{existing: &Identity{Email: "rider@example.com", DisplayName: "Rider"}}
	r := newTestResolver(p)
	defer r.Close()

	assert.Equal(t, StateLoading, r.State())
	assert.Equal(t, StateAuthenticated, r.Resolve(context.Background()))

	sess, ok := r.Session()
	require.True(t, ok)
	assert.Equal(t, KindVerified, sess.Identity.Kind)
	assert.Equal(t, Token("rider@example.com"), sess.Token)
	assert.Equal(t, "Rider", sess.Identity.Name())
}

func TestResolveWithoutSession(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	defer r.Close()

	assert.Equal(t, StateUnauthenticated, r.Resolve(context.Background()))
	_, ok := r.Session()
	assert.False(t, ok)
}

func TestResolveProviderErrorIsSwallowed(t *testing.T) {
	r := newTestResolver(&fakeProvider{checkErr: errors.New("network down")})
	defer r.Close()

	assert.Equal(t, StateUnauthenticated, r.Resolve(context.Background()))
	assert.EqualError(t, r.LastError(), "network down")
}

func TestResolveOnlyLeavesLoadingOnce(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)
	defer r.Close()

	r.Resolve(context.Background())
	p.existing = &Identity{Email: "late@example.com"}
	assert.Equal(t, StateUnauthenticated, r.Resolve(context.Background()))
}

func TestGuestFlow(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())

	require.NoError(t, r.BeginGuestEntry())
	assert.Equal(t, StateGuestEntry, r.State())

	sess, err := r.SubmitGuest(context.Background(), "  guest@example.com ", "  ")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, r.State())
	assert.Equal(t, KindGuest, sess.Identity.Kind)
	assert.Equal(t, "guest@example.com", sess.Identity.Email)
	assert.Empty(t, sess.Identity.DisplayName)
	assert.Equal(t, GenerateSessionID(testSignals, fixedNow), sess.Token)
	assert.Zero(t, p.startCalls)
}

func TestGuestEntryValidation(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	defer r.Close()
	r.Resolve(context.Background())
	require.NoError(t, r.BeginGuestEntry())

	_, err := r.SubmitGuest(context.Background(), "   ", "Name")
	assert.ErrorIs(t, err, ErrBlankHandle)
	assert.Equal(t, StateGuestEntry, r.State())

	require.NoError(t, r.CancelGuestEntry())
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestSubmitGuestHandles(t *testing.T) {
	tests := []struct {
		name      string
		handle    string
		display   string
		wantEmail string
		wantName  string
	}{
		{name: "plain handle", handle: "  rider42 ", wantEmail: "rider42"},
		{name: "bare address", handle: "bob@example.com", display: "Bob", wantEmail: "bob@example.com", wantName: "Bob"},
		{name: "named address", handle: "Bob <bob@example.com>", wantEmail: "bob@example.com", wantName: "Bob"},
		{name: "entered name wins", handle: "Bob <bob@example.com>", display: "Robert", wantEmail: "bob@example.com", wantName: "Robert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(&fakeProvider{})
			defer r.Close()
			r.Resolve(context.Background())
			require.NoError(t, r.BeginGuestEntry())

			sess, err := r.SubmitGuest(context.Background(), tt.handle, tt.display)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, sess.Identity.Email)
			assert.Equal(t, tt.wantName, sess.Identity.DisplayName)
			assert.Equal(t, KindGuest, sess.Identity.Kind)
		})
	}
}

func TestSubmitGuestOutsideGuestEntry(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	defer r.Close()

	_, err := r.SubmitGuest(context.Background(), "a@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateLoading, r.State())
}

func TestFederatedSignInCompletesViaEvent(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())

	require.NoError(t, r.StartFederated(context.Background()))
	assert.Equal(t, StateAuthenticating, r.State())
	assert.Equal(t, []string{"http://127.0.0.1:54321/auth/callback"}, p.redirects)

	r.HandleEvent(AuthEvent{Kind: EventRedirect, URL: "https://auth.example.com/authorize"})
	assert.Equal(t, "https://auth.example.com/authorize", r.AuthorizeURL())

	state := r.HandleEvent(AuthEvent{Kind: EventSignedIn, Identity: &Identity{Email: "g@example.com"}})
	assert.Equal(t, StateAuthenticated, state)
	sess, _ := r.Session()
	assert.Equal(t, Token("g@example.com"), sess.Token)
	assert.Error(t, p.startCtx.Err(), "sign-in attempt is released once resolved")
}

func TestFederatedSignInStartErrorReturnsToUnauthenticated(t *testing.T) {
	p := &fakeProvider{startErr: ErrProviderUnavailable}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())

	err := r.StartFederated(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, StateUnauthenticated, r.State())
	assert.ErrorIs(t, r.LastError(), ErrProviderUnavailable)
}

func TestFederatedSignInFailureEvent(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	defer r.Close()
	r.Resolve(context.Background())
	require.NoError(t, r.StartFederated(context.Background()))

	state := r.HandleEvent(AuthEvent{Kind: EventSignInFailed, Err: errors.New("access_denied")})
	assert.Equal(t, StateUnauthenticated, state)
	assert.EqualError(t, r.LastError(), "access_denied")
}

func TestCancelFederated(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())
	require.NoError(t, r.StartFederated(context.Background()))

	require.NoError(t, r.CancelFederated())
	assert.Equal(t, StateUnauthenticated, r.State())
	assert.Error(t, p.startCtx.Err())
	assert.ErrorIs(t, r.CancelFederated(), ErrInvalidTransition)
}

func TestSignOutGuestMakesNoProviderCall(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())
	require.NoError(t, r.BeginGuestEntry())
	_, err := r.SubmitGuest(context.Background(), "guest@example.com", "Guest")
	require.NoError(t, err)

	require.NoError(t, r.SignOut(context.Background()))
	assert.Zero(t, p.signOuts)
	assert.Equal(t, StateUnauthenticated, r.State())
	_, ok := r.Session()
	assert.False(t, ok)
}

func TestSignOutVerifiedCallsProvider(t *testing.T) {
	p := &fakeProvider{existing: &Identity{Email: "v@example.com"}}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())

	require.NoError(t, r.SignOut(context.Background()))
	assert.Equal(t, 1, p.signOuts)
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestSignOutVerifiedFailureKeepsSession(t *testing.T) {
	p := &fakeProvider{existing: &Identity{Email: "v@example.com"}, signOutErr: errors.New("timeout")}
	r := newTestResolver(p)
	defer r.Close()
	r.Resolve(context.Background())

	assert.Error(t, r.SignOut(context.Background()))
	assert.Equal(t, StateAuthenticated, r.State())
	_, ok := r.Session()
	assert.True(t, ok)
}

func TestSignedOutEventOnlyAffectsVerified(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	defer r.Close()
	r.Resolve(context.Background())
	require.NoError(t, r.BeginGuestEntry())
	_, err := r.SubmitGuest(context.Background(), "guest@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, r.HandleEvent(AuthEvent{Kind: EventSignedOut}))
}

func TestEventsChannelClosesOnClose(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p)

	p.events.Publish(AuthEvent{Kind: EventSignedOut})
	ev := <-r.Events()
	assert.Equal(t, EventSignedOut, ev.Kind)

	r.Close()
	r.Close()
	_, open := <-r.Events()
	assert.False(t, open)
}
