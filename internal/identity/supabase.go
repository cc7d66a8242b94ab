package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"snowboard-doctor/internal/transport"
	"snowboard-doctor/internal/utils"
)

const (
	signInTimeout = 5 * time.Minute
	expiryMargin  = 30 * time.Second
)

// APIError is a non-2xx answer from the auth API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase auth: status %d", e.Status)
	}
	return fmt.Sprintf("supabase auth: status %d: %s", e.Status, e.Message)
}

// rejected reports whether the API refused the credentials themselves, as
// opposed to failing to answer.
func rejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

type SupabaseOptions struct {
	URL           string
	AnonKey       string
	OAuthProvider string
	Store         *SessionStore
	Client        *http.Client
	OpenBrowser   func(string) error
	Logger        *utils.Logger
	Now           func() time.Time
}

// SupabaseProvider talks to Supabase Auth (GoTrue) using the PKCE flow with
// a loopback redirect.
type SupabaseProvider struct {
	baseURL       string
	anonKey       string
	oauthProvider string
	store         *SessionStore
	client        *http.Client
	openBrowser   func(string) error
	logger        *utils.Logger
	now           func() time.Time
	events        Broadcaster
}

func NewSupabaseProvider(opts SupabaseOptions) *SupabaseProvider {
	p := &SupabaseProvider{
		baseURL:       strings.TrimRight(opts.URL, "/"),
		anonKey:       opts.AnonKey,
		oauthProvider: opts.OAuthProvider,
		store:         opts.Store,
		client:        opts.Client,
		openBrowser:   opts.OpenBrowser,
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if p.oauthProvider == "" {
		p.oauthProvider = "google"
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.logger == nil {
		p.logger = utils.NewNopLogger()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *SupabaseProvider) Subscribe() *Subscription {
	return p.events.Subscribe()
}

func (p *SupabaseProvider) CheckExistingSession(ctx context.Context) (*Identity, error) {
	stored, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading stored session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	if exp := tokenExpiry(*stored); !exp.IsZero() && !p.now().Add(expiryMargin).Before(exp) {
		p.logger.Debugf("access token expired at %s, refreshing", exp.Format(time.RFC3339))
		refreshed, err := p.refresh(ctx, stored.RefreshToken)
		if err != nil {
			if rejected(err) {
				return nil, p.dropSession(err)
			}
			return nil, fmt.Errorf("refreshing session: %w", err)
		}
		stored = refreshed
	}

	var user userResponse
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", nil, stored.AccessToken, nil, &user); err != nil {
		if rejected(err) {
			return nil, p.dropSession(err)
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	ident := verifiedIdentity(user, *stored)
	return &ident, nil
}

// verifiedIdentity fills what the user endpoint left out from the stored
// session and then from the access token claims.
func verifiedIdentity(user userResponse, stored StoredSession) Identity {
	ident := user.identity()
	if ident.Email == "" {
		ident.Email = stored.User.Email
	}
	if ident.DisplayName == "" {
		ident.DisplayName = stored.User.Name
	}
	if ident.Email == "" {
		if claims, err := parseAccessToken(stored.AccessToken); err == nil {
			ident.Email = claims.Email
		}
	}
	return ident
}

func (p *SupabaseProvider) dropSession(cause error) error {
	p.logger.Infof("stored session rejected, clearing: %v", cause)
	return p.store.Clear()
}

// StartFederatedSignIn binds the loopback callback, announces the authorize
// URL to subscribers, opens the browser and waits for the redirect in the
// background.
func (p *SupabaseProvider) StartFederatedSignIn(ctx context.Context, redirectTarget string) error {
	target, err := url.Parse(redirectTarget)
	if err != nil {
		return fmt.Errorf("parse redirect target: %w", err)
	}
	server := transport.NewCallbackServer(target.Host, target.Path, p.logger)
	if err := server.Listen(); err != nil {
		return err
	}

	verifier := oauth2.GenerateVerifier()
	authURL := p.authorizeURL(server.URL(), oauth2.S256ChallengeFromVerifier(verifier))

	waitCtx, cancel := context.WithTimeout(ctx, signInTimeout)
	go func() {
		if err := server.Serve(waitCtx); err != nil {
			p.logger.Errorf("auth callback server: %v", err)
		}
	}()
	go func() {
		defer cancel()
		p.awaitCallback(waitCtx, server.Results(), verifier)
	}()

	p.events.Publish(AuthEvent{Kind: EventRedirect, URL: authURL})
	if p.openBrowser != nil {
		if err := p.openBrowser(authURL); err != nil {
			p.logger.Warnf("could not open browser, visit %s: %v", authURL, err)
		}
	}
	return nil
}

func (p *SupabaseProvider) awaitCallback(ctx context.Context, results <-chan transport.CallbackResult, verifier string) {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.events.Publish(AuthEvent{Kind: EventSignInFailed, Err: fmt.Errorf("timed out waiting for sign-in")})
		}
	case res := <-results:
		if err := res.Err(); err != nil {
			p.events.Publish(AuthEvent{Kind: EventSignInFailed, Err: err})
			return
		}
		ident, err := p.exchange(ctx, res.Code, verifier)
		if err != nil {
			p.events.Publish(AuthEvent{Kind: EventSignInFailed, Err: err})
			return
		}
		p.events.Publish(AuthEvent{Kind: EventSignedIn, Identity: ident})
	}
}

func (p *SupabaseProvider) authorizeURL(redirect, challenge string) string {
	q := url.Values{}
	q.Set("provider", p.oauthProvider)
	q.Set("redirect_to", redirect)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")
	return p.baseURL + "/auth/v1/authorize?" + q.Encode()
}

func (p *SupabaseProvider) exchange(ctx context.Context, code, verifier string) (*Identity, error) {
	var resp tokenResponse
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	query := url.Values{"grant_type": {"pkce"}}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &resp); err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	stored := resp.stored(p.now())
	if err := p.store.Save(stored); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	ident := verifiedIdentity(resp.User, stored)
	return &ident, nil
}

func (p *SupabaseProvider) refresh(ctx context.Context, refreshToken string) (*StoredSession, error) {
	if refreshToken == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "no refresh token"}
	}
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	query := url.Values{"grant_type": {"refresh_token"}}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &resp); err != nil {
		return nil, err
	}
	stored := resp.stored(p.now())
	if err := p.store.Save(stored); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return &stored, nil
}

// SignOut revokes the stored session. A session the API no longer knows is
// treated as already signed out.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	stored, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("loading stored session: %w", err)
	}
	if stored != nil {
		err := p.do(ctx, http.MethodPost, "/auth/v1/logout", nil, stored.AccessToken, nil, nil)
		if err != nil && !rejected(err) {
			return fmt.Errorf("signing out: %w", err)
		}
	}
	if err := p.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	p.events.Publish(AuthEvent{Kind: EventSignedOut})
	return nil
}

func (p *SupabaseProvider) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, s := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userResponse) identity() Identity {
	return Identity{Kind: KindVerified, Email: u.Email, DisplayName: metadataName(u.UserMetadata)}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

func (t tokenResponse) stored(now time.Time) StoredSession {
	expiresAt := t.ExpiresAt
	if expiresAt == 0 && t.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
	}
	user := StoredUser{ID: t.User.ID, Email: t.User.Email, Name: metadataName(t.User.UserMetadata)}
	if user.Email == "" {
		if claims, err := parseAccessToken(t.AccessToken); err == nil {
			user.Email = claims.Email
			user.ID = claims.Subject
			if user.Name == "" {
				user.Name = metadataName(claims.UserMetadata)
			}
		}
	}
	return StoredSession{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}
}
