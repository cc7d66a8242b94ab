// Package identity resolves who is chatting: a verified account from the
// hosted identity provider or a locally synthesized guest, plus the session
// token the conversational backend uses to correlate messages.
package identity

import "errors"

var (
	ErrNoSession           = errors.New("no active session")
	ErrInvalidTransition   = errors.New("invalid identity state transition")
	ErrBlankHandle         = errors.New("email is required")
	ErrProviderUnavailable = errors.New("identity provider is not configured")
)

type Kind int

const (
	KindVerified Kind = iota + 1
	KindGuest
)

func (k Kind) String() string {
	switch k {
	case KindVerified:
		return "verified"
	case KindGuest:
		return "guest"
	default:
		return "unknown"
	}
}

type Identity struct {
	Kind        Kind
	Email       string
	DisplayName string
}

// Name is what the UI shows for the visitor.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Token is the opaque session token sent with every message.
type Token string

func (t Token) String() string { return string(t) }

// Short returns the first 8 characters of the token for display.
func (t Token) Short() string {
	if len(t) >= 8 {
		return string(t[:8])
	}
	return string(t)
}

// Session is handed to the conversation channel once identity is resolved.
type Session struct {
	Identity Identity
	Token    Token
}
