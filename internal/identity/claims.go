package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the subset of the provider's access token we read. The
// signature is checked by the provider, not here.
type accessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

func parseAccessToken(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// tokenExpiry prefers the token's exp claim and falls back to the stored
// expiry. The zero time means unknown.
func tokenExpiry(stored StoredSession) time.Time {
	if claims, err := parseAccessToken(stored.AccessToken); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if stored.ExpiresAt > 0 {
		return time.Unix(stored.ExpiresAt, 0)
	}
	return time.Time{}
}

func metadataName(meta map[string]any) string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := meta[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
