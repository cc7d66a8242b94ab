package identity

import (
	"encoding/json"
	"errors"
	"os"

	"snowboard-doctor/internal/utils"
)

// StoredSession is the provider session kept between runs. Chat messages are
// never written here.
type StoredSession struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    int64      `json:"expiresAt"`
	User         StoredUser `json:"user"`
}

type StoredUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) Path() string {
	return s.path
}

// Load returns nil when nothing has been stored.
func (s *SessionStore) Load() (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	if stored.AccessToken == "" {
		return nil, nil
	}
	return &stored, nil
}

func (s *SessionStore) Save(stored StoredSession) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.path, data, 0o600)
}

func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
