// Package auth manages the user session of the comment backend.
package auth

import (
	"encoding/json"
	"strings"

	"github.com/anistream/anistream/source"
)

// User is the account behind a session.
type User struct {
	ID        string `json:"userID"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarURL,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts the id under either "userID" or "id", as a string or a number.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		UserID source.Loose `json:"userID"`
		ID     source.Loose `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = User(raw.plain)
	u.ID = string(raw.UserID)
	if u.ID == "" {
		u.ID = string(raw.ID)
	}
	return nil
}

// Session is a logged-in user and its bearer token.
type Session struct {
	Token string `json:"-"`
	User  *User  `json:"user,omitempty"`
}

// Valid reports whether the session can authorize requests.
func (s Session) Valid() bool {
	return s.Token != ""
}

// Name returns the display name of the session user.
func (s Session) Name() string {
	if s.User == nil {
		return ""
	}
	if s.User.Username != "" {
		return s.User.Username
	}
	name, _, _ := strings.Cut(s.User.Email, "@")
	return name
}

// Store keeps the current session. Implementations are injected wherever a
// session is needed.
type Store interface {
	Read() (Session, error)
	Write(Session) error
	Clear() error
	Subscribe(func(Session)) (cancel func())
}

// Token returns a bearer token supplier reading from s.
func Token(s Store) func() string {
	return func() string {
		session, err := s.Read()
		if err != nil {
			return ""
		}
		return session.Token
	}
}
