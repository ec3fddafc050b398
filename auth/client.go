package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/network"
	"github.com/anistream/anistream/source"
	"github.com/spf13/viper"
)

// ErrInvalidCredentials is returned when the backend rejects a login.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Client performs login and registration against the backend.
type Client struct {
	base  string
	http  *http.Client
	store Store
}

// NewClient creates a client that writes successful sessions to store.
func NewClient(base string, hc *http.Client, store Store) *Client {
	if hc == nil {
		hc = network.Client()
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		http:  hc,
		store: store,
	}
}

// NewDefaultClient creates a client for the configured backend.
func NewDefaultClient(store Store) *Client {
	return NewClient(viper.GetString(key.APIBackendURL), nil, store)
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// Login authenticates with email and password and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp authResponse
	err := c.post(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return Session{}, errors.New("login: response carries no token")
	}

	session := Session{Token: resp.Token, User: resp.User}
	if session.User == nil {
		session.User = userFromToken(resp.Token, email)
	}

	log.Infof("Logged in as %s", session.Name())
	return session, c.store.Write(session)
}

// Register creates an account. When the backend does not hand out a token
// on registration the new account is logged in right away.
func (c *Client) Register(ctx context.Context, username, email, password string) (Session, error) {
	var resp authResponse
	err := c.post(ctx, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	if resp.Token == "" {
		return c.Login(ctx, email, password)
	}

	session := Session{Token: resp.Token, User: resp.User}
	if session.User == nil {
		session.User = userFromToken(resp.Token, email)
	}
	if session.User.Username == "" {
		session.User.Username = username
	}
	return session, c.store.Write(session)
}

// Logout forgets the stored session.
func (c *Client) Logout() error {
	return c.store.Clear()
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &payload)
		if msg := payload.Error + payload.Message; msg != "" {
			return fmt.Errorf("backend returned %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	return json.Unmarshal(raw, out)
}

// userFromToken builds a minimal profile from the JWT payload for backends
// that answer a login with a bare token.
func userFromToken(token, email string) *User {
	name, _, _ := strings.Cut(email, "@")
	user := &User{Username: name, Email: email}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return user
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		log.Debugf("jwt payload: %v", err)
		return user
	}

	var claims struct {
		UserID source.Loose `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		log.Debugf("jwt claims: %v", err)
		return user
	}

	user.ID = string(claims.UserID)
	return user
}
