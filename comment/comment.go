// Package comment is the client for the episode comment backend.
package comment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/network"
	"github.com/anistream/anistream/source"
	"github.com/spf13/viper"
)

// ListTimeout bounds the comment listing request.
const ListTimeout = 5 * time.Second

// ErrUnauthorized is returned when an operation requires a session.
var ErrUnauthorized = errors.New("login required")

// Comment is a comment on an episode. Replies are nested.
type Comment struct {
	ID         source.Loose `json:"id"`
	UserID     source.Loose `json:"userId"`
	EpisodeID  string       `json:"episodeId,omitempty"`
	Content    string       `json:"content"`
	CreatedAt  string       `json:"createdAt"`
	Username   string       `json:"username,omitempty"`
	UserAvatar string       `json:"userAvatar,omitempty"`
	Likes      int          `json:"likes"`
	Replies    []*Comment   `json:"replies,omitempty"`
}

// Author returns the display name of the commenter.
func (c *Comment) Author() string {
	if c.Username != "" {
		return c.Username
	}
	return "user " + string(c.UserID)
}

// Client talks to the comment endpoints of the backend.
type Client struct {
	base  string
	http  *http.Client
	token func() string
}

// New creates a client. token supplies the bearer token of the current
// session and may return an empty string when logged out.
func New(base string, hc *http.Client, token func() string) *Client {
	if hc == nil {
		hc = network.Client()
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		http:  hc,
		token: token,
	}
}

// NewDefault creates a client for the configured backend.
func NewDefault(token func() string) *Client {
	return New(viper.GetString(key.APIBackendURL), nil, token)
}

// List returns the comments of an episode.
func (c *Client) List(ctx context.Context, episodeID string) ([]*Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	var comments []*Comment
	err := c.do(ctx, http.MethodGet, "/api/comments/episode/"+episodeID, nil, false, &comments)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warnf("Request timed out when fetching comments for %s", episodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

type textBody struct {
	EpisodeID   string `json:"episodeId,omitempty"`
	CommentText string `json:"commentText"`
}

// Add posts a new comment on an episode.
func (c *Client) Add(ctx context.Context, episodeID, text string) (*Comment, error) {
	var created Comment
	if err := c.do(ctx, http.MethodPost, "/api/comments", textBody{EpisodeID: episodeID, CommentText: text}, true, &created); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &created, nil
}

// Reply posts a reply to a comment.
func (c *Client) Reply(ctx context.Context, parentID, text string) (*Comment, error) {
	var created Comment
	if err := c.do(ctx, http.MethodPost, "/api/comments/"+parentID+"/reply", textBody{CommentText: text}, true, &created); err != nil {
		return nil, fmt.Errorf("reply to %s: %w", parentID, err)
	}
	return &created, nil
}

// Like likes a comment.
func (c *Client) Like(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/comments/"+id+"/like", nil, true, nil); err != nil {
		return fmt.Errorf("like %s: %w", id, err)
	}
	return nil
}

// Unlike removes a like from a comment.
func (c *Client) Unlike(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/comments/"+id+"/unlike", nil, true, nil); err != nil {
		return fmt.Errorf("unlike %s: %w", id, err)
	}
	return nil
}

// Edit replaces the text of a comment.
func (c *Client) Edit(ctx context.Context, id, text string) error {
	if err := c.do(ctx, http.MethodPut, "/api/comments/"+id, textBody{CommentText: text}, true, nil); err != nil {
		return fmt.Errorf("edit %s: %w", id, err)
	}
	return nil
}

// Delete removes a comment.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/comments/"+id, nil, true, nil); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := c.token()
		if token == "" {
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error + payload.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
