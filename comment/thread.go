package comment

import (
	"context"
	"fmt"
	"sync"

	"github.com/anistream/anistream/log"
	"github.com/samber/lo"
)

// Liker sends like state changes to the backend.
type Liker interface {
	Like(ctx context.Context, id string) error
	Unlike(ctx context.Context, id string) error
}

// Pending is a like change applied locally but not yet confirmed.
type Pending struct {
	ID    string
	Liked bool
	prev  bool
	delta int
}

// Thread is the local view of an episode's comments. Likes are applied
// optimistically in two phases: Tentative changes the view at once and
// Reconcile keeps or reverts it once the backend answered.
type Thread struct {
	mu       sync.Mutex
	liker    Liker
	comments []*Comment
	liked    map[string]bool
}

// NewThread creates a thread over comments.
func NewThread(liker Liker, comments []*Comment) *Thread {
	return &Thread{
		liker:    liker,
		comments: comments,
		liked:    make(map[string]bool),
	}
}

// Comments returns the top level comments, newest first as delivered.
func (t *Thread) Comments() []*Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Comment(nil), t.comments...)
}

// Liked reports whether the current user likes the comment.
func (t *Thread) Liked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liked[id]
}

// Find looks a comment up by id, replies included.
func (t *Thread) Find(id string) (*Comment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return find(t.comments, id)
}

func find(comments []*Comment, id string) (*Comment, bool) {
	for _, c := range comments {
		if string(c.ID) == id {
			return c, true
		}
		if r, ok := find(c.Replies, id); ok {
			return r, true
		}
	}
	return nil, false
}

// Add inserts a freshly posted comment at the top.
func (t *Thread) Add(c *Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = append([]*Comment{c}, t.comments...)
}

// AddReply appends a reply under its parent.
func (t *Thread) AddReply(parentID string, reply *Comment) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := find(t.comments, parentID)
	if !ok {
		return fmt.Errorf("comment %s not found", parentID)
	}
	parent.Replies = append(parent.Replies, reply)
	return nil
}

// Remove drops a top level comment or a reply.
func (t *Thread) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = remove(t.comments, id)
}

func remove(comments []*Comment, id string) []*Comment {
	comments = lo.Reject(comments, func(c *Comment, _ int) bool {
		return string(c.ID) == id
	})
	for _, c := range comments {
		c.Replies = remove(c.Replies, id)
	}
	return comments
}

// Tentative applies a like change to the local view.
func (t *Thread) Tentative(id string, liked bool) (Pending, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := find(t.comments, id)
	if !ok {
		return Pending{}, fmt.Errorf("comment %s not found", id)
	}

	p := Pending{ID: id, Liked: liked, prev: t.liked[id]}
	if p.prev != liked {
		p.delta = 1
		if !liked {
			p.delta = -1
		}
	}

	t.liked[id] = liked
	c.Likes = max(c.Likes+p.delta, 0)
	return p, nil
}

// Reconcile keeps a pending change when err is nil and reverts it otherwise.
// The backend error is returned unchanged.
func (t *Thread) Reconcile(p Pending, err error) error {
	if err == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	log.Warnf("reverting like on %s: %v", p.ID, err)
	t.liked[p.ID] = p.prev
	if c, ok := find(t.comments, p.ID); ok {
		c.Likes = max(c.Likes-p.delta, 0)
	}
	return err
}

// SetLike likes or unlikes a comment locally and confirms it with the
// backend, reverting the local change when the backend refuses.
func (t *Thread) SetLike(ctx context.Context, id string, liked bool) error {
	p, err := t.Tentative(id, liked)
	if err != nil {
		return err
	}

	if p.Liked {
		err = t.liker.Like(ctx, id)
	} else {
		err = t.liker.Unlike(ctx, id)
	}
	return t.Reconcile(p, err)
}
