// Package history tracks playback progress per episode.
package history

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/anistream/anistream/internal/store"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Entries maps an encoded (anime, episode) pair to its entry.
type Entries = map[string]*Entry

// History is the progress log over an injected store.
type History struct {
	store store.Store[Entries]
	now   func() time.Time
}

// New creates a history over s.
func New(s store.Store[Entries]) *History {
	return &History{store: s, now: time.Now}
}

// Open returns the history persisted in the user's data directory.
func Open() *History {
	return New(store.NewGache(where.History(), func() Entries {
		return make(Entries)
	}))
}

// Save records progress for an episode. The stored percentage never goes
// down, so re-watching the beginning keeps the episode marked as seen.
func (h *History) Save(entry Entry) error {
	if entry.AnimeID == "" || entry.EpisodeID == "" {
		return errors.New("history entry needs an anime and an episode id")
	}

	entry.UpdatedAt = h.now()
	return h.store.Update(func(saved Entries) (Entries, error) {
		saved = maps.Clone(saved)
		if saved == nil {
			saved = make(Entries)
		}

		if existing, ok := saved[entry.encode()]; ok {
			entry.WatchedPercentage = max(entry.WatchedPercentage, existing.WatchedPercentage)
		}
		saved[entry.encode()] = &entry
		return saved, nil
	})
}

// Get returns the entry of one episode.
func (h *History) Get(animeID, episodeID string) mo.Option[*Entry] {
	saved, err := h.store.Get()
	if err != nil {
		return mo.None[*Entry]()
	}

	lookup := Entry{AnimeID: animeID, EpisodeID: episodeID}
	if e, ok := saved[lookup.encode()]; ok {
		return mo.Some(e)
	}
	return mo.None[*Entry]()
}

// List returns every entry, most recently updated first.
func (h *History) List() ([]*Entry, error) {
	saved, err := h.store.Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return entries, nil
}

// Last returns the most recently watched episode of an anime.
func (h *History) Last(animeID string) mo.Option[*Entry] {
	entries, err := h.List()
	if err != nil {
		return mo.None[*Entry]()
	}

	e, ok := lo.Find(entries, func(e *Entry) bool {
		return e.AnimeID == animeID
	})
	if !ok {
		return mo.None[*Entry]()
	}
	return mo.Some(e)
}

// Remove deletes the entry of one episode.
func (h *History) Remove(animeID, episodeID string) error {
	lookup := Entry{AnimeID: animeID, EpisodeID: episodeID}
	return h.store.Update(func(saved Entries) (Entries, error) {
		saved = maps.Clone(saved)
		delete(saved, lookup.encode())
		return saved, nil
	})
}

// Clear deletes every entry.
func (h *History) Clear() error {
	return h.store.Set(make(Entries))
}

// Subscribe calls fn with the full entry list after every change.
func (h *History) Subscribe(fn func([]*Entry)) (cancel func()) {
	return h.store.Subscribe(func(Entries) {
		if entries, err := h.List(); err == nil {
			fn(entries)
		}
	})
}

// Recorder returns a progress callback for one episode that saves at most
// once per interval and skips reports without a known duration.
func (h *History) Recorder(anime *source.Anime, episode *source.Episode, interval time.Duration) func(position, duration float64) {
	var last time.Time
	return func(position, duration float64) {
		now := h.now()
		if duration <= 0 || (!last.IsZero() && now.Sub(last) < interval) {
			return
		}
		last = now

		err := h.Save(Entry{
			AnimeID:           anime.ID,
			AnimeTitle:        anime.Title,
			EpisodeID:         episode.ID,
			EpisodeNumber:     episode.Number,
			Image:             anime.Image,
			Position:          position,
			Duration:          duration,
			WatchedPercentage: Percentage(position, duration),
		})
		if err != nil {
			log.Warnf("history: %v", err)
		}
	}
}
