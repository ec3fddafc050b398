// Package watchlist keeps the anime a user wants to come back to.
package watchlist

import (
	"maps"
	"slices"
	"time"

	"github.com/anistream/anistream/internal/store"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/where"
	"github.com/samber/lo"
)

// Item is a saved anime.
type Item struct {
	AnimeID string    `json:"anime_id"`
	Title   string    `json:"title"`
	Image   string    `json:"image,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Items maps anime ids to items.
type Items = map[string]*Item

// Watchlist is the saved list over an injected store.
type Watchlist struct {
	store store.Store[Items]
	now   func() time.Time
}

// New creates a watchlist over s.
func New(s store.Store[Items]) *Watchlist {
	return &Watchlist{store: s, now: time.Now}
}

// Open returns the watchlist persisted in the user's data directory.
func Open() *Watchlist {
	return New(store.NewGache(where.Watchlist(), func() Items {
		return make(Items)
	}))
}

// Add saves an anime. Adding a saved anime keeps its original date.
func (w *Watchlist) Add(anime *source.Anime) error {
	return w.store.Update(func(items Items) (Items, error) {
		if _, ok := items[anime.ID]; ok {
			return items, nil
		}

		items = maps.Clone(items)
		if items == nil {
			items = make(Items)
		}
		items[anime.ID] = &Item{
			AnimeID: anime.ID,
			Title:   anime.Title,
			Image:   anime.Image,
			AddedAt: w.now(),
		}
		return items, nil
	})
}

// Remove deletes an anime from the list.
func (w *Watchlist) Remove(animeID string) error {
	return w.store.Update(func(items Items) (Items, error) {
		items = maps.Clone(items)
		delete(items, animeID)
		return items, nil
	})
}

// Has reports whether an anime is saved.
func (w *Watchlist) Has(animeID string) bool {
	items, err := w.store.Get()
	if err != nil {
		return false
	}
	_, ok := items[animeID]
	return ok
}

// Toggle adds or removes an anime and reports whether it is now saved.
func (w *Watchlist) Toggle(anime *source.Anime) (bool, error) {
	if w.Has(anime.ID) {
		return false, w.Remove(anime.ID)
	}
	return true, w.Add(anime)
}

// List returns the saved anime, most recently added first.
func (w *Watchlist) List() ([]*Item, error) {
	items, err := w.store.Get()
	if err != nil {
		return nil, err
	}

	list := lo.Values(items)
	slices.SortStableFunc(list, func(a, b *Item) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
	return list, nil
}

// Subscribe calls fn with the list after every change.
func (w *Watchlist) Subscribe(fn func([]*Item)) (cancel func()) {
	return w.store.Subscribe(func(Items) {
		if list, err := w.List(); err == nil {
			fn(list)
		}
	})
}
