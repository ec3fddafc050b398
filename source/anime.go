package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Anime is a catalog entry as returned by search and info lookups.
type Anime struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Image         string     `json:"image"`
	ReleaseDate   Loose      `json:"releaseDate,omitempty"`
	Type          string     `json:"type,omitempty"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status,omitempty"`
	TotalEpisodes int        `json:"totalEpisodes,omitempty"`
	Genres        []string   `json:"genres,omitempty"`
	Episodes      []*Episode `json:"episodes,omitempty"`
	Rating        float64    `json:"rating,omitempty"`
}

// Page is one page of search or listing results.
type Page struct {
	CurrentPage int      `json:"currentPage"`
	HasNextPage bool     `json:"hasNextPage"`
	Results     []*Anime `json:"results"`
}

func (a *Anime) String() string {
	return a.Title
}

// Episode finds an episode by its id.
func (a *Anime) Episode(id string) mo.Option[*Episode] {
	ep, ok := lo.Find(a.Episodes, func(e *Episode) bool {
		return e.ID == id
	})
	if !ok {
		return mo.None[*Episode]()
	}
	return mo.Some(ep)
}

// HasImage reports whether the image field holds a usable URL.
func (a *Anime) HasImage() bool {
	img := strings.TrimSpace(a.Image)
	return img != "" && img != "undefined" && img != "null"
}

// ProxiedImage returns the image routed through the image proxy at base.
// Relative images and missing images are returned unchanged.
func (a *Anime) ProxiedImage(base string) string {
	if !a.HasImage() || !strings.HasPrefix(a.Image, "http") {
		return a.Image
	}
	return fmt.Sprintf("%s/api/proxy-image?url=%s", strings.TrimSuffix(base, "/"), url.QueryEscape(a.Image))
}

// Loose is a JSON scalar that upstream sends either as a string or a number.
type Loose string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Loose) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Loose(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("loose scalar: %w", err)
	}
	*l = Loose(n.String())
	return nil
}
