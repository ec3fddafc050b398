package source

import "fmt"

// Episode is a single playable entry of an anime.
type Episode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// String returns the display name of the episode.
func (e *Episode) String() string {
	if e.Title != "" {
		return fmt.Sprintf("Episode %d: %s", e.Number, e.Title)
	}
	return fmt.Sprintf("Episode %d", e.Number)
}
