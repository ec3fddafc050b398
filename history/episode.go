package history

import (
	"fmt"
	"time"
)

// Entry is the saved playback progress of one episode.
type Entry struct {
	AnimeID           string    `json:"anime_id"`
	AnimeTitle        string    `json:"anime_title"`
	EpisodeID         string    `json:"episode_id"`
	EpisodeNumber     int       `json:"episode_number"`
	Image             string    `json:"image,omitempty"`
	Position          float64   `json:"position"`
	Duration          float64   `json:"duration"`
	WatchedPercentage float64   `json:"watched_percentage"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (e *Entry) encode() string {
	return e.AnimeID + "\x00" + e.EpisodeID
}

// Completed reports whether the watched percentage reached threshold.
func (e *Entry) Completed(threshold float64) bool {
	return e.WatchedPercentage >= threshold
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s : episode %d (%.0f%%)", e.AnimeTitle, e.EpisodeNumber, e.WatchedPercentage)
}

// Percentage converts a position within duration to a percentage in [0, 100].
func Percentage(position, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return min(max(position/duration*100, 0), 100)
}
