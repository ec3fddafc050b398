// Package source defines the catalog entities and stream variants exchanged with the metadata API.
package source

import "context"

// Resolver is the metadata API the application browses and resolves episodes through.
type Resolver interface {
	// Search executes a query and returns one page of matching anime.
	Search(ctx context.Context, query string, page int) (*Page, error)

	// Info retrieves the full record of an anime, including its episode list.
	Info(ctx context.Context, id string) (*Anime, error)

	// Watch resolves the playable variants of an episode.
	Watch(ctx context.Context, episodeID string) (*EpisodeSources, error)
}
