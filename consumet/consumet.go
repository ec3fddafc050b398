// Package consumet is the metadata client for a Consumet animepahe provider.
package consumet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/anistream/anistream/internal/cache"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/network"
	"github.com/anistream/anistream/query"
	"github.com/anistream/anistream/source"
	"github.com/spf13/viper"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// HTTPClient defaults to network.Client().
	HTTPClient *http.Client
	// RateLimit is the number of requests per second; zero disables limiting.
	RateLimit int
	// Cache enables the on-disk cache for search and info responses.
	Cache bool
}

// DefaultOptions reads the api.* configuration.
func DefaultOptions() Options {
	return Options{
		BaseURL:   viper.GetString(key.APIBaseURL),
		RateLimit: viper.GetInt(key.APIRateLimit),
		Cache:     viper.GetBool(key.APICache),
	}
}

// Client implements source.Resolver against the Consumet REST API.
type Client struct {
	base   string
	http   *http.Client
	cached bool

	searches *cache.Cache[*source.Page]
	infos    *cache.Cache[*source.Anime]
}

var _ source.Resolver = (*Client)(nil)

// New creates a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = network.Client()
	}

	limited := *hc
	limited.Transport = network.NewRateLimitTransport(hc.Transport, opts.RateLimit)

	return &Client{
		base:     strings.TrimSuffix(opts.BaseURL, "/"),
		http:     &limited,
		cached:   opts.Cache,
		searches: cache.New[*source.Page]("search", cache.TTL),
		infos:    cache.New[*source.Anime]("info", cache.TTL),
	}
}

// Search executes a title query and returns one page of results.
func (c *Client) Search(ctx context.Context, q string, page int) (*source.Page, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &source.Page{CurrentPage: 1}, nil
	}
	page = max(page, 1)

	if err := query.Remember(q, 1); err != nil {
		log.Warnf("remember query: %v", err)
	}

	cacheKey := cache.Key(q, strconv.Itoa(page))
	if c.cached {
		if cached, ok := c.searches.Get(cacheKey).Get(); ok {
			return cached, nil
		}
	}

	log.Infof("Searching for %q, page %d", q, page)
	var result source.Page
	if err := c.get(ctx, fmt.Sprintf("%s/%s?page=%d", c.base, url.PathEscape(q), page), &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	log.Infof("Found %d results for %q", len(result.Results), q)

	if c.cached {
		if err := c.searches.Set(cacheKey, &result); err != nil {
			log.Warnf("cache search: %v", err)
		}
	}
	return &result, nil
}

// Info fetches the full anime record including its episodes.
func (c *Client) Info(ctx context.Context, id string) (*source.Anime, error) {
	if id == "" {
		return nil, fmt.Errorf("anime id is required")
	}

	cacheKey := cache.Key(id)
	if c.cached {
		if cached, ok := c.infos.Get(cacheKey).Get(); ok {
			return cached, nil
		}
	}

	log.Infof("Fetching info for %s", id)
	var anime source.Anime
	if err := c.get(ctx, fmt.Sprintf("%s/info/%s", c.base, url.PathEscape(id)), &anime); err != nil {
		return nil, fmt.Errorf("info %s: %w", id, err)
	}
	if anime.ID == "" {
		anime.ID = id
	}

	if c.cached {
		if err := c.infos.Set(cacheKey, &anime); err != nil {
			log.Warnf("cache info: %v", err)
		}
	}
	return &anime, nil
}

// Watch resolves the stream variants of an episode. Results are never
// cached since the links expire.
func (c *Client) Watch(ctx context.Context, episodeID string) (*source.EpisodeSources, error) {
	if episodeID == "" {
		return nil, fmt.Errorf("episode id is required")
	}

	log.Infof("Resolving sources for %s", episodeID)
	var sources source.EpisodeSources
	endpoint := fmt.Sprintf("%s/watch?episodeId=%s", c.base, url.QueryEscape(episodeID))
	if err := c.get(ctx, endpoint, &sources); err != nil {
		return nil, fmt.Errorf("watch %s: %w", episodeID, err)
	}

	sources.Variants = source.NewCatalog(sources.Variants).Variants()
	log.Infof("Resolved %d variants for %s", len(sources.Variants), episodeID)
	return &sources, nil
}

// Recent lists anime with recently released episodes.
func (c *Client) Recent(ctx context.Context, page int) (*source.Page, error) {
	var result source.Page
	if err := c.get(ctx, fmt.Sprintf("%s/recent-episodes?page=%d", c.base, max(page, 1)), &result); err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	return &result, nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid response code %d", e.Code)
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("Metadata API returned status code %d for %s", resp.StatusCode, req.URL.Path)
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
