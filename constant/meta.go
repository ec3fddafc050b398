// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Anistream is the canonical application identifier used for filesystem paths and CLI branding.
	Anistream = "anistream"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// Repository is the project's GitHub path, used for release checks.
	Repository = "anistream/anistream"

	// UserAgent is the default HTTP User-Agent string used for requests to upstream media hosts.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// ImageReferer is the origin image hosts expect when poster and cover art are proxied.
	ImageReferer = "https://animepahe.ru/"
)

// Build metadata, set with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
