// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Upstream API endpoints - these keys locate the metadata resolver and the community backend.
const (
	APIBaseURL    = "api.base_url"
	APIBackendURL = "api.backend_url"
	APIRateLimit  = "api.rate_limit"
	APICache      = "api.cache"
)

// Network transport - these keys tune the shared upstream HTTP client.
const (
	NetworkTLSFingerprint = "network.tls_fingerprint"
)

// Media playback - these keys configure the media element and the stream binder.
const (
	PlayerNativeAdaptive       = "player.native_adaptive"
	PlayerMaxRetries           = "player.max_retries"
	PlayerDefaultLanguage      = "player.default_language"
	PlayerCompletionPercentage = "player.completion_percentage"
)

// Adaptive stream proxy - these keys govern the loopback HLS pipeline.
const (
	HLSPrefetchSegments = "hls.prefetch_segments"
	HLSWorkers          = "hls.workers"
)

// HTTP service - these keys configure the "serve" command.
const (
	ServerAddr      = "server.addr"
	ServerImageRate = "server.image_rate"
)

// History tracking - these keys configure the persistence of media consumption state.
const (
	HistorySaveOnWatch = "history.save_on_watch"
)

// Search interaction - these keys define the parameters for search discovery.
const (
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// Minimal prompt interface - these keys tune the "--mini" mode.
const (
	MiniSearchLimit = "mini.search_limit"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI execution environment - these settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
