// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "ANISTREAM_CONFIG_PATH"

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path can be explicitly overridden via the ANISTREAM_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Anistream))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Anistream))
}

// Logs resolves the absolute path to the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the path to the watch history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Watchlist resolves the path to the watchlist file.
func Watchlist() string {
	return filepath.Join(Config(), "watchlist.json")
}

// User resolves the path to the signed-in user profile. The token itself lives in the system keyring.
func User() string {
	return filepath.Join(Config(), "user.json")
}

// Queries resolves the path to the search query suggestion registry.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Responses resolves the directory holding cached metadata API responses.
func Responses() string {
	return ensureDir(filepath.Join(Cache(), "responses"))
}

// Temp resolves a volatile filesystem path for transient application artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Anistream))
}
