// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Anistream + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.APIBaseURL, "http://localhost:3000/anime/animepahe", "Base URL of the Consumet animepahe provider")
	register(key.APIBackendURL, "http://localhost:3001", "Base URL of the comments and authentication backend")
	register(key.APIRateLimit, 5, "Maximum requests per second sent to the metadata API")
	register(key.APICache, true, "Cache search and info responses on disk")
	register(key.NetworkTLSFingerprint, true, "Use a browser TLS fingerprint for HTTPS requests to upstream hosts")
	register(key.PlayerNativeAdaptive, false, "Let the media player open HLS manifests directly.\nWhen disabled, HLS goes through the local header-injecting proxy")
	register(key.PlayerMaxRetries, 3, "Recovery attempts after a network or decode fault before playback fails")
	register(key.PlayerDefaultLanguage, "sub", "Language track selected when the player opens.\nAvailable options are: sub, dub")
	register(key.PlayerCompletionPercentage, 80, "Percentage required to mark an episode as watched (1-100)")
	register(key.HLSPrefetchSegments, 3, "Number of segments warmed up after a manifest is parsed")
	register(key.HLSWorkers, 4, "Size of the segment warm-up worker pool")
	register(key.ServerAddr, "127.0.0.1:3000", "Listen address of the HTTP service")
	register(key.ServerImageRate, 20, "Maximum image proxy upstream requests per second")
	register(key.HistorySaveOnWatch, true, "Save history while watching")
	register(key.SearchShowQuerySuggestions, true, "Show query suggestions when searching")
	register(key.MiniSearchLimit, 20, "Maximum search results listed in mini mode")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
