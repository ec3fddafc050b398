package source

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Language is the audio track of a variant.
type Language string

const (
	Sub Language = "sub"
	Dub Language = "dub"
)

// ParseLanguage maps a user supplied track name to a Language.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case Sub, "":
		return Sub, nil
	case Dub:
		return Dub, nil
	default:
		return "", fmt.Errorf("unknown language track %q, expected sub or dub", s)
	}
}

// Toggle returns the other track.
func (l Language) Toggle() Language {
	if l == Dub {
		return Sub
	}
	return Dub
}

func (l Language) String() string {
	if l == "" {
		return string(Sub)
	}
	return string(l)
}

// Variant is one playable rendition of an episode.
type Variant struct {
	URL string `json:"url" jsonschema:"required"`
	// Adaptive marks a manifest-based stream that needs a demuxing pipeline.
	Adaptive bool `json:"isM3U8"`
	// Quality is the free-form label, e.g. "SD · 480p BD".
	Quality  string   `json:"quality"`
	Language Language `json:"-"`
}

type variantJSON struct {
	URL      string `json:"url"`
	Adaptive bool   `json:"isM3U8"`
	Quality  string `json:"quality"`
	IsDub    bool   `json:"isDub,omitempty"`
}

// MarshalJSON encodes the variant in the resolver wire shape.
func (v *Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(variantJSON{
		URL:      v.URL,
		Adaptive: v.Adaptive,
		Quality:  v.Quality,
		IsDub:    v.Language == Dub,
	})
}

// UnmarshalJSON decodes the resolver wire shape. A missing isDub means sub.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var raw variantJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	v.URL = raw.URL
	v.Adaptive = raw.Adaptive
	v.Quality = raw.Quality
	v.Language = Sub
	if raw.IsDub {
		v.Language = Dub
	}
	return nil
}

// JSONSchemaExtend documents the isDub field written by MarshalJSON.
func (Variant) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Properties.Set("isDub", &jsonschema.Schema{
		Type:        "boolean",
		Description: "set for the dubbed audio track",
	})
}

// Tier returns the normalized quality tier of the variant.
func (v *Variant) Tier() string {
	return NormalizeQuality(v.Quality)
}

func (v *Variant) String() string {
	return fmt.Sprintf("%s %s", v.Tier(), v.Language)
}

// EpisodeSources is the resolved stream set of an episode. Headers apply to
// every request made for any of the variants.
type EpisodeSources struct {
	Headers  map[string]string `json:"headers,omitempty"`
	Variants []*Variant        `json:"sources"`
	Download string            `json:"download,omitempty"`
}
