package player

import (
	"fmt"

	"github.com/anistream/anistream/source"
	"github.com/samber/mo"
)

// PreferredTier wins the default policy whenever it is available.
const PreferredTier = "720p"

// Preference is the user's quality and language choice. It lives as long as
// the player and is never persisted.
type Preference struct {
	// Tier is absent while the default policy applies.
	Tier     mo.Option[string]
	Language source.Language
}

// DefaultPreference returns the preference a freshly mounted player starts with.
func DefaultPreference(lang source.Language) Preference {
	if lang == "" {
		lang = source.Sub
	}
	return Preference{Tier: mo.None[string](), Language: lang}
}

// DefaultTier picks 720p if present, else the highest numeric tier. Ties keep
// first-seen order and non-numeric tiers come last.
func DefaultTier(tiers []string) mo.Option[string] {
	if len(tiers) == 0 {
		return mo.None[string]()
	}

	best := tiers[0]
	for _, tier := range tiers {
		if tier == PreferredTier {
			return mo.Some(tier)
		}
		if source.TierHeight(tier) > source.TierHeight(best) {
			best = tier
		}
	}
	return mo.Some(best)
}

// EffectiveTier resolves the tier a preference points at. Without an explicit
// tier the default policy runs over the tiers that carry the requested
// language, or over all tiers when that language is absent.
func EffectiveTier(c *source.Catalog, p Preference) mo.Option[string] {
	if tier, ok := p.Tier.Get(); ok {
		return mo.Some(tier)
	}

	candidates := c.TiersFor(p.Language)
	if len(candidates) == 0 {
		candidates = c.Tiers()
	}
	return DefaultTier(candidates)
}

// Select resolves a preference against the catalog. It returns ErrNoSources
// for an empty catalog and an error wrapping ErrSelectionMiss when the
// combination does not exist.
func Select(c *source.Catalog, p Preference) (*source.Variant, error) {
	if c == nil || c.Len() == 0 {
		return nil, ErrNoSources
	}

	lang := p.Language
	if lang == "" {
		lang = source.Sub
	}

	tier := EffectiveTier(c, Preference{Tier: p.Tier, Language: lang}).OrElse(source.Unknown)

	variant, ok := c.Find(tier, lang).Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrSelectionMiss, tier, lang)
	}
	return variant, nil
}
