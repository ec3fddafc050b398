package source

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Unknown is the tier of labels without a resolution token.
const Unknown = "unknown"

var tierPattern = regexp.MustCompile(`\d+p`)

// NormalizeQuality extracts the first "<digits>p" token of label.
func NormalizeQuality(label string) string {
	if tier := tierPattern.FindString(label); tier != "" {
		return tier
	}
	return Unknown
}

// TierHeight returns the leading integer of a tier, or -1 for non-numeric tiers.
func TierHeight(tier string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(tier, "p"))
	if err != nil || tier == Unknown {
		return -1
	}
	return n
}

// SortTiers orders tiers by height, highest first. Non-numeric tiers go last
// and keep their relative order.
func SortTiers(tiers []string) []string {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return TierHeight(b) - TierHeight(a)
	})
	return sorted
}

type entry struct {
	variant *Variant
	tier    string
	lang    Language
}

// Catalog is a lookup view over an episode's variants. Duplicates of the same
// tier and language are kept; lookups return the first one.
type Catalog struct {
	entries []entry
}

// NewCatalog classifies variants. Nil entries and entries without a URL are
// skipped. A variant without a language counts as sub; the variant itself is
// left untouched.
func NewCatalog(variants []*Variant) *Catalog {
	c := &Catalog{}
	for _, v := range variants {
		if v == nil || v.URL == "" {
			continue
		}
		lang := v.Language
		if lang == "" {
			lang = Sub
		}
		c.entries = append(c.entries, entry{variant: v, tier: v.Tier(), lang: lang})
	}
	return c
}

// Len returns the number of usable variants.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Variants returns the usable variants in input order.
func (c *Catalog) Variants() []*Variant {
	return lo.Map(c.entries, func(e entry, _ int) *Variant {
		return e.variant
	})
}

// Tiers returns the distinct tiers in first-seen order.
func (c *Catalog) Tiers() []string {
	return lo.Uniq(lo.Map(c.entries, func(e entry, _ int) string {
		return e.tier
	}))
}

// TiersFor returns the distinct tiers carrying lang, in first-seen order.
func (c *Catalog) TiersFor(lang Language) []string {
	return lo.Uniq(lo.FilterMap(c.entries, func(e entry, _ int) (string, bool) {
		return e.tier, e.lang == lang
	}))
}

// HasLanguage reports whether any variant carries lang.
func (c *Catalog) HasLanguage(lang Language) bool {
	return lo.ContainsBy(c.entries, func(e entry) bool {
		return e.lang == lang
	})
}

// Find returns the first variant with the given tier and language.
func (c *Catalog) Find(tier string, lang Language) mo.Option[*Variant] {
	e, ok := lo.Find(c.entries, func(e entry) bool {
		return e.tier == tier && e.lang == lang
	})
	if !ok {
		return mo.None[*Variant]()
	}
	return mo.Some(e.variant)
}
