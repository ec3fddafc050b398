package consumet

import (
	"strings"

	"github.com/anistream/anistream/source"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

func normalizedName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindClosest returns the result whose title is nearest to title by edit distance.
func FindClosest(results []*source.Anime, title string) mo.Option[*source.Anime] {
	if len(results) == 0 {
		return mo.None[*source.Anime]()
	}

	title = normalizedName(title)
	closest := lo.MinBy(results, func(a, b *source.Anime) bool {
		return levenshtein.Distance(normalizedName(a.Title), title) <
			levenshtein.Distance(normalizedName(b.Title), title)
	})
	return mo.Some(closest)
}
