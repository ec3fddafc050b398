// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"fmt"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/internal/cache"
	"github.com/anistream/anistream/util"
	"github.com/anistream/anistream/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget defines a resource eligible for cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	clear    func() error
}

func removing(location func() string) func() error {
	return func() error {
		return filesystem.API().RemoveAll(location())
	}
}

// clearTargets registry of all application artifacts that can be selectively cleared.
var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), removing(where.Cache)},
	{"cached responses", "responses", mo.Some("r"), cache.Clear},
	{"history", "history", mo.Some("s"), func() error { return history.Open().Clear() }},
	{"watchlist", "watchlist", mo.Some("w"), removing(where.Watchlist)},
	{"queries history", "queries", mo.Some("q"), removing(where.Queries)},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// clearCmd manages the cleanup of cached and stored application artifacts.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and stored application artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := target.clear()
			e()
			handleErr(err)
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
