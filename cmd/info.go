// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/watchlist"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	infoCmd.SetOut(os.Stdout)
}

// infoCmd shows the details and episodes of one anime.
var infoCmd = &cobra.Command{
	Use:   "info <animeId>",
	Short: "Show the details and episodes of an anime",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		anime, err := newResolver().Info(commandContext(cmd), args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(anime))
			return
		}

		printAnime(cmd, anime)
		if watchlist.Open().Has(anime.ID) {
			cmd.Println(style.Fg(color.Purple)("in watchlist"))
		}
		if len(anime.Genres) > 0 {
			cmd.Println(style.Faint(strings.Join(anime.Genres, ", ")))
		}
		if anime.Description != "" {
			cmd.Println()
			cmd.Println(wordwrap.String(anime.Description, 80))
		}

		if len(anime.Episodes) == 0 {
			return
		}

		cmd.Println()
		threshold := completionThreshold()
		h := history.Open()
		for _, episode := range anime.Episodes {
			line := fmt.Sprintf("%s %s", episode, style.Faint(episode.ID))
			if saved, ok := h.Get(anime.ID, episode.ID).Get(); ok {
				if saved.Completed(threshold) {
					line += " " + style.Fg(color.Green)("watched")
				} else {
					line += " " + style.Fg(color.Yellow)(fmt.Sprintf("%.0f%%", saved.WatchedPercentage))
				}
			}
			cmd.Println(line)
		}
	},
}
