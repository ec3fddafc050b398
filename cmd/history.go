// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Bool("clear", false, "Remove every entry")
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	historyCmd.MarkFlagsMutuallyExclusive("clear", "json")
	historyCmd.SetOut(os.Stdout)
}

func completionThreshold() float64 {
	threshold := viper.GetFloat64(key.PlayerCompletionPercentage)
	if threshold <= 0 {
		return 80
	}
	return threshold
}

// historyCmd shows the watch history.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the watch history",
	Run: func(cmd *cobra.Command, args []string) {
		h := history.Open()

		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(h.Clear())
			cmd.Printf("%s history cleared\n", icon.Get(icon.Success))
			return
		}

		entries, err := h.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("Nothing watched yet"))
			return
		}

		threshold := completionThreshold()
		for _, e := range entries {
			progress := style.Fg(color.Yellow)(fmt.Sprintf("%.0f%%", e.WatchedPercentage))
			if e.Completed(threshold) {
				progress = style.Fg(color.Green)("watched")
			}

			cmd.Printf(
				"%s episode %d %s %s\n",
				style.Bold(e.AnimeTitle),
				e.EpisodeNumber,
				progress,
				style.Faint(e.UpdatedAt.Format("2006-01-02 15:04")),
			)
		}
	},
}
