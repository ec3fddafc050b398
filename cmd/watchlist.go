// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/watchlist"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd, watchlistListCmd)

	watchlistListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	watchlistListCmd.SetOut(os.Stdout)
	watchlistAddCmd.SetOut(os.Stdout)
	watchlistRemoveCmd.SetOut(os.Stdout)
}

// watchlistCmd manages saved anime.
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the anime saved for later",
	Run: func(cmd *cobra.Command, args []string) {
		watchlistListCmd.Run(watchlistListCmd, args)
	},
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <animeId>",
	Short: "Save an anime for later",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		anime, err := newResolver().Info(commandContext(cmd), args[0])
		handleErr(err)
		handleErr(watchlist.Open().Add(anime))
		cmd.Printf("%s added %s\n", icon.Get(icon.Heart), style.Fg(color.Purple)(anime.Title))
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:     "remove <animeId>",
	Aliases: []string{"rm"},
	Short:   "Remove an anime from the watchlist",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(watchlist.Open().Remove(args[0]))
		cmd.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Purple)(args[0]))
	},
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the watchlist, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		items, err := watchlist.Open().List()
		handleErr(err)

		if cmd.Flags().Lookup("json") != nil && lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(items))
			return
		}

		if len(items) == 0 {
			cmd.Println(style.Faint("The watchlist is empty"))
			return
		}

		for _, item := range items {
			cmd.Printf("%s %s %s\n", style.Bold(item.Title), style.Fg(color.Purple)(item.AnimeID), style.Faint(item.AddedAt.Format("2006-01-02")))
		}
	},
}
