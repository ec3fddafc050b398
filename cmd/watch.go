// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"github.com/anistream/anistream/tui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	addPlaybackFlags(watchCmd)
}

// watchCmd plays one episode.
var watchCmd = &cobra.Command{
	Use:     "watch <animeId> <episodeId>",
	Short:   "Play an episode",
	Args:    cobra.ExactArgs(2),
	Example: "  anistream watch frieren-18542 frieren-18542-episode-1 --quality 1080p --dub",
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		options := playbackOptions(cmd)
		options.AnimeID = args[0]
		options.EpisodeID = args[1]
		handleErr(tui.Run(commandContext(cmd), options))
	},
}
