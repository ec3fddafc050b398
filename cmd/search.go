// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("page", "p", 1, "Result page")
	searchCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	searchCmd.ValidArgsFunction = completionQueries
	searchCmd.SetOut(os.Stdout)
}

// searchCmd searches the catalog.
var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search for anime by title",
	Args:    cobra.MinimumNArgs(1),
	Example: "  anistream search frieren --json",
	Run: func(cmd *cobra.Command, args []string) {
		q := strings.Join(args, " ")
		page, err := newResolver().Search(commandContext(cmd), q, lo.Must(cmd.Flags().GetInt("page")))
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(page))
			return
		}

		if len(page.Results) == 0 {
			cmd.Printf("No results for %s\n", style.Fg(color.Yellow)(q))
			return
		}

		for _, anime := range page.Results {
			printAnime(cmd, anime)
		}

		if page.HasNextPage {
			cmd.Println(style.Faint(fmt.Sprintf("more results with --page %d", page.CurrentPage+1)))
		}
	},
}

func printAnime(cmd *cobra.Command, anime *source.Anime) {
	details := lo.Compact([]string{anime.Type, string(anime.ReleaseDate), anime.Status})

	cmd.Printf("%s %s", style.Bold(anime.Title), style.Fg(color.Purple)(anime.ID))
	if len(details) > 0 {
		cmd.Printf(" %s", style.Faint(strings.Join(details, " • ")))
	}
	cmd.Println()
}
