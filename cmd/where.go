// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type whereTarget struct {
	name, flag, short string
	path              func() string
	hidden            bool
}

var whereTargets = []whereTarget{
	{name: "Config", flag: "config", short: "c", path: where.Config},
	{name: "Logs", flag: "logs", short: "l", path: where.Logs},
	{name: "History", flag: "history", short: "s", path: where.History},
	{name: "Watchlist", flag: "watchlist", short: "w", path: where.Watchlist},
	{name: "Cache", flag: "cache", path: where.Cache, hidden: true},
	{name: "Responses", flag: "responses", path: where.Responses, hidden: true},
	{name: "Temp", flag: "temp", path: where.Temp, hidden: true},
	{name: "Session user", flag: "user", path: where.User, hidden: true},
	{name: "Queries", flag: "queries", path: where.Queries, hidden: true},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, t := range whereTargets {
		whereCmd.Flags().BoolP(t.flag, t.short, false, t.name+" path")
		if t.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(t.flag))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(whereTargets, func(t whereTarget, _ int) string {
		return t.flag
	})...)
	whereCmd.SetOut(os.Stdout)
}

// whereCmd prints where anistream keeps its files.
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where files are stored",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range whereTargets {
			if lo.Must(cmd.Flags().GetBool(t.flag)) {
				cmd.Println(t.path())
				return
			}
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(whereTargets, func(t whereTarget, _ int) bool {
			return t.hidden
		})

		for i, t := range visible {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s %s\n", header(t.name+"?"), style.Fg(color.Yellow)("--"+t.flag))
			cmd.Println(t.path())
		}
	},
}
