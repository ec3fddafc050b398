// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/consumet"
	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/mini"
	"github.com/anistream/anistream/query"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/tui"
	"github.com/anistream/anistream/util"
	"github.com/anistream/anistream/version"
	"github.com/anistream/anistream/watchlist"
	"github.com/anistream/anistream/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Persist playback progress to the watch history")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnWatch, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().String("api", "", "Base URL of the anime metadata API")
	lo.Must0(viper.BindPFlag(key.APIBaseURL, rootCmd.PersistentFlags().Lookup("api")))

	rootCmd.Flags().BoolP("continue", "c", false, "Resume from the watch history")
	rootCmd.Flags().StringP("query", "q", "", "Start with a search")
	rootCmd.Flags().BoolP("mini", "m", false, "Use the minimal prompt interface")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("query", completionQueries))
	addPlaybackFlags(rootCmd)

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify(commandContext(cmd))
	})

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the anistream application.
var rootCmd = &cobra.Command{
	Use:   constant.Anistream,
	Short: "Stream anime from the terminal",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Stream anime from the terminal"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		options := playbackOptions(cmd)
		options.Continue = lo.Must(cmd.Flags().GetBool("continue"))
		options.Query = lo.Must(cmd.Flags().GetString("query"))

		if lo.Must(cmd.Flags().GetBool("mini")) {
			handleErr(mini.Run(commandContext(cmd), &mini.Options{
				Resolver: options.Resolver,
				History:  options.History,
				Continue: options.Continue,
				Query:    options.Query,
				Quality:  options.Quality,
				Language: options.Language,
			}))
			return
		}

		handleErr(tui.Run(commandContext(cmd), options))
	},
}

func addPlaybackFlags(cmd *cobra.Command) {
	cmd.Flags().String("quality", "", "Initial quality tier, e.g. 720p")
	cmd.Flags().Bool("dub", false, "Prefer the dubbed audio track")
}

// playbackOptions builds the interactive options shared by the root and watch commands.
func playbackOptions(cmd *cobra.Command) *tui.Options {
	lang, err := source.ParseLanguage(viper.GetString(key.PlayerDefaultLanguage))
	if err != nil {
		log.Warnf("%v, using %s", err, source.Sub)
		lang = source.Sub
	}
	if lo.Must(cmd.Flags().GetBool("dub")) {
		lang = source.Dub
	}

	quality := lo.Must(cmd.Flags().GetString("quality"))
	if quality != "" {
		quality = source.NormalizeQuality(quality)
	}

	return &tui.Options{
		Resolver:  newResolver(),
		History:   history.Open(),
		Watchlist: watchlist.Open(),
		Quality:   quality,
		Language:  lang,
	}
}

// commandContext returns the context of cmd, which is unset when a command
// is run directly from another one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newResolver() *consumet.Client {
	return consumet.New(consumet.DefaultOptions())
}

func completionQueries(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
