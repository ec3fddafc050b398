// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	sourcesCmd.Flags().Bool("schema", false, "Print the JSON schema of the output instead")
	sourcesCmd.SetOut(os.Stdout)
}

// sourcesCmd lists the stream variants of an episode.
var sourcesCmd = &cobra.Command{
	Use:   "sources <episodeId>",
	Short: "List the stream variants of an episode",
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(sourcesSchema()))
			return
		}

		sources, err := newResolver().Watch(commandContext(cmd), args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(sources))
			return
		}

		catalog := source.NewCatalog(sources.Variants)
		if catalog.Len() == 0 {
			cmd.Println(style.Fg(color.Yellow)("No video source available"))
			return
		}

		headerStyle := style.New().Foreground(color.HiBlue).Bold(true).Render
		for _, lang := range []source.Language{source.Sub, source.Dub} {
			if !catalog.HasLanguage(lang) {
				continue
			}

			cmd.Println(headerStyle(strings.ToUpper(lang.String()) + ":"))
			for _, tier := range source.SortTiers(catalog.TiersFor(lang)) {
				variant := catalog.Find(tier, lang).MustGet()
				kind := "file"
				if variant.Adaptive {
					kind = "hls"
				}
				cmd.Printf("  %s %s %s\n", style.Bold(tier), style.Faint(kind), variant.URL)
			}
		}

		if sources.Download != "" {
			cmd.Println()
			cmd.Printf("%s %s\n", headerStyle("Download:"), sources.Download)
		}
	},
}

func sourcesSchema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		return "source." + t.Name()
	}

	return reflector.Reflect(&source.EpisodeSources{})
}
