// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"os"
	"runtime"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Only print the version number")
	versionCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	versionCmd.SetOut(os.Stdout)
}

type buildInfo struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
	BuiltAt  string `json:"builtAt"`
	BuiltBy  string `json:"builtBy"`
	Platform string `json:"platform"`
	API      string `json:"api"`
}

// versionCmd prints the version and build metadata.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build metadata",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		info := buildInfo{
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			API:      viper.GetString(key.APIBaseURL),
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(info))
			return
		}

		defer version.Notify(commandContext(cmd))

		cmd.Printf("%s %s\n\n", style.Fg(color.Purple)("▇▇▇"), style.Fg(color.Purple)(constant.Anistream))
		for _, row := range [][2]string{
			{"Version", info.Version},
			{"Git Commit", info.Revision},
			{"Build Date", info.BuiltAt},
			{"Built By", info.BuiltBy},
			{"Platform", info.Platform},
			{"API", info.API},
		} {
			cmd.Printf("  %s %s\n", style.Faint(style.New().Width(14).Render(row[0])), style.Bold(row[1]))
		}
	},
}
