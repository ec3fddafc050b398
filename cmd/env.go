// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/config"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only list variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only list variables that are unset")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
	envCmd.SetOut(os.Stdout)
}

// envVars lists every environment variable read at startup.
func envVars() []string {
	vars := lo.Map(config.EnvExposed, func(k string, _ int) string {
		field := config.Default[k]
		return field.Env()
	})
	vars = append(vars, where.EnvConfigPath)
	slices.Sort(vars)
	return vars
}

// envCmd lists the supported environment variables with their values.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))
		name := style.New().Bold(true).Foreground(color.Purple).Render

		for _, env := range envVars() {
			value, present := os.LookupEnv(env)
			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			shown := style.Fg(color.Red)("unset")
			if present {
				shown = style.Fg(color.Green)(value)
			}
			cmd.Printf("%s=%s\n", name(env), shown)
		}
	},
}
