// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/config"
	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configSetCmd, configGetCmd, configWriteCmd, configDeleteCmd, configResetCmd)

	configInfoCmd.Flags().StringSliceP("key", "k", nil, "Only show these keys")
	configInfoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	lo.Must0(configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))

	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")

	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")

	for _, c := range configCmd.Commands() {
		c.SetOut(os.Stdout)
	}
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	keys := lo.Keys(config.Default)
	slices.Sort(keys)
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// lookupField resolves a key or exits with a suggestion.
func lookupField(k string) config.Field {
	field, err := config.Lookup(k)
	var unknown *config.UnknownKeyError
	if errors.As(err, &unknown) {
		handleErr(fmt.Errorf("unknown key %s, did you mean %s?",
			style.Fg(color.Red)(unknown.Key),
			style.Fg(color.Yellow)(unknown.Closest),
		))
	}
	return field
}

func saveConfig() {
	err := viper.WriteConfig()
	if errors.As(err, new(viper.ConfigFileNotFoundError)) {
		err = viper.SafeWriteConfig()
	}
	handleErr(err)
}

func success(cmd *cobra.Command, format string, args ...any) {
	cmd.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

// configCmd groups the configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe settings with their current and default values",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))
		if len(keys) == 0 {
			keys = lo.Keys(config.Default)
		}
		slices.Sort(keys)

		fields := lo.Map(keys, func(k string, _ int) config.Field {
			return lookupField(k)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(lo.ToSlicePtr(fields)))
			return
		}

		cmd.Println(strings.Join(lo.Map(fields, func(f config.Field, _ int) string {
			return f.Pretty()
		}), "\n\n"))
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value...>",
	Short:             "Change a setting and save it to the config file",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field := lookupField(args[0])
		value, err := field.Parse(args[1:])
		handleErr(err)

		viper.Set(field.Key, value)
		saveConfig()

		success(cmd, "set %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print the current value of a setting",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(viper.Get(lookupField(args[0]).Key))
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current settings to the config file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("force")) {
			if exists, _ := filesystem.API().Exists(config.File()); exists {
				handleErr(filesystem.API().Remove(config.File()))
			}
		}

		handleErr(viper.SafeWriteConfig())
		success(cmd, "wrote config to %s", config.File())
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Delete the config file",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(config.File()))
		success(cmd, "deleted config")
	},
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key...]",
	Short:             "Restore settings to their defaults",
	ValidArgsFunction: completionConfigKeys,
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("all")) {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Map(args, func(k string, _ int) config.Field {
			return lookupField(k)
		})
		if len(fields) == 0 {
			fields = lo.Values(config.Default)
		}

		for _, field := range fields {
			viper.Set(field.Key, field.Value)
		}
		saveConfig()

		if len(args) == 0 {
			success(cmd, "reset all settings")
			return
		}
		for _, field := range fields {
			success(cmd, "reset %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(field.Value)))
		}
	},
}
