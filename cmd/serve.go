// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/open"
	"github.com/anistream/anistream/server"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Listen address")
	lo.Must0(viper.BindPFlag(key.ServerAddr, serveCmd.Flags().Lookup("addr")))
	serveCmd.Flags().BoolP("open", "o", false, "Open the recent episodes endpoint in the browser")
	serveCmd.SetOut(os.Stdout)
}

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streaming API and image proxy over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		srv := server.New(server.DefaultOptions(newResolver()))
		openBrowser := lo.Must(cmd.Flags().GetBool("open"))

		err := srv.Run(commandContext(cmd), viper.GetString(key.ServerAddr), func(addr string) {
			base := server.BaseURL(addr)
			cmd.Printf("%s listening on %s\n", icon.Get(icon.Success), style.Fg(color.Purple)(base))

			if openBrowser {
				if err := open.Start(base + "/api/recent"); err != nil {
					log.Warnf("open browser: %v", err)
				}
			}
		})
		handleErr(err)
	},
}
