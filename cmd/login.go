// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anistream/anistream/auth"
	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().BoolP("register", "r", false, "Create a new account first")
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.SetOut(os.Stdout)
	logoutCmd.SetOut(os.Stdout)
}

// loginCmd signs in to the comment backend.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to post and like comments",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		register := lo.Must(cmd.Flags().GetBool("register"))

		var username string
		if register {
			handleErr(survey.AskOne(&survey.Input{Message: "Username"}, &username, survey.WithValidator(survey.Required)))
		}

		email := lo.Must(cmd.Flags().GetString("email"))
		if email == "" {
			handleErr(survey.AskOne(&survey.Input{Message: "Email"}, &email, survey.WithValidator(survey.Required)))
		}

		var password string
		handleErr(survey.AskOne(&survey.Password{Message: "Password"}, &password, survey.WithValidator(survey.Required)))

		client := auth.NewDefaultClient(auth.OpenKeyringStore())

		var (
			session auth.Session
			err     error
		)
		if register {
			session, err = client.Register(commandContext(cmd), username, email, password)
		} else {
			session, err = client.Login(commandContext(cmd), email, password)
		}
		handleErr(err)

		cmd.Printf("%s Logged in as %s\n", icon.Get(icon.Success), style.Fg(color.Purple)(session.Name()))
	},
}

// logoutCmd forgets the stored session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := auth.OpenKeyringStore()
		session, err := store.Read()
		if err != nil || !session.Valid() {
			handleErr(errors.New("not logged in"))
		}

		handleErr(auth.NewDefaultClient(store).Logout())
		cmd.Printf("%s Logged out %s\n", icon.Get(icon.Success), session.Name())
	},
}
