// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anistream/anistream/auth"
	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/comment"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/style"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(commentsCmd)

	commentsCmd.Flags().StringP("post", "p", "", "Post a comment, or the new text with --reply-to and --edit")
	commentsCmd.Flags().String("reply-to", "", "Reply to the comment with this id")
	commentsCmd.Flags().String("edit", "", "Edit the comment with this id")
	commentsCmd.Flags().String("like", "", "Like the comment with this id")
	commentsCmd.Flags().String("unlike", "", "Remove the like from the comment with this id")
	commentsCmd.Flags().String("delete", "", "Delete the comment with this id")
	commentsCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")

	commentsCmd.MarkFlagsMutuallyExclusive("reply-to", "edit", "like", "unlike", "delete")
	commentsCmd.SetOut(os.Stdout)
}

// commentsCmd reads and writes the comments of an episode.
var commentsCmd = &cobra.Command{
	Use:   "comments <episodeId>",
	Short: "Read and write episode comments",
	Args:  cobra.ExactArgs(1),
	Example: "  anistream comments frieren-123 --post \"great episode\"\n" +
		"  anistream comments frieren-123 --like 42",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			ctx       = commandContext(cmd)
			episodeID = args[0]
			client    = comment.NewDefault(auth.Token(auth.OpenKeyringStore()))
			flag      = func(name string) string { return lo.Must(cmd.Flags().GetString(name)) }
			text      = strings.TrimSpace(flag("post"))
		)

		switch {
		case flag("reply-to") != "":
			handleErr(requireText(text, "reply"))
			_, err := client.Reply(ctx, flag("reply-to"), text)
			handleErr(err)
		case flag("edit") != "":
			handleErr(requireText(text, "edit"))
			handleErr(client.Edit(ctx, flag("edit"), text))
		case flag("delete") != "":
			handleErr(client.Delete(ctx, flag("delete")))
		case text != "":
			_, err := client.Add(ctx, episodeID, text)
			handleErr(err)
		}

		comments, err := client.List(ctx, episodeID)
		handleErr(err)
		thread := comment.NewThread(client, comments)

		for _, like := range []struct {
			id    string
			liked bool
		}{{flag("like"), true}, {flag("unlike"), false}} {
			if like.id == "" {
				continue
			}

			handleErr(thread.SetLike(ctx, like.id, like.liked))
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(thread.Comments()))
			return
		}

		if len(thread.Comments()) == 0 {
			cmd.Println(style.Faint("No comments yet"))
			return
		}

		for _, c := range thread.Comments() {
			printComment(cmd, c, 0)
		}
	},
}

func requireText(text, action string) error {
	if text == "" {
		return errors.New(action + " needs a text, pass it with --post")
	}
	return nil
}

func printComment(cmd *cobra.Command, c *comment.Comment, depth int) {
	header := fmt.Sprintf("%s %s %s",
		style.Fg(color.Purple)(c.Author()),
		style.Faint(c.CreatedAt),
		style.Faint("#"+string(c.ID)),
	)
	if c.Likes > 0 {
		header += " " + style.Fg(color.Red)(fmt.Sprintf("%s %d", icon.Get(icon.Heart), c.Likes))
	}

	body := header + "\n" + wordwrap.String(c.Content, 72)
	cmd.Println(indent.String(body, uint(depth*4)))

	for _, reply := range c.Replies {
		printComment(cmd, reply, depth+1)
	}
}
