package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/console"
	"github.com/killallgit/cognilink/pkg/headless"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one message and stream the reply to stdout",
	Long: `Send one message to an avatar without entering the interactive chat.
The prompt is read from stdin when no argument is given and stdin is not a terminal.`,
	Example: `  cognilink ask --avatar Zeno "What is virtue?"
  cognilink ask --attach diagram.png "Explain this"
  git diff | cognilink ask --avatar reviewer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		if prompt == "" && !console.IsTTY() {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read prompt from stdin: %w", err)
			}
			prompt = string(data)
		}
		avatarRef, _ := cmd.Flags().GetString("avatar")
		attachPath, _ := cmd.Flags().GetString("attach")

		ctx := cmd.Context()
		rt, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		target, err := resolveAvatar(rt.app.Avatars().List(), avatarRef)
		if err != nil {
			return err
		}
		return headless.RunHeadless(ctx, rt.app, target.ID, prompt, headless.Options{
			AttachmentPath: attachPath,
			Out:            cmd.OutOrStdout(),
			ErrOut:         cmd.ErrOrStderr(),
		})
	},
}

func init() {
	askCmd.Flags().StringP("avatar", "a", "", "avatar to ask (id or name, default the first)")
	askCmd.Flags().String("attach", "", "file to send with the prompt")
	rootCmd.AddCommand(askCmd)
}
