package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/config"
	"github.com/killallgit/cognilink/pkg/console"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively with an avatar",
	Long: `Start an interactive chat. Replies stream as they are generated and code blocks
are highlighted. Type /help inside the chat for commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		avatarID, _ := cmd.Flags().GetString("avatar")
		return runChat(cmd, avatarID)
	},
}

func runChat(cmd *cobra.Command, avatarRef string) error {
	if !console.IsTTY() {
		return errors.New("interactive chat needs a terminal; use `cognilink ask` instead")
	}
	ctx := cmd.Context()
	rt, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := []console.Option{console.WithColor(console.ColorEnabled())}
	if avatarRef != "" {
		target, err := resolveAvatar(rt.app.Avatars().List(), avatarRef)
		if err != nil {
			return err
		}
		opts = append(opts, console.WithAvatar(target.ID))
	}

	reader := console.NewLinerReader(config.BuildSettingsPath("input_history"))
	reader.SetCompleter(console.Commands)
	defer reader.Close()

	return console.NewSession(rt.app, reader, cmd.OutOrStdout(), opts...).Run(ctx)
}

func init() {
	chatCmd.Flags().StringP("avatar", "a", "", "avatar to chat with (id or name)")
	rootCmd.AddCommand(chatCmd)
}
