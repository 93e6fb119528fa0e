package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/console"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear a conversation",
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		service, manager, err := rt.avatars(ctx)
		if err != nil {
			return err
		}
		target, err := resolveAvatar(service.List(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		history := manager.History(target.ID)
		if len(history) == 0 {
			fmt.Fprintln(out, "No messages yet.")
			return nil
		}
		color := console.ColorEnabled()
		for _, msg := range history {
			speaker := target.Name
			if msg.IsUser() {
				speaker = "You"
			}
			fmt.Fprintf(out, "%s:\n", speaker)
			if msg.Attachment != nil {
				fmt.Fprintf(out, "[attachment: %s]\n", msg.Attachment.Name)
			}
			r := console.NewRenderer(out, color)
			if _, err := r.Write([]byte(msg.Content)); err != nil {
				return err
			}
			if err := r.Flush(); err != nil {
				return err
			}
			fmt.Fprint(out, "\n")
			for i, src := range msg.Sources {
				fmt.Fprintf(out, "  [%d] %s - %s\n", i+1, src.Title, src.URI)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <id|name>",
	Short: "Delete every message of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		service, manager, err := rt.avatars(ctx)
		if err != nil {
			return err
		}
		target, err := resolveAvatar(service.List(), args[0])
		if err != nil {
			return err
		}
		manager.Clear(target.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation with %s\n", target.Name)
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
