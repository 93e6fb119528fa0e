package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/export"
	"github.com/killallgit/cognilink/pkg/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export <id|name>",
	Short: "Export a conversation as Markdown",
	Long: `Write a conversation as Markdown to NAME-Chat-DATE.md in the current directory,
to the file given with --output, or to stdout with --output -.`,
	Args: cobra.ExactArgs(1),
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

		now := time.Now()
		history := manager.History(target.ID)
		path, _ := cmd.Flags().GetString("output")
		if path == "-" {
			return export.Write(cmd.OutOrStdout(), target.Name, history, now)
		}
		if path == "" {
			path = export.FileName(target.Name, now)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		if err := export.Write(f, target.Name, history, now); err != nil {
			return err
		}
		logger.Info("Exported conversation %s to %s", target.ID, path)
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(history), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file, - for stdout")
	rootCmd.AddCommand(exportCmd)
}
