package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/console"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the Gemini API key",
	Long:  `Store the Gemini API key. Without an argument the key is read from the terminal without echo.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = strings.TrimSpace(args[0])
		} else {
			if !console.IsTTY() {
				return errors.New("no key given and stdin is not a terminal")
			}
			var err error
			if key, err = readAPIKey(); err != nil {
				return err
			}
		}
		if key == "" {
			return errors.New("key cannot be empty")
		}

		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.repo.SaveAPIKey(ctx, key); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
		return nil
	},
}

var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored Gemini API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.repo.ClearAPIKey(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a Gemini API key is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		key, err := rt.repo.LoadAPIKey(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case key != "":
			fmt.Fprintf(out, "Stored key: %s\n", mask(key))
		case rt.cfg.Gemini.APIKey != "":
			fmt.Fprintf(out, "No stored key; using configured key %s\n", mask(rt.cfg.Gemini.APIKey))
		default:
			fmt.Fprintln(out, "No key stored.")
		}
		return nil
	},
}

// mask keeps the last four characters
func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyResetCmd, keyStatusCmd)
	rootCmd.AddCommand(keyCmd)
}
