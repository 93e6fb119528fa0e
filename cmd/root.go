package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/cognilink/pkg/config"
	"github.com/killallgit/cognilink/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cognilink",
	Short: "Chat with AI avatars",
	Long: `Create AI personas from a short description and chat with them.
Replies stream from Gemini, Ollama or OpenAI and every conversation is kept.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Init(); err != nil {
			return err
		}
		logger.Debug("Running %s (config %q)", cmd.CommandPath(), config.GetConfigFileUsed())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		avatarID, _ := cmd.Flags().GetString("avatar")
		return runChat(cmd, avatarID)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .cognilink/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().StringP("provider", "p", "", "generation provider: gemini, ollama or openai")
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))

	rootCmd.PersistentFlags().String("storage", "", "storage backend: memory, file, sqlite or postgres")
	viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("storage"))

	rootCmd.PersistentFlags().String("locale", "", "language of canned error replies (ar, en)")
	viper.BindPFlag("locale", rootCmd.PersistentFlags().Lookup("locale"))

	rootCmd.Flags().StringP("avatar", "a", "", "avatar to chat with (id or name)")
}
