package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/config"
	llmfactory "github.com/killallgit/cognilink/pkg/llm/factory"
	"github.com/killallgit/cognilink/pkg/llm/ollama"
)

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"models"},
	Short:   "List generation providers",
	Long: `List the providers that can be used with the current configuration and stored key.
With --health the local Ollama server is asked which models it has pulled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		apiKey, err := rt.repo.LoadAPIKey(ctx)
		if err != nil {
			return err
		}
		// A missing default still leaves the other providers listed
		registry, err := llmfactory.NewRegistry(ctx, rt.cfg, apiKey)
		if registry == nil {
			return err
		}
		defaultName := ""
		if p, err := registry.Chat(); err == nil {
			defaultName = p.Name()
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("", "PROVIDER", "MODEL")
		for _, name := range registry.Names() {
			p, ok := registry.Lookup(name)
			if !ok {
				continue
			}
			marker := ""
			if name == defaultName {
				marker = "*"
			}
			t.Row(marker, name, p.Model())
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.String())

		if health, _ := cmd.Flags().GetBool("health"); !health {
			return nil
		}
		p, ok := registry.Lookup("ollama")
		if !ok {
			return errors.New("ollama provider is not available")
		}
		local, ok := p.(*ollama.Provider)
		if !ok {
			return nil
		}
		status, err := local.CheckHealth(ctx)
		if err != nil {
			return err
		}
		if !status.Available {
			fmt.Fprintf(out, "Ollama at %s: unavailable (%v)\n", config.Get().Ollama.URL, status.Error)
			return nil
		}
		fmt.Fprintf(out, "Ollama at %s: %d models pulled\n", config.Get().Ollama.URL, len(status.Models))
		if len(status.Models) > 0 {
			fmt.Fprintf(out, "  %s\n", strings.Join(status.Models, "\n  "))
		}
		if !status.HasModel(local.Model()) {
			fmt.Fprintf(out, "Configured model %s is not pulled; run `ollama pull %s`\n", local.Model(), local.Model())
		}
		return nil
	},
}

func init() {
	providersCmd.Flags().Bool("health", false, "check the local Ollama server")
	rootCmd.AddCommand(providersCmd)
}
