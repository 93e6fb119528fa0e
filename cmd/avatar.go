package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/killallgit/cognilink/pkg/avatar"
)

var avatarCmd = &cobra.Command{
	Use:     "avatar",
	Aliases: []string{"avatars"},
	Short:   "Manage avatars",
}

var avatarListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List avatars",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.repo.LoadAvatars(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No avatars yet.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "NAME", "TEMP", "WEB", "DESCRIPTION")
		for _, a := range list {
			web := "no"
			if a.WebAccess {
				web = "yes"
			}
			t.Row(a.ID, a.Name, fmt.Sprintf("%.1f", a.Temperature), web, truncate(a.Description, 48))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

var avatarShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show an avatar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.repo.LoadAvatars(ctx)
		if err != nil {
			return err
		}
		target, err := resolveAvatar(list, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			data, err := avatar.DefinitionOf(target).Marshal()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		fmt.Fprintf(out, "ID:          %s\n", target.ID)
		fmt.Fprintf(out, "Name:        %s\n", target.Name)
		fmt.Fprintf(out, "Description: %s\n", target.Description)
		fmt.Fprintf(out, "Temperature: %.2f\n", target.Temperature)
		fmt.Fprintf(out, "Web access:  %t\n", target.WebAccess)
		fmt.Fprintf(out, "Prime directive:\n%s\n", target.PrimeDirective)
		return nil
	},
}

var avatarCreateCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Generate an avatar from a description",
	Long: `Generate a name, a prime directive and a portrait from a short description.
Portrait generation falls back to a placeholder when the provider cannot make images.`,
	Example: `  cognilink avatar create "a Stoic philosopher who answers in aphorisms"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		created, err := rt.app.Avatars().Create(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var avatarImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Add an avatar from a YAML definition",
	Example: `  cat > zeno.yaml <<EOF
  name: Zeno
  description: a Stoic philosopher
  primeDirective: You are Zeno of Citium...
  temperature: 0.6
  webAccess: false
  EOF
  cognilink avatar import zeno.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read definition: %w", err)
		}
		def, err := avatar.ParseDefinition(data)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		service, _, err := rt.avatars(ctx)
		if err != nil {
			return err
		}
		created, err := service.CreateFromDefinition(ctx, def)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var avatarEditCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Change an avatar's settings",
	Example: `  cognilink avatar edit Zeno --temperature 0.4 --web=true`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		service, _, err := rt.avatars(ctx)
		if err != nil {
			return err
		}
		target, err := resolveAvatar(service.List(), args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("name") {
			target.Name, _ = flags.GetString("name")
		}
		if flags.Changed("description") {
			target.Description, _ = flags.GetString("description")
		}
		if flags.Changed("prime-directive") {
			target.PrimeDirective, _ = flags.GetString("prime-directive")
		}
		if flags.Changed("temperature") {
			target.Temperature, _ = flags.GetFloat64("temperature")
		}
		if flags.Changed("web") {
			target.WebAccess, _ = flags.GetBool("web")
		}

		if err := service.Update(ctx, target); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", target.Name, target.ID)
		return nil
	},
}

var avatarDeleteCmd = &cobra.Command{
	Use:     "delete <id|name>",
	Aliases: []string{"rm"},
	Short:   "Delete an avatar and its conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		service, _, err := rt.avatars(ctx)
		if err != nil {
			return err
		}
		target, err := resolveAvatar(service.List(), args[0])
		if err != nil {
			return err
		}
		if err := service.Delete(ctx, target.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", target.Name, target.ID)
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func init() {
	avatarShowCmd.Flags().Bool("yaml", false, "print as a YAML definition that `avatar import` accepts")

	avatarEditCmd.Flags().String("name", "", "new name")
	avatarEditCmd.Flags().String("description", "", "new description")
	avatarEditCmd.Flags().String("prime-directive", "", "new system instruction")
	avatarEditCmd.Flags().Float64("temperature", 0.8, "sampling temperature")
	avatarEditCmd.Flags().Bool("web", false, "allow web search")

	avatarCmd.AddCommand(avatarListCmd, avatarShowCmd, avatarCreateCmd, avatarImportCmd, avatarEditCmd, avatarDeleteCmd)
	rootCmd.AddCommand(avatarCmd)
}
