package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig writes a settings file using file storage under a temp dir
func newTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	settings := fmt.Sprintf(`provider: ollama
locale: en
storage:
  backend: file
  path: %s
logging:
  log_file: %s
  level: debug
`, filepath.Join(dir, "data"), filepath.Join(dir, "system.log"))

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0644))
	return path
}

// resetFlags restores every flag, since cobra keeps values between Execute calls
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func importZeno(t *testing.T, cfgPath string) {
	t.Helper()
	def := filepath.Join(t.TempDir(), "zeno.yaml")
	require.NoError(t, os.WriteFile(def, []byte(`name: Zeno
description: a Stoic philosopher
primeDirective: You are Zeno of Citium.
temperature: 0.6
webAccess: true
`), 0644))

	out, err := execute(t, cfgPath, "avatar", "import", def)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported Zeno")
}

func TestAvatarCommands(t *testing.T) {
	t.Run("should import, list and show avatars", func(t *testing.T) {
		cfgPath := newTestConfig(t)

		out, err := execute(t, cfgPath, "avatar", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No avatars yet.")

		importZeno(t, cfgPath)

		out, err = execute(t, cfgPath, "avatar", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Zeno")
		assert.Contains(t, out, "0.6")
		assert.Contains(t, out, "a Stoic philosopher")

		out, err = execute(t, cfgPath, "avatar", "show", "zeno")
		require.NoError(t, err)
		assert.Contains(t, out, "Name:        Zeno")
		assert.Contains(t, out, "Web access:  true")
		assert.Contains(t, out, "You are Zeno of Citium.")
	})

	t.Run("should print a definition that imports again", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)

		out, err := execute(t, cfgPath, "avatar", "show", "Zeno", "--yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "name: Zeno")
		assert.Contains(t, out, "primeDirective: You are Zeno of Citium.")
		assert.Contains(t, out, "temperature: 0.6")
	})

	t.Run("should edit and delete an avatar", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)

		out, err := execute(t, cfgPath, "avatar", "edit", "Zeno", "--name", "Zeno of Citium", "--web=false")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Updated Zeno of Citium")

		out, err = execute(t, cfgPath, "avatar", "show", "zeno of citium")
		require.NoError(t, err)
		assert.Contains(t, out, "Web access:  false")

		out, err = execute(t, cfgPath, "avatar", "delete", "Zeno of Citium")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted Zeno of Citium")

		out, err = execute(t, cfgPath, "avatar", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No avatars yet.")
	})

	t.Run("should report unknown avatars", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)

		_, err := execute(t, cfgPath, "avatar", "show", "nobody")
		assert.ErrorContains(t, err, "avatar not found: nobody")
	})

	t.Run("should reject incomplete definitions", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		def := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(def, []byte("name: Nobody\n"), 0644))

		_, err := execute(t, cfgPath, "avatar", "import", def)
		assert.ErrorContains(t, err, "missing description, primeDirective")
	})
}

func TestHistoryAndExportCommands(t *testing.T) {
	t.Run("should handle an empty conversation", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)

		out, err := execute(t, cfgPath, "history", "show", "Zeno")
		require.NoError(t, err)
		assert.Contains(t, out, "No messages yet.")

		out, err = execute(t, cfgPath, "history", "clear", "Zeno")
		require.NoError(t, err)
		assert.Contains(t, out, "Cleared conversation with Zeno")
	})

	t.Run("should export to stdout", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)

		out, err := execute(t, cfgPath, "export", "Zeno", "--output", "-")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "# Chat with Zeno on "), out)
	})

	t.Run("should export to a file", func(t *testing.T) {
		cfgPath := newTestConfig(t)
		importZeno(t, cfgPath)
		path := filepath.Join(t.TempDir(), "zeno.md")

		out, err := execute(t, cfgPath, "export", "Zeno", "-o", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Exported 0 messages to "+path)
		assert.FileExists(t, path)
	})
}

func TestKeyCommands(t *testing.T) {
	cfgPath := newTestConfig(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("COGNILINK_GEMINI_API_KEY", "")

	out, err := execute(t, cfgPath, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No key stored.")

	out, err = execute(t, cfgPath, "key", "set", "secret-1234")
	require.NoError(t, err)
	assert.Contains(t, out, "API key saved.")

	out, err = execute(t, cfgPath, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored key: *******1234")

	out, err = execute(t, cfgPath, "key", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "API key removed.")

	out, err = execute(t, cfgPath, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No key stored.")
}

func TestProvidersCommand(t *testing.T) {
	cfgPath := newTestConfig(t)

	out, err := execute(t, cfgPath, "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "qwen3:latest")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "****5678", mask("12345678"))
}

func TestResolveAvatar(t *testing.T) {
	_, err := resolveAvatar(nil, "")
	assert.ErrorContains(t, err, "no avatars yet")
}
