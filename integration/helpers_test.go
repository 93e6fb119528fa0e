package integration

import (
	"os"

	"github.com/spf13/viper"
)

// integrationEnabled reports whether tests against a live Ollama server should run
func integrationEnabled() bool {
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()
	return viper.GetString("INTEGRATION_TEST") == "true"
}

func ollamaURL() string {
	if url := os.Getenv("OLLAMA_HOST"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

func ollamaModel() string {
	if model := os.Getenv("OLLAMA_DEFAULT_MODEL"); model != "" {
		return model
	}
	return "qwen3:latest"
}
