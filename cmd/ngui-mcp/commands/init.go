package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/config"
)

var (
	initForce    bool
	initProvider string
	initModel    string
	initAPIKey   string
	initStrategy string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default values.

The API key is stored as a reference, never as a literal: env:NAME,
file:/path, docker:name or keeper:<notation>.

Examples:
  # OpenAI with the key taken from OPENAI_API_KEY
  ngui-mcp init

  # Gemini with the key kept in Keeper Secrets Manager
  ngui-mcp init --provider gemini --model gemini-2.0-flash --api-key "keeper:UID/field/password"`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "llm provider (openai, gemini)")
	initCmd.Flags().StringVar(&initModel, "model", "", "model name")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "api key reference")
	initCmd.Flags().StringVar(&initStrategy, "strategy", "", "selection strategy (one-step, two-step)")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = filepath.Join(config.GetConfigDir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	if initProvider != "" {
		cfg.LLM.Provider = initProvider
		if initProvider == config.ProviderGemini {
			cfg.LLM.BaseURL = ""
			cfg.LLM.Model = "gemini-2.0-flash"
			cfg.LLM.APIKey = "env:GEMINI_API_KEY"
		}
	}
	if initModel != "" {
		cfg.LLM.Model = initModel
	}
	if initAPIKey != "" {
		cfg.LLM.APIKey = initAPIKey
	}
	if initStrategy != "" {
		cfg.Engine.SelectionStrategy = initStrategy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Configuration written to %s\n", path)
	return nil
}
