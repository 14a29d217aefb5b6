package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/config"
)

var (
	version    = "dev"
	configFile string
	agentFile  string
	envFile    string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ngui-mcp",
	Short: "Next Gen UI generation server",
	Long: `Generates UI component descriptors for structured data using an LLM.

For every input the model picks a component (table, card, chart, media player,
or a hand-built component) and the fields to show. The data is then
transformed and rendered into the requested component system.

The engine is exposed as an MCP server over stdio, as an HTTP API,
and through one-shot commands.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// stdout belongs to MCP frames and command results
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ~/.ngui-mcp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&agentFile, "agent-config", "", "standalone agent configuration YAML (replaces the agent section)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// verboseLog prints a message only if verbose mode is enabled
func verboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// loadEnv reads envFile into the process environment. Variables that are
// already set win, and a missing file is not an error.
func loadEnv() error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	verboseLog("Loaded environment from %s", envFile)
	return nil
}

// loadConfig resolves the configuration used by every command: the dotenv
// file first, then the YAML file (created with defaults when missing), then
// the standalone agent file and container defaults.
func loadConfig() (*config.Config, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadOrCreate(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	verboseLog("Configuration loaded (provider=%s, strategy=%s)", cfg.LLM.Provider, cfg.Engine.SelectionStrategy)

	if agentFile != "" {
		agent, err := config.LoadAgentConfig(agentFile)
		if err != nil {
			return nil, err
		}
		cfg.Agent = agent
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		verboseLog("Agent configuration loaded from %s", agentFile)
	}

	if config.IsRunningInDocker() {
		cfg.ApplyDockerDefaults()
		verboseLog("Running in a container, HTTP address %s", cfg.Server.HTTPAddress)
	}
	return cfg, nil
}
