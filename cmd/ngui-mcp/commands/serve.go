package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/mcp"
)

var (
	serveTimeout  time.Duration
	serveLogLevel string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server to handle requests from AI agents.

The server communicates over stdio (stdin/stdout) using the MCP protocol and
offers the generate_ui, list_components and health_check tools.

Examples:
  # Start server with the default configuration
  ngui-mcp serve

  # Use a specific configuration and a longer tool timeout
  ngui-mcp serve --config ./config.yaml --timeout 10m`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Ensure serve command outputs to stderr (important for MCP protocol)
	serveCmd.SetOut(os.Stderr)
	serveCmd.SetErr(os.Stderr)

	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 5*time.Minute, "tool call timeout")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "audit log level (debug, info, warning, error), overrides logging.level")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	logger, err := newAuditLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := mcp.NewServer(eng.generator, eng.lister, logger, &mcp.ServerOptions{
		Name:            "ngui-mcp",
		Version:         version,
		Timeout:         serveTimeout,
		RateLimit:       cfg.Server.RateLimit.RequestsPerMinute,
		RateLimitHourly: cfg.Server.RateLimit.RequestsPerHour,
	})

	verboseLog("MCP server ready on stdio")
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
