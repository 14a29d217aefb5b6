package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/httpapi"
)

var (
	httpAddress string
	httpDebug   bool
)

// httpCmd represents the http command
var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Serve the generation pipeline over HTTP.

Routes:
  POST /v1/generate     generate UI components for structured data
  GET  /v1/components   list the selectable components (?data_type=)
  GET  /healthz         health status
  GET  /metrics         Prometheus metrics

Examples:
  # Listen on the configured address (server.http_address)
  ngui-mcp http

  # Listen on all interfaces
  ngui-mcp http --address 0.0.0.0:8080`,
	RunE: runHTTP,
}

func init() {
	rootCmd.AddCommand(httpCmd)

	httpCmd.Flags().StringVar(&httpAddress, "address", "", "listen address, overrides server.http_address")
	httpCmd.Flags().BoolVar(&httpDebug, "debug", false, "run the router in debug mode")
}

func runHTTP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	serverCfg := httpapi.DefaultConfig()
	serverCfg.Debug = httpDebug || verbose
	if cfg.Server.HTTPAddress != "" {
		serverCfg.Address = cfg.Server.HTTPAddress
	}
	if httpAddress != "" {
		serverCfg.Address = httpAddress
	}

	server := httpapi.NewServer(eng.generator, eng.lister, serverCfg,
		httpapi.WithLogger(logger),
		httpapi.WithGatherer(prometheus.DefaultGatherer),
	)

	verboseLog("HTTP server listening on %s", serverCfg.Address)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
