package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/inference"
	"github.com/next-gen-ui/ngui-mcp/internal/mcp"
	"github.com/next-gen-ui/ngui-mcp/internal/orchestrator"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/internal/render"
	"github.com/next-gen-ui/ngui-mcp/internal/secrets"
	"github.com/next-gen-ui/ngui-mcp/internal/selection"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// engine is the wired generation pipeline shared by the commands
type engine struct {
	resolver  *config.Resolver
	generator *orchestrator.Orchestrator
	lister    mcp.ComponentListerFunc
}

// newAuditLogger opens the event log configured in the logging section
func newAuditLogger(cfg *config.Config) (*audit.Logger, error) {
	path := cfg.Logging.File
	if path == "" {
		path = config.DefaultLogFile()
	}
	logger, err := audit.NewLogger(audit.Config{
		FilePath: path,
		MaxSize:  100 * 1024 * 1024,   // 100MB in bytes
		MaxAge:   30 * 24 * time.Hour, // 30 days
		Level:    audit.ParseSeverity(cfg.Logging.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}
	verboseLog("Audit log: %s", path)
	return logger, nil
}

// newResolver builds the component catalog and the per data type resolver
func newResolver(cfg *config.Config) (*config.Resolver, error) {
	cat := catalog.New(config.HandBuildEntries(cfg.Agent)...)
	resolver, err := config.NewResolver(cfg.Agent, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent configuration: %w", err)
	}
	return resolver, nil
}

// newModel resolves the API key reference and creates the inference port
func newModel(ctx context.Context, cfg *config.Config, logger *audit.Logger) (inference.Port, error) {
	apiKey, err := secrets.NewResolver().Resolve(cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve llm.api_key: %w", err)
	}
	port, err := inference.New(ctx, cfg.LLM, apiKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}
	verboseLog("Using %s model %s", cfg.LLM.Provider, cfg.LLM.Model)
	return port, nil
}

// newEngine wires the selection strategy, the model and the orchestrator
func newEngine(ctx context.Context, cfg *config.Config, logger *audit.Logger) (*engine, error) {
	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}
	composer, err := prompts.NewComposer(resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt composer: %w", err)
	}
	strategy, err := selection.New(cfg.Engine.SelectionStrategy, resolver, composer, logger)
	if err != nil {
		return nil, err
	}
	port, err := newModel(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	renderers := render.NewRegistry(
		render.WithStrict(cfg.Engine.StrictComponentSystem),
		render.WithLogger(logger),
	)
	generator := orchestrator.New(strategy, port,
		orchestrator.WithEngineConfig(cfg.Engine),
		orchestrator.WithRenderRegistry(renderers),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(orchestrator.DefaultMetrics()),
	)

	return &engine{
		resolver:  resolver,
		generator: generator,
		lister:    componentLister(resolver),
	}, nil
}

func componentLister(resolver *config.Resolver) mcp.ComponentListerFunc {
	return func(dataType string) ([]types.ComponentInfo, error) {
		return orchestrator.Components(resolver, dataType)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			verboseLog("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
