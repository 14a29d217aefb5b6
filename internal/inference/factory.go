package inference

import (
	"context"
	"fmt"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
)

// New builds the configured adapter wrapped in logging, retry, rate limiting
// and per-attempt timeout. apiKey must already be resolved.
func New(ctx context.Context, cfg config.LLMConfig, apiKey string, logger *audit.Logger) (Port, error) {
	var (
		client Port
		name   string
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(cfg.BaseURL, apiKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		client, name = c, c.Name()
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, apiKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		client, name = c, c.Name()
	default:
		return nil, fmt.Errorf("%w: unsupported llm.provider %q", config.ErrInvalidConfig, cfg.Provider)
	}

	return Wrap(client,
		WithLogging(logger, name),
		Retry(cfg.MaxRetries+1, cfg.RetryDelay),
		RateLimit(cfg.RequestsPerSecond, cfg.Burst),
		Timeout(cfg.Timeout),
	), nil
}
