package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/validation"
)

var checkTimeout time.Duration

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the configuration and the model connection",
	Long: `Verify that:
- The configuration file loads and validates
- The API key reference resolves
- The configured model answers one probe call

Examples:
  ngui-mcp check
  ngui-mcp check --config ./config.yaml --timeout 30s`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "probe timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Fprint(os.Stderr, "1. Loading configuration... ")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗")
		return err
	}
	fmt.Fprintln(os.Stderr, "✓")

	fmt.Fprint(os.Stderr, "2. Resolving component catalog... ")
	resolver, err := newResolver(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗")
		return err
	}
	components, err := componentLister(resolver).Components("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗")
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ (%d components)\n", len(components))

	fmt.Fprintf(os.Stderr, "3. Creating %s client... ", cfg.LLM.Provider)
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	port, err := newModel(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗")
		return err
	}
	fmt.Fprintln(os.Stderr, "✓")

	fmt.Fprint(os.Stderr, "4. Calling the model... ")
	start := time.Now()
	reply, err := port.CallModel(ctx, "You are a connectivity probe. Reply with the single word OK.", "ping")
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗")
		return fmt.Errorf("model call failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ (%.2fs)\n", time.Since(start).Seconds())

	if verbose {
		fmt.Fprintf(os.Stderr, "   Reply: %s\n", validation.NewValidator().TruncateString(reply, 80))
	}
	fmt.Fprintf(os.Stderr, "\n✓ %s model %s is reachable\n", cfg.LLM.Provider, cfg.LLM.Model)
	return nil
}
