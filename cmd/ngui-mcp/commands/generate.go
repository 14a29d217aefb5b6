package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/validation"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

var (
	generateQuery  string
	generateInputs []string
	generateSystem string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate UI components for data files",
	Long: `Run the generation pipeline once and print the JSON result to stdout.

Each --input names a data file, optionally followed by :data_type to select
the agent configuration for that data type. The input id is the file name
without its extension.

Examples:
  # One input, default component system
  ngui-mcp generate --query "Tell me about Toy Story" --input movie.json:movie-detail

  # Several inputs rendered as markdown
  ngui-mcp generate --query "Compare the revenue" --input q1.json --input q2.yaml --system markdown`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateQuery, "query", "q", "", "user prompt (required)")
	generateCmd.Flags().StringArrayVarP(&generateInputs, "input", "i", nil, "data file, optionally suffixed with :data_type (repeatable)")
	generateCmd.Flags().StringVar(&generateSystem, "system", "", "component system, overrides engine.component_system")
	_ = generateCmd.MarkFlagRequired("query")
	_ = generateCmd.MarkFlagRequired("input")
}

// parseInputArg splits "path[:data_type]". A suffix holding a path
// separator belongs to the path.
func parseInputArg(arg string) (path, dataType string) {
	if i := strings.LastIndex(arg, ":"); i > 0 && !strings.ContainsAny(arg[i+1:], `/\`) {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// buildRequest reads the input files into a generate request
func buildRequest(v *validation.Validator, query string, args []string, system string) (*types.GenerateRequest, error) {
	req := &types.GenerateRequest{UserPrompt: query, ComponentSystem: system}
	for _, arg := range args {
		path, dataType := parseInputArg(arg)
		if err := v.ValidateFilePath(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path) // #nosec G304 - validated user supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		base := filepath.Base(path)
		req.StructuredData = append(req.StructuredData, types.StructuredData{
			ID:   strings.TrimSuffix(base, filepath.Ext(base)),
			Data: string(data),
			Type: dataType,
		})
	}
	if err := v.ValidateGenerateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(validation.NewValidator(), generateQuery, generateInputs, generateSystem)
	if err != nil {
		return err
	}

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

	result, err := eng.generator.GenerateUI(ctx, req.UserPrompt, req.Inputs(), req.ComponentSystem)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	for _, e := range result.Errors {
		verboseLog("Input %s failed at %s: %s (%s)", e.ID, e.Stage, e.Message, e.Code)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if len(result.Renderings) == 0 {
		return fmt.Errorf("none of the %d inputs could be rendered", len(req.StructuredData))
	}
	return nil
}
