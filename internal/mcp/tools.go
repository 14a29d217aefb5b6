package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/orchestrator"
	"github.com/next-gen-ui/ngui-mcp/internal/validation"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

var (
	errInvalidParams = errors.New("invalid params")
	errUnknownTool   = errors.New("unknown tool")
)

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidParams, fmt.Sprintf(format, args...))
}

// errorCode maps a tool failure to its JSON-RPC error code
func errorCode(err error) int {
	switch {
	case errors.Is(err, errInvalidParams),
		errors.Is(err, errUnknownTool),
		errors.Is(err, validation.ErrInvalidRequest),
		errors.Is(err, orchestrator.ErrDuplicateID):
		return codeInvalidParams
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return codeInternalError
	}
	return codeToolError
}

// toolContent is one block of a tool result
type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolResult is the tools/call result envelope
type toolResult struct {
	Content           []toolContent `json:"content"`
	StructuredContent interface{}   `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

func newToolResult(v interface{}, isError bool) (*toolResult, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &toolResult{
		Content:           []toolContent{{Type: "text", Text: string(text)}},
		StructuredContent: v,
		IsError:           isError,
	}, nil
}

// getAvailableTools returns the list of available MCP tools
func (s *Server) getAvailableTools() []types.MCPTool {
	return []types.MCPTool{
		{
			Name: "generate_ui",
			Description: "Generate UI components for structured data returned by other tools. " +
				"Each structured_data item is rendered independently; failures are reported per item.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_prompt": map[string]interface{}{
						"type":        "string",
						"description": "The user's question the data answers",
					},
					"structured_data": map[string]interface{}{
						"type":        "array",
						"minItems":    1,
						"description": "Backend data items to visualise",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"id": map[string]interface{}{
									"type":        "string",
									"description": "Item id echoed in the results (generated when omitted)",
								},
								"data": map[string]interface{}{
									"type":        "string",
									"description": "Raw data: JSON, YAML, CSV or a fixed-width table",
								},
								"type": map[string]interface{}{
									"type":        "string",
									"description": "Data type name used for configured overrides",
								},
								"transformer": map[string]interface{}{
									"type":        "string",
									"description": "Input transformer name, e.g. json, yaml, csv-comma",
								},
							},
							"required": []string{"data"},
						},
					},
					"component_system": map[string]interface{}{
						"type":        "string",
						"description": "Rendering system, e.g. json or markdown (default: configured system)",
					},
				},
				"required": []string{"user_prompt", "structured_data"},
			},
		},
		{
			Name:        "list_components",
			Description: "List the UI components that can be selected for a data type",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"data_type": map[string]interface{}{
						"type":        "string",
						"description": "Data type name (default: global configuration)",
					},
				},
			},
		},
		{
			Name:        "health_check",
			Description: "Check the health status of the MCP server",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// executeTool executes a tool with the given arguments
func (s *Server) executeTool(ctx context.Context, toolName string, args json.RawMessage) (interface{}, error) {
	s.logger.LogSystem(audit.EventRequest, "Tool called", map[string]interface{}{
		"tool":       toolName,
		"session_id": s.sessionID,
	})

	switch toolName {
	case "generate_ui":
		return s.executeGenerateUI(ctx, args)
	case "list_components":
		return s.executeListComponents(args)
	case "health_check":
		return s.handleHealthCheck(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, toolName)
	}
}

func decodeArgs(args json.RawMessage, dst interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, dst)
}

// executeGenerateUI handles the generate_ui tool
func (s *Server) executeGenerateUI(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req types.GenerateRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, invalidParams("invalid parameters for generate_ui: %v", err)
	}
	if err := s.validator.ValidateGenerateRequest(&req); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, fmt.Errorf("generator not configured")
	}

	result, err := s.generator.GenerateUI(ctx, req.UserPrompt, req.Inputs(), req.ComponentSystem)
	if err != nil {
		return nil, err
	}

	// per-item failures live in result.Errors; the call only fails when nothing rendered
	return newToolResult(result, len(result.Renderings) == 0)
}

// executeListComponents handles the list_components tool
func (s *Server) executeListComponents(args json.RawMessage) (interface{}, error) {
	var params struct {
		DataType string `json:"data_type,omitempty"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, invalidParams("invalid parameters for list_components: %v", err)
	}
	if err := s.validator.ValidateName("data_type", params.DataType); err != nil {
		return nil, err
	}
	if s.components == nil {
		return nil, fmt.Errorf("component catalog not configured")
	}

	components, err := s.components.Components(params.DataType)
	if err != nil {
		return nil, err
	}

	return newToolResult(map[string]interface{}{
		"data_type":  params.DataType,
		"components": components,
		"count":      len(components),
	}, false)
}
