package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// ProtocolVersion is answered when the client does not ask for one
const ProtocolVersion = "2024-11-05"

// decodeParams converts the generic params value into dst
func decodeParams(params interface{}, dst interface{}) error {
	if params == nil {
		return nil
	}
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := json.Unmarshal(paramsBytes, dst); err != nil {
		return err
	}
	return nil
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}

	if err := decodeParams(request.Params, &params); err != nil {
		_ = s.sendErrorResponse(writer, request.ID, codeInvalidParams, "Invalid params", err.Error())
		return fmt.Errorf("failed to parse initialize params: %w", err)
	}

	s.logger.LogSystem(audit.EventStartup, "Client connected", map[string]interface{}{
		"client_name":    params.ClientInfo.Name,
		"client_version": params.ClientInfo.Version,
		"protocol":       params.ProtocolVersion,
	})

	version := params.ProtocolVersion
	if version == "" {
		version = ProtocolVersion
	}
	response := map[string]interface{}{
		"protocolVersion": version,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.options.Name,
			"version": s.options.Version,
		},
	}

	return s.sendResponse(writer, request.ID, response)
}

// handleInitialized handles the initialized notification
func (s *Server) handleInitialized(request types.MCPRequest, writer *bufio.Writer) error {
	s.logger.LogSystem(audit.EventStartup, "Client initialization complete", map[string]interface{}{
		"session_id": s.sessionID,
	})
	return nil
}

// handleToolsList handles the tools/list request
func (s *Server) handleToolsList(request types.MCPRequest, writer *bufio.Writer) error {
	response := map[string]interface{}{
		"tools": s.getAvailableTools(),
	}

	return s.sendResponse(writer, request.ID, response)
}

// handleToolCall handles the tools/call request
func (s *Server) handleToolCall(ctx context.Context, request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := decodeParams(request.Params, &params); err != nil {
		_ = s.sendErrorResponse(writer, request.ID, codeInvalidParams, "Invalid params", err.Error())
		return fmt.Errorf("failed to parse tool call params: %w", err)
	}

	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		_ = s.sendErrorResponse(writer, request.ID, errorCode(err), err.Error(), nil)
		return err
	}

	return s.sendResponse(writer, request.ID, result)
}
