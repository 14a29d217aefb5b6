package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/validation"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeToolError      = -32002
	codeRateLimited    = -32029
)

// DefaultMaxMessageSize bounds a single JSON-RPC line. Inputs are limited
// separately by the engine, so this leaves room for several of them.
const DefaultMaxMessageSize = 16 << 20

// Server implements the MCP protocol server
type Server struct {
	generator  Generator
	components ComponentLister
	validator  *validation.Validator
	logger     *audit.Logger
	options    *ServerOptions

	// Rate limiting
	rateLimiter *RateLimiter

	// Session management
	sessionID string
	startTime time.Time
}

// ServerOptions configuration for the server
type ServerOptions struct {
	Name            string
	Version         string
	Timeout         time.Duration // per tool call
	RateLimit       int           // requests per minute
	RateLimitHourly int           // requests per hour
	MaxMessageSize  int
}

// NewServer creates a new MCP server
func NewServer(generator Generator, components ComponentLister, logger *audit.Logger, options *ServerOptions) *Server {
	if options == nil {
		options = &ServerOptions{
			Timeout:   5 * time.Minute,
			RateLimit: 60,
		}
	}
	if options.Name == "" {
		options.Name = "ngui-mcp"
	}
	if options.Version == "" {
		options.Version = "dev"
	}
	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = DefaultMaxMessageSize
	}

	return &Server{
		generator:   generator,
		components:  components,
		validator:   validation.NewValidator(),
		logger:      logger,
		options:     options,
		rateLimiter: NewRateLimiter(options.RateLimit, options.RateLimitHourly),
		sessionID:   generateSessionID(),
		startTime:   time.Now(),
	}
}

// Start serves MCP over stdin and stdout
func (s *Server) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC messages from r and writes responses to w
// until r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.LogSystem(audit.EventStartup, "MCP server started", map[string]interface{}{
		"session_id": s.sessionID,
		"version":    s.options.Version,
	})
	defer s.logger.LogSystem(audit.EventShutdown, "MCP server stopped", map[string]interface{}{
		"session_id": s.sessionID,
		"duration":   time.Since(s.startTime).Round(time.Second).String(),
	})

	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)
	defer writer.Flush()

	// Main message loop
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := readLine(reader, s.options.MaxMessageSize)
		switch {
		case errors.Is(err, errMessageTooLarge):
			_ = s.sendErrorResponse(writer, nil, codeInvalidRequest, "Message too large", nil)
			continue
		case err == io.EOF && len(line) == 0:
			return nil
		case err != nil && err != io.EOF:
			return fmt.Errorf("failed to read message: %w", err)
		}

		if len(bytes.TrimSpace(line)) > 0 {
			if perr := s.processMessage(ctx, line, writer); perr != nil {
				s.logger.LogError("mcp", perr, map[string]interface{}{
					"session_id": s.sessionID,
					"bytes":      len(line),
				})
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

var errMessageTooLarge = errors.New("message too large")

// readLine reads one line of at most limit bytes. An oversized line is
// consumed and discarded.
func readLine(reader *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLarge := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if !tooLarge {
			line = append(line, chunk...)
			if len(line) > limit {
				tooLarge = true
				line = nil
			}
		}
		if err != nil {
			if tooLarge {
				return nil, errMessageTooLarge
			}
			return line, err
		}
		if !isPrefix {
			break
		}
	}
	if tooLarge {
		return nil, errMessageTooLarge
	}
	return line, nil
}

// processMessage processes a single MCP message
func (s *Server) processMessage(ctx context.Context, data []byte, writer *bufio.Writer) error {
	var request types.MCPRequest
	if err := json.Unmarshal(data, &request); err != nil {
		_ = s.sendErrorResponse(writer, nil, codeParseError, "Parse error", nil)
		return fmt.Errorf("failed to parse request: %w", err)
	}
	if request.JSONRPC != "2.0" || request.Method == "" {
		_ = s.sendErrorResponse(writer, request.ID, codeInvalidRequest, "Invalid Request", nil)
		return fmt.Errorf("invalid request: jsonrpc=%q method=%q", request.JSONRPC, request.Method)
	}

	// Check rate limit
	if !s.rateLimiter.Allow(request.Method) {
		_ = s.sendErrorResponse(writer, request.ID, codeRateLimited, "Rate limit exceeded", nil)
		return fmt.Errorf("rate limit exceeded")
	}

	s.logger.LogSystem(audit.EventRequest, "MCP request received", map[string]interface{}{
		"method":     request.Method,
		"request_id": request.ID,
	})

	// Route to appropriate handler
	switch request.Method {
	case "initialize":
		return s.handleInitialize(request, writer)
	case "initialized", "notifications/initialized":
		return s.handleInitialized(request, writer)
	case "ping":
		return s.sendResponse(writer, request.ID, struct{}{})
	case "tools/list":
		return s.handleToolsList(request, writer)
	case "tools/call":
		return s.handleToolCall(ctx, request, writer)
	default:
		if request.ID == nil {
			// notifications never get a response
			return nil
		}
		_ = s.sendErrorResponse(writer, request.ID, codeMethodNotFound, "Method not found", nil)
		return fmt.Errorf("unknown method: %s", request.Method)
	}
}

// sendResponse sends a JSON-RPC response
func (s *Server) sendResponse(writer *bufio.Writer, id interface{}, result interface{}) error {
	response := types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	return writeFrame(writer, data)
}

// sendErrorResponse sends a JSON-RPC error response
func (s *Server) sendErrorResponse(writer *bufio.Writer, id interface{}, code int, message string, data interface{}) error {
	response := types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &types.MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal error response: %w", err)
	}

	return writeFrame(writer, responseData)
}

func writeFrame(writer *bufio.Writer, data []byte) error {
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return writer.Flush()
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return "mcp-" + audit.NewCorrelationID()
}
