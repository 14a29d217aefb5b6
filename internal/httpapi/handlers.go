package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/next-gen-ui/ngui-mcp/internal/orchestrator"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Error codes of the HTTP facade
const (
	codeInvalidRequest   = "invalid_request"
	codeUnsupportedMedia = "unsupported_media_type"
	codeBodyTooLarge     = "body_too_large"
	codeInternal         = "internal"
	codeUnavailable      = "unavailable"
)

// ErrorBody is the JSON body of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// ComponentsResponse is the body of GET /v1/components
type ComponentsResponse struct {
	DataType   string                `json:"data_type,omitempty"`
	Components []types.ComponentInfo `json:"components"`
	Count      int                   `json:"count"`
}

// handleGenerate serves POST /v1/generate
func (s *Server) handleGenerate(c *gin.Context) {
	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "request body too large")
			return
		}
		abort(c, http.StatusBadRequest, codeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validator.ValidateGenerateRequest(&req); err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if s.generator == nil {
		abort(c, http.StatusServiceUnavailable, codeUnavailable, "generator not configured")
		return
	}

	result, err := s.generator.GenerateUI(c.Request.Context(), req.UserPrompt, req.Inputs(), req.ComponentSystem)
	if err != nil {
		if errors.Is(err, orchestrator.ErrDuplicateID) {
			abort(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
		s.logger.LogError("http", err, map[string]interface{}{"route": "/v1/generate"})
		abort(c, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	// per-input failures are part of a successful response
	c.JSON(http.StatusOK, result)
}

// handleComponents serves GET /v1/components
func (s *Server) handleComponents(c *gin.Context) {
	dataType := c.Query("data_type")
	if err := s.validator.ValidateName("data_type", dataType); err != nil {
		abort(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if s.components == nil {
		abort(c, http.StatusServiceUnavailable, codeUnavailable, "component catalog not configured")
		return
	}

	components, err := s.components.Components(dataType)
	if err != nil {
		s.logger.LogError("http", err, map[string]interface{}{"route": "/v1/components", "data_type": dataType})
		abort(c, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	c.JSON(http.StatusOK, ComponentsResponse{
		DataType:   dataType,
		Components: components,
		Count:      len(components),
	})
}

// handleHealth serves GET /healthz
func (s *Server) handleHealth(c *gin.Context) {
	status := types.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	generatorCheck := types.HealthCheck{Name: "generator", Status: "ok"}
	if s.generator == nil {
		generatorCheck.Status = "failed"
		generatorCheck.Error = "generator not configured"
		status.Status = "unhealthy"
	}
	status.Checks = append(status.Checks, generatorCheck)

	catalogCheck := types.HealthCheck{Name: "component_catalog", Status: "ok"}
	if s.components == nil {
		catalogCheck.Status = "failed"
		catalogCheck.Error = "component catalog not configured"
		status.Status = "unhealthy"
	} else if _, err := s.components.Components(""); err != nil {
		catalogCheck.Status = "failed"
		catalogCheck.Error = err.Error()
		status.Status = "unhealthy"
	}
	status.Checks = append(status.Checks, catalogCheck)

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
