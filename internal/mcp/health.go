package mcp

import (
	"context"
	"time"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Health states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck performs a health check on the MCP server
func (s *Server) HealthCheck(ctx context.Context) (*types.HealthStatus, error) {
	status := &types.HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    []types.HealthCheck{},
	}
	degrade := func() {
		if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	// Check generator
	generatorCheck := types.HealthCheck{Name: "generator", Status: "ok"}
	if s.generator == nil {
		generatorCheck.Status = "failed"
		generatorCheck.Error = "generator not configured"
		status.Status = StatusUnhealthy
	}
	status.Checks = append(status.Checks, generatorCheck)

	// Check the global component configuration resolves
	catalogCheck := types.HealthCheck{Name: "component_catalog", Status: "ok"}
	if s.components == nil {
		catalogCheck.Status = "failed"
		catalogCheck.Error = "component catalog not configured"
		status.Status = StatusUnhealthy
	} else if components, err := s.components.Components(""); err != nil {
		catalogCheck.Status = "failed"
		catalogCheck.Error = err.Error()
		status.Status = StatusUnhealthy
	} else if len(components) == 0 {
		catalogCheck.Status = "warning"
		catalogCheck.Error = "no selectable components"
		degrade()
	}
	status.Checks = append(status.Checks, catalogCheck)

	// Check audit logger
	auditCheck := types.HealthCheck{Name: "audit_logger", Status: "ok"}
	if s.logger == nil {
		auditCheck.Status = "warning"
		auditCheck.Error = "audit logging disabled"
		degrade()
	}
	status.Checks = append(status.Checks, auditCheck)

	// Check rate limiter
	rateCheck := types.HealthCheck{Name: "rate_limiter", Status: "ok"}
	switch {
	case s.rateLimiter == nil || (s.rateLimiter.minute == nil && s.rateLimiter.hour == nil):
		rateCheck.Status = "disabled"
	case !s.rateLimiter.Available():
		rateCheck.Status = "warning"
		rateCheck.Error = "rate limit exceeded"
		degrade()
	}
	status.Checks = append(status.Checks, rateCheck)

	return status, ctx.Err()
}

// handleHealthCheck processes health check requests via MCP
func (s *Server) handleHealthCheck(ctx context.Context) (interface{}, error) {
	health, err := s.HealthCheck(ctx)
	if err != nil {
		return nil, err
	}
	return newToolResult(health, health.Status == StatusUnhealthy)
}
