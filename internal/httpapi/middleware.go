package httpapi

import (
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
)

// jsonOnly rejects request bodies that are not JSON
func jsonOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch {
			contentType := c.GetHeader("Content-Type")
			if contentType != "" {
				mediaType, _, err := mime.ParseMediaType(contentType)
				if err != nil || mediaType != "application/json" {
					abort(c, http.StatusUnsupportedMediaType, codeUnsupportedMedia, "Content-Type must be application/json")
					return
				}
			}
		}
		c.Next()
	}
}

// limitBody caps the request body size
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// accessLog records one audit event per request
func accessLog(logger *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		result := "OK"
		severity := audit.SeverityInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			result = "ERROR"
			severity = audit.SeverityError
		} else if c.Writer.Status() >= http.StatusBadRequest {
			result = "REJECTED"
			severity = audit.SeverityWarning
		}
		logger.Log(&audit.AuditEvent{
			Type:     audit.EventRequest,
			Severity: severity,
			Source:   "http",
			Action:   c.Request.Method + " " + c.FullPath(),
			Result:   result,
			Details: map[string]interface{}{
				"status":   c.Writer.Status(),
				"duration": time.Since(start).String(),
				"bytes":    c.Writer.Size(),
			},
		})
	}
}
