package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// EventType represents the type of audit event
type EventType string

const (
	// Pipeline events
	EventRequest   EventType = "REQUEST"
	EventSelection EventType = "SELECTION"
	EventTransform EventType = "TRANSFORM"
	EventRender    EventType = "RENDER"
	EventLLMCall   EventType = "LLM_CALL"

	// System events
	EventStartup      EventType = "STARTUP"
	EventShutdown     EventType = "SHUTDOWN"
	EventWarning      EventType = "WARNING"
	EventError        EventType = "ERROR"
	EventConfigChange EventType = "CONFIG_CHANGE"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// ParseSeverity maps a logging.level value to a Severity, defaulting to INFO.
func ParseSeverity(level string) Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return SeverityDebug
	case "warn", "warning":
		return SeverityWarning
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID            string                 `json:"id"`
	Timestamp     time.Time              `json:"timestamp"`
	Type          EventType              `json:"type"`
	Severity      Severity               `json:"severity"`
	Source        string                 `json:"source"`
	InputID       string                 `json:"input_id,omitempty"`
	Action        string                 `json:"action"`
	Result        string                 `json:"result"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Error         string                 `json:"error,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
}

// Logger provides audit logging functionality.
// A nil *Logger discards every event.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	file      *os.File
	filepath  string
	maxSize   int64
	maxAge    time.Duration
	minLevel  Severity
	encoder   *json.Encoder
	eventChan chan *AuditEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Config represents logger configuration
type Config struct {
	FilePath string
	MaxSize  int64         // Maximum file size in bytes
	MaxAge   time.Duration // Maximum age of log files
	Level    Severity
}

// NewLogger creates a new audit logger writing to a file.
// The path "stderr" logs to standard error instead.
func NewLogger(config Config) (*Logger, error) {
	if config.FilePath == "stderr" {
		return NewWriterLogger(os.Stderr, config.Level), nil
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	logger := newLogger(file, config.Level)
	logger.file = file
	logger.filepath = config.FilePath
	logger.maxSize = config.MaxSize
	logger.maxAge = config.MaxAge
	logger.start()
	return logger, nil
}

// NewWriterLogger creates a logger that writes JSON lines to w without rotation.
func NewWriterLogger(w io.Writer, level Severity) *Logger {
	logger := newLogger(w, level)
	logger.start()
	return logger
}

func newLogger(w io.Writer, level Severity) *Logger {
	if _, ok := severityRank[level]; !ok {
		level = SeverityInfo
	}
	return &Logger{
		out:       w,
		minLevel:  level,
		encoder:   json.NewEncoder(w),
		eventChan: make(chan *AuditEvent, 100),
		stopChan:  make(chan struct{}),
	}
}

func (l *Logger) start() {
	l.wg.Add(1)
	go l.worker()

	l.LogSystem(EventStartup, "Audit logger started", nil)
}

// Log writes an audit event
func (l *Logger) Log(event *AuditEvent) {
	if l == nil || event == nil {
		return
	}
	if severityRank[event.Severity] < severityRank[l.minLevel] {
		return
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Details = sanitizeDetails(event.Details)

	select {
	case l.eventChan <- event:
	case <-time.After(time.Second):
		fmt.Fprintf(os.Stderr, "Failed to log audit event: timeout\n")
	}
}

// LogRequest logs the start or end of a GenerateUI call
func (l *Logger) LogRequest(correlationID, action string, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:          EventRequest,
		Severity:      SeverityInfo,
		Source:        "orchestrator",
		Action:        action,
		Result:        "OK",
		Details:       details,
		CorrelationID: correlationID,
	})
}

// LogStage logs the outcome of one pipeline stage for one input
func (l *Logger) LogStage(eventType EventType, inputID, correlationID string, err error, details map[string]interface{}) {
	result := "SUCCESS"
	severity := SeverityInfo
	errText := ""

	if err != nil {
		result = "FAILED"
		severity = SeverityError
		errText = err.Error()
	}

	l.Log(&AuditEvent{
		Type:          eventType,
		Severity:      severity,
		Source:        strings.ToLower(string(eventType)),
		InputID:       inputID,
		Action:        string(eventType),
		Result:        result,
		Details:       details,
		Error:         errText,
		CorrelationID: correlationID,
	})
}

// LogLLMCall logs one inference exchange. Prompt text is never logged, only sizes.
func (l *Logger) LogLLMCall(provider string, elapsed time.Duration, promptBytes, responseBytes int, err error) {
	event := &AuditEvent{
		Type:     EventLLMCall,
		Severity: SeverityDebug,
		Source:   "inference",
		Action:   provider,
		Result:   "SUCCESS",
		Details: map[string]interface{}{
			"duration_ms":    elapsed.Milliseconds(),
			"prompt_bytes":   promptBytes,
			"response_bytes": responseBytes,
		},
	}
	if err != nil {
		event.Severity = SeverityWarning
		event.Result = "FAILED"
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogWarning logs a recoverable anomaly
func (l *Logger) LogWarning(source, message string, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:     EventWarning,
		Severity: SeverityWarning,
		Source:   source,
		Action:   "warning",
		Result:   message,
		Details:  details,
	})
}

// LogError logs an error event
func (l *Logger) LogError(source string, err error, details map[string]interface{}) {
	if err == nil {
		return
	}
	l.Log(&AuditEvent{
		Type:     EventError,
		Severity: SeverityError,
		Source:   source,
		Action:   "error",
		Result:   "ERROR",
		Error:    err.Error(),
		Details:  details,
	})
}

// LogSystem logs a system event
func (l *Logger) LogSystem(eventType EventType, message string, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "system",
		Action:   string(eventType),
		Result:   message,
		Details:  details,
	})
}

// LogWithCorrelation logs an event with a correlation ID
func (l *Logger) LogWithCorrelation(event *AuditEvent, correlationID string) {
	if event == nil {
		return
	}
	event.CorrelationID = correlationID
	l.Log(event)
}

// worker processes audit events in the background
func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case event := <-l.eventChan:
			l.writeEvent(event)

		case <-ticker.C:
			l.performMaintenance()

		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent writes an event to the log output
func (l *Logger) writeEvent(event *AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit event: %v\n", err)
	}

	if l.file != nil && l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > l.maxSize {
			l.rotate()
		}
	}
}

// rotate performs log rotation
func (l *Logger) rotate() {
	_ = l.file.Close()

	timestamp := time.Now().Format("20060102-150405.000000")
	rotatedPath := fmt.Sprintf("%s.%s", l.filepath, timestamp)
	_ = os.Rename(l.filepath, rotatedPath)

	file, err := os.OpenFile(l.filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open new audit log file: %v\n", err)
		return
	}

	l.file = file
	l.out = file
	l.encoder = json.NewEncoder(file)
}

// performMaintenance removes rotated files older than maxAge
func (l *Logger) performMaintenance() {
	if l.file == nil || l.maxAge <= 0 {
		return
	}

	dir := filepath.Dir(l.filepath)
	base := filepath.Base(l.filepath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-l.maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if name == base || !strings.HasPrefix(name, base+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// Close flushes pending events and closes the log file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.LogSystem(EventShutdown, "Audit logger shutting down", nil)

	close(l.stopChan)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Digest identifies raw input data without logging it.
func Digest(data string) string {
	sum := blake2b.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// NewCorrelationID returns a fresh id tying the events of one request together.
func NewCorrelationID() string {
	return uuid.NewString()
}

func generateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

func sanitizeDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	clean := make(map[string]interface{}, len(details))
	for k, v := range details {
		if !isSensitiveKey(k) {
			clean[k] = v
		}
	}
	return clean
}

// isSensitiveKey checks if a key contains sensitive information
func isSensitiveKey(key string) bool {
	sensitiveKeys := []string{
		"password", "secret", "api_key", "apikey", "token",
		"authorization", "credential", "private", "prompt_text",
	}

	keyLower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}

// Query represents an audit log query
type Query struct {
	StartTime     time.Time
	EndTime       time.Time
	EventTypes    []EventType
	Severities    []Severity
	InputIDs      []string
	CorrelationID string
	Limit         int
}

// Search reads back events from a file-backed log
func (l *Logger) Search(query Query) ([]*AuditEvent, error) {
	if l == nil || l.file == nil {
		return nil, fmt.Errorf("audit log is not file backed")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var events []*AuditEvent
	decoder := json.NewDecoder(file)

	for {
		var event AuditEvent
		if err := decoder.Decode(&event); err != nil {
			break
		}

		if !query.StartTime.IsZero() && event.Timestamp.Before(query.StartTime) {
			continue
		}
		if !query.EndTime.IsZero() && event.Timestamp.After(query.EndTime) {
			continue
		}
		if len(query.EventTypes) > 0 && !contains(query.EventTypes, event.Type) {
			continue
		}
		if len(query.Severities) > 0 && !contains(query.Severities, event.Severity) {
			continue
		}
		if len(query.InputIDs) > 0 && !contains(query.InputIDs, event.InputID) {
			continue
		}
		if query.CorrelationID != "" && event.CorrelationID != query.CorrelationID {
			continue
		}

		events = append(events, &event)

		if query.Limit > 0 && len(events) >= query.Limit {
			break
		}
	}

	return events, nil
}

func contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
