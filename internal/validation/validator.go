package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Limits applied to generate requests
const (
	MaxQueryLength = 8192
	MaxInputs      = 64
)

// Validator checks requests arriving through the MCP, HTTP and CLI facades
type Validator struct {
	// Patterns for validation
	idPattern   *regexp.Regexp
	namePattern *regexp.Regexp

	// Security patterns to detect injection attempts
	pathTraversalPatterns []*regexp.Regexp
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		// Input ids: alphanumeric with a few separators, 1-128 characters
		idPattern: regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,128}$`),

		// Data types, transformer and component system names (1-64 chars)
		namePattern: regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`),

		// Path traversal patterns
		pathTraversalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\.\.[\\/]`),         // ../ or ..\
			regexp.MustCompile(`%2e%2e|%252e%252e`), // URL encoded traversal
			regexp.MustCompile(`\x00`),              // Null bytes
		},
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ValidateGenerateRequest checks a generate request before any work is done.
// Only problems that affect the whole request are reported here.
func (v *Validator) ValidateGenerateRequest(req *types.GenerateRequest) error {
	if req == nil {
		return invalid("request is empty")
	}
	if err := v.ValidateQuery(req.UserPrompt); err != nil {
		return err
	}
	if len(req.StructuredData) == 0 {
		return invalid("structured_data must contain at least one item")
	}
	if len(req.StructuredData) > MaxInputs {
		return invalid("structured_data has %d items, maximum is %d", len(req.StructuredData), MaxInputs)
	}
	if err := v.ValidateName("component_system", req.ComponentSystem); err != nil {
		return err
	}

	seen := make(map[string]bool, len(req.StructuredData))
	for i, sd := range req.StructuredData {
		if err := v.ValidateInputID(sd.ID); err != nil {
			return fmt.Errorf("structured_data[%d]: %w", i, err)
		}
		if sd.ID != "" {
			if seen[sd.ID] {
				return invalid("structured_data[%d]: duplicate id %q", i, sd.ID)
			}
			seen[sd.ID] = true
		}
	}
	return nil
}

// ValidateInputData checks the content of a single input.
func (v *Validator) ValidateInputData(input *types.InputData) error {
	if strings.TrimSpace(input.Data) == "" {
		return invalid("data cannot be empty")
	}
	if !utf8.ValidString(input.Data) {
		return invalid("data is not valid UTF-8")
	}
	if err := v.ValidateName("type", input.Type); err != nil {
		return err
	}
	return v.ValidateName("transformer", input.TransformerName)
}

// ValidateQuery validates the user prompt
func (v *Validator) ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return invalid("user_prompt cannot be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return invalid("user_prompt too long: maximum %d characters", MaxQueryLength)
	}
	if strings.Contains(query, "\x00") {
		return invalid("user_prompt contains null bytes")
	}
	if v.containsDangerousUnicode(query) {
		return invalid("user_prompt contains invalid characters")
	}
	return nil
}

// ValidateInputID validates an input id. Empty ids are allowed and get generated.
func (v *Validator) ValidateInputID(id string) error {
	if id == "" {
		return nil
	}
	if !v.idPattern.MatchString(id) {
		return invalid("invalid id %q: must contain only alphanumeric characters, dots, colons, underscores, and hyphens", id)
	}
	return nil
}

// ValidateName validates an optional identifier such as a data type.
func (v *Validator) ValidateName(kind, name string) error {
	if name == "" {
		return nil
	}
	if !v.namePattern.MatchString(name) {
		return invalid("invalid %s %q: must contain only alphanumeric characters, dots, underscores, and hyphens", kind, name)
	}
	return nil
}

// ValidateFilePath validates a path given on the command line
func (v *Validator) ValidateFilePath(path string) error {
	if path == "" {
		return invalid("file path cannot be empty")
	}

	// Check for path traversal attempts
	if v.containsPathTraversal(path) {
		return invalid("file path contains invalid characters or patterns")
	}

	// Check for command injection attempts in file paths
	// But allow forward slashes which are valid in paths
	if v.containsFilePathCommandInjection(path) {
		return invalid("file path contains invalid characters")
	}

	// Ensure it's not trying to access parent directories
	if strings.HasPrefix(filepath.Clean(path), "..") {
		return invalid("file path cannot traverse to parent directories")
	}

	return nil
}

// SanitizeString removes control characters except tab, newline and carriage return
func (v *Validator) SanitizeString(input string) string {
	var sanitized strings.Builder
	for _, r := range input {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// TruncateString safely truncates a string to a maximum length
func (v *Validator) TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	// back off to a rune boundary
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// containsDangerousUnicode checks for bidirectional overrides and other format characters
func (v *Validator) containsDangerousUnicode(input string) bool {
	for _, r := range input {
		if r == '\u202e' || r == '\u202d' || r == '\u202c' {
			return true
		}
		// zero width joiners are common in emoji sequences
		if r == '\u200d' {
			continue
		}
		if unicode.Is(unicode.Cf, r) {
			return true
		}
	}
	return false
}

// containsFilePathCommandInjection checks for command injection in file paths
// This is more permissive than general command injection as paths need slashes
func (v *Validator) containsFilePathCommandInjection(path string) bool {
	dangerousPatterns := []string{
		";", "|", "&", "$", "`", "<", ">", "\n", "\r", "\x00", "%00",
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks if input contains path traversal patterns
func (v *Validator) containsPathTraversal(input string) bool {
	lower := strings.ToLower(input)
	for _, pattern := range v.pathTraversalPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}
