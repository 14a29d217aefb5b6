package types

import "time"

// InputData is one backend payload to be turned into a UI component.
// Parsed and WrappingField are filled by the input-data transformer registry
// before selection runs.
type InputData struct {
	ID              string `json:"id"`
	Data            string `json:"data"`
	Type            string `json:"type,omitempty"`
	TransformerName string `json:"transformer_name,omitempty"`

	Parsed        any    `json:"-"`
	WrappingField string `json:"wrapping_field,omitempty"`
}

// DataField is a named value selected from the input data by a data path.
type DataField struct {
	Name     string `json:"name"`
	DataPath string `json:"data_path"`
	Data     any    `json:"data,omitempty"`
}

// LLM interaction steps
const (
	StepComponentSelection = "component_selection"
	StepFieldSelection     = "field_selection"
)

// LLMInteraction records one prompt/response exchange for observability.
type LLMInteraction struct {
	Step         string `json:"step"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	RawResponse  string `json:"raw_response"`
}

// UIComponentMetadata is the outcome of component selection for one input.
type UIComponentMetadata struct {
	ID                 string           `json:"id"`
	Component          string           `json:"component"`
	ComponentType      string           `json:"component_type,omitempty"`
	Title              string           `json:"title"`
	ReasonForSelection string           `json:"reason_for_selection,omitempty"`
	ConfidenceScore    string           `json:"confidence_score,omitempty"`
	Fields             []DataField      `json:"fields"`
	ChartType          string           `json:"chart_type,omitempty"`
	LLMInteractions    []LLMInteraction `json:"llm_interactions,omitempty"`
}

// Rendering is the final descriptor produced for one input.
type Rendering struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Pipeline stages used when reporting per-input errors
const (
	StageInput          = "input"
	StageSelection      = "selection"
	StageTransformation = "transformation"
	StageRendering      = "rendering"
)

// ErrorEntry reports the failure of a single input.
type ErrorEntry struct {
	ID      string `json:"id"`
	Stage   string `json:"stage"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// GenerateRequest is the wire form of a GenerateUI call shared by the MCP and HTTP facades.
type GenerateRequest struct {
	UserPrompt      string           `json:"user_prompt"`
	StructuredData  []StructuredData `json:"structured_data"`
	ComponentSystem string           `json:"component_system,omitempty"`
}

// StructuredData is one input item on the wire.
type StructuredData struct {
	ID          string `json:"id,omitempty"`
	Data        string `json:"data"`
	Type        string `json:"type,omitempty"`
	Transformer string `json:"transformer,omitempty"`
}

// Inputs converts wire items into InputData values.
func (r *GenerateRequest) Inputs() []InputData {
	inputs := make([]InputData, len(r.StructuredData))
	for i, sd := range r.StructuredData {
		inputs[i] = InputData{
			ID:              sd.ID,
			Data:            sd.Data,
			Type:            sd.Type,
			TransformerName: sd.Transformer,
		}
	}
	return inputs
}

// GenerateResult is the aggregated outcome of a GenerateUI call.
// Every slice is ordered by input position.
type GenerateResult struct {
	Renderings         []Rendering           `json:"renderings"`
	ComponentsMetadata []UIComponentMetadata `json:"components_metadata"`
	ComponentsData     []ComponentData       `json:"components_data"`
	Errors             []ErrorEntry          `json:"errors"`
}

// ComponentInfo describes a selectable component for listings.
type ComponentInfo struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ChartType        string `json:"chart_type,omitempty"`
	Role             string `json:"role"`
	ChartDescription string `json:"chart_description,omitempty"`
}

// MCPRequest represents an MCP protocol request
type MCPRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse represents an MCP protocol response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPTool represents an MCP tool definition
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// HealthStatus represents the health check result
type HealthStatus struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
