// Package inputdata turns raw input strings into parsed JSON-shaped values.
package inputdata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Built-in transformer names
const (
	NameJSON         = "json"
	NameYAML         = "yaml"
	NameCSVComma     = "csv-comma"
	NameCSVSemicolon = "csv-semicolon"
	NameCSVTab       = "csv-tab"
	NameFWCTable     = "fwctable"
)

// DefaultWrappingField is used when a value must be wrapped and the input has no data type.
const DefaultWrappingField = "data"

// Transformer detects and parses one raw input format.
type Transformer interface {
	Name() string
	Detect(input *types.InputData) bool
	Transform(raw string) (any, error)
}

// Registry holds transformers in detection priority order.
type Registry struct {
	mu       sync.RWMutex
	ordered  []Transformer
	byName   map[string]Transformer
	fallback string
}

// NewRegistry creates a registry with the built-in transformers.
func NewRegistry() *Registry {
	r := &Registry{
		byName:   make(map[string]Transformer),
		fallback: NameJSON,
	}
	r.Register(jsonTransformer{})
	r.Register(yamlTransformer{})
	r.Register(newCSVTransformer(NameCSVTab, '\t'))
	r.Register(newCSVTransformer(NameCSVSemicolon, ';'))
	r.Register(newCSVTransformer(NameCSVComma, ','))
	r.Register(fwcTableTransformer{})
	return r
}

// Register adds t after the existing transformers, or replaces the one with the same name in place.
func (r *Registry) Register(t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name()]; exists {
		for i, existing := range r.ordered {
			if existing.Name() == t.Name() {
				r.ordered[i] = t
			}
		}
	} else {
		r.ordered = append(r.ordered, t)
	}
	r.byName[t.Name()] = t
}

// Get returns the transformer registered under name.
func (r *Registry) Get(name string) (Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names lists transformer names in detection order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		names[i] = t.Name()
	}
	return names
}

// Detect picks the transformer for input: the named one when given,
// otherwise the first whose Detect matches, otherwise json.
func (r *Registry) Detect(input *types.InputData) (Transformer, error) {
	if input.TransformerName != "" {
		t, ok := r.Get(input.TransformerName)
		if !ok {
			return nil, types.NewError(types.CodeInputUnparsable, "unknown input data transformer %q", input.TransformerName)
		}
		return t, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.ordered {
		if t.Detect(input) {
			return t, nil
		}
	}
	return r.byName[r.fallback], nil
}

// Apply parses input.Data and fills Parsed and WrappingField.
func (r *Registry) Apply(input *types.InputData) error {
	t, err := r.Detect(input)
	if err != nil {
		return err
	}

	value, err := t.Transform(input.Data)
	if err != nil {
		return types.WrapError(types.CodeInputUnparsable, err, "%s transformer failed", t.Name())
	}
	value = jsonvalue.Normalize(value)

	_, isArray := value.([]any)
	if jsonvalue.IsScalar(value) || (input.Type != "" && isArray) {
		field := WrappingFieldName(input.Type)
		wrapped := jsonvalue.NewObject()
		wrapped.Set(field, value)
		value = wrapped
		input.WrappingField = field
	}
	input.Parsed = value
	return nil
}

// WrappingFieldName derives the top-level key used to wrap a value.
func WrappingFieldName(dataType string) string {
	if dataType == "" {
		return DefaultWrappingField
	}
	return strings.ReplaceAll(dataType, ".", "_")
}

func rejectScalarRoot(v any) error {
	if jsonvalue.IsScalar(v) {
		return fmt.Errorf("root must be an object or array, got %s", jsonvalue.Kind(v))
	}
	return nil
}
