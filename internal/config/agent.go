package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentConfig holds the component and prompt overrides consulted during generation.
type AgentConfig struct {
	SelectableComponents []string                   `yaml:"selectable_components,omitempty"`
	Prompt               PromptConfig               `yaml:"prompt,omitempty"`
	Components           map[string]ComponentConfig `yaml:"components,omitempty"`
	DataTypes            map[string]DataTypeConfig  `yaml:"data_types,omitempty"`
}

// PromptConfig overrides sections of the built-in system prompts.
// Empty values fall through to the next layer.
type PromptConfig struct {
	SystemPromptStart              string `yaml:"system_prompt_start,omitempty"`
	ExamplesNormalComponents       string `yaml:"examples_normalcomponents,omitempty"`
	ExamplesCharts                 string `yaml:"examples_charts,omitempty"`
	ChartInstructionsTemplate      string `yaml:"chart_instructions_template,omitempty"`
	TwoStepComponentSelectionStart string `yaml:"twostep_step1_system_prompt_start,omitempty"`
	TwoStepFieldSelectionTemplate  string `yaml:"twostep_step2_template,omitempty"`
}

// ComponentPromptConfig overrides what the model is told about one component.
type ComponentPromptConfig struct {
	Description      string `yaml:"description,omitempty"`
	ChartDescription string `yaml:"chart_description,omitempty"`
	FieldRules       string `yaml:"field_rules,omitempty"`
}

// ComponentConfig is a global per-component override.
type ComponentConfig struct {
	Prompt ComponentPromptConfig `yaml:"prompt,omitempty"`
}

// DataTypeConfig scopes components and prompts to inputs of one data type.
type DataTypeConfig struct {
	Components []DataTypeComponentConfig `yaml:"components,omitempty"`
	Prompt     PromptConfig              `yaml:"prompt,omitempty"`
}

// DataTypeComponentConfig configures one component for a data type.
type DataTypeComponentConfig struct {
	Component     string                `yaml:"component"`
	LLMConfigure  *bool                 `yaml:"llm_configure,omitempty"`
	Prompt        ComponentPromptConfig `yaml:"prompt,omitempty"`
	Configuration *PresetConfiguration  `yaml:"configuration,omitempty"`
}

// PresetConfiguration fixes title and fields when the model does not configure the component.
type PresetConfiguration struct {
	Title  string        `yaml:"title,omitempty"`
	Fields []PresetField `yaml:"fields,omitempty"`
}

// PresetField is a pre-specified field and its data path.
type PresetField struct {
	Name     string `yaml:"name"`
	DataPath string `yaml:"data_path"`
}

// LLMConfigured reports whether the model selects this component's fields.
func (c DataTypeComponentConfig) LLMConfigured() bool {
	return c.LLMConfigure == nil || *c.LLMConfigure
}

// IsZero reports whether no override is set.
func (a AgentConfig) IsZero() bool {
	return len(a.SelectableComponents) == 0 && a.Prompt == (PromptConfig{}) &&
		len(a.Components) == 0 && len(a.DataTypes) == 0
}

// Validate checks the agent configuration for mistakes that can be caught at load time.
func (a AgentConfig) Validate() error {
	for name, dt := range a.DataTypes {
		scope := fmt.Sprintf("agent.data_types[%s]", name)
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: data type name cannot be empty", ErrInvalidConfig)
		}
		for i, c := range dt.Components {
			if strings.TrimSpace(c.Component) == "" {
				return fmt.Errorf("%w: %s.components[%d] has no component name", ErrInvalidConfig, scope, i)
			}
			if c.Configuration != nil {
				for j, f := range c.Configuration.Fields {
					if f.Name == "" || f.DataPath == "" {
						return fmt.Errorf("%w: %s.components[%d].configuration.fields[%d] needs name and data_path",
							ErrInvalidConfig, scope, i, j)
					}
				}
			}
		}
	}
	return nil
}

// LoadAgentConfig reads an agent configuration from a standalone YAML file.
func LoadAgentConfig(path string) (AgentConfig, error) {
	var a AgentConfig
	data, err := os.ReadFile(path) // #nosec G304 - user supplied config path
	if err != nil {
		return a, fmt.Errorf("failed to read agent config: %w", err)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to parse agent config: %w", err)
	}
	if err := a.Validate(); err != nil {
		return a, err
	}
	return a, nil
}
