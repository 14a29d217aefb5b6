package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// ComponentSettings is the merged configuration of one component for one data type.
type ComponentSettings struct {
	LLMConfigure bool
	PresetTitle  string
	PresetFields []types.DataField
	Prompt       ComponentPromptConfig
}

// Resolved is the effective configuration for a data type.
type Resolved struct {
	DataType          string
	AllowedComponents []string
	ComponentConfigs  map[string]ComponentSettings
	PromptOverrides   PromptConfig
}

// IsAllowed reports whether component may be selected.
func (r *Resolved) IsAllowed(component string) bool {
	for _, c := range r.AllowedComponents {
		if c == component {
			return true
		}
	}
	return false
}

// Settings returns the settings for component, defaulting to a model-configured component.
func (r *Resolved) Settings(component string) ComponentSettings {
	if s, ok := r.ComponentConfigs[component]; ok {
		return s
	}
	return ComponentSettings{LLMConfigure: true}
}

// CatalogOverrides converts the resolved component prompts into catalog description overrides.
func (r *Resolved) CatalogOverrides() map[string]catalog.Override {
	out := make(map[string]catalog.Override, len(r.ComponentConfigs))
	for name, s := range r.ComponentConfigs {
		if s.Prompt.Description == "" && s.Prompt.ChartDescription == "" {
			continue
		}
		out[name] = catalog.Override{
			Description:      s.Prompt.Description,
			ChartDescription: s.Prompt.ChartDescription,
		}
	}
	return out
}

// Resolver derives and memoizes the effective configuration per data type.
type Resolver struct {
	agent   AgentConfig
	catalog *catalog.Catalog

	mu    sync.Mutex
	cache map[string]*Resolved
}

// HandBuildEntries lists components named in agent that are not built-in.
// They are registered in the catalog as hand-build components.
func HandBuildEntries(agent AgentConfig) []catalog.Entry {
	builtin := catalog.New()
	seen := make(map[string]bool)
	var out []catalog.Entry

	add := func(name string, prompt ComponentPromptConfig) {
		if name == "" || seen[name] || builtin.Has(name) {
			return
		}
		seen[name] = true
		desc := prompt.Description
		if desc == "" {
			if global, ok := agent.Components[name]; ok {
				desc = global.Prompt.Description
			}
		}
		out = append(out, catalog.Entry{Name: name, Description: desc})
	}

	for _, name := range agent.SelectableComponents {
		add(name, ComponentPromptConfig{})
	}
	for _, dt := range sortedDataTypes(agent.DataTypes) {
		for _, c := range agent.DataTypes[dt].Components {
			add(c.Component, c.Prompt)
		}
	}
	return out
}

// NewResolver checks agent against cat and returns a resolver.
func NewResolver(agent AgentConfig, cat *catalog.Catalog) (*Resolver, error) {
	if err := agent.Validate(); err != nil {
		return nil, err
	}
	for _, name := range agent.SelectableComponents {
		if !cat.Has(name) {
			return nil, fmt.Errorf("%w: agent.selectable_components names unknown component %q", ErrInvalidConfig, name)
		}
	}
	for dtName, dt := range agent.DataTypes {
		for _, c := range dt.Components {
			if !cat.Has(c.Component) {
				return nil, fmt.Errorf("%w: data type %q names unknown component %q", ErrInvalidConfig, dtName, c.Component)
			}
			if !c.LLMConfigured() && cat.IsDynamic(c.Component) &&
				(c.Configuration == nil || len(c.Configuration.Fields) == 0) {
				return nil, fmt.Errorf("%w: data type %q component %q has llm_configure=false but no configuration.fields",
					ErrInvalidConfig, dtName, c.Component)
			}
		}
	}

	return &Resolver{
		agent:   agent,
		catalog: cat,
		cache:   make(map[string]*Resolved),
	}, nil
}

// Catalog returns the catalog the resolver validates against.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Agent returns the agent configuration.
func (r *Resolver) Agent() AgentConfig {
	return r.agent
}

// Resolve returns the effective configuration for dataType ("" for global).
// The returned value is shared and must not be modified.
func (r *Resolver) Resolve(dataType string) *Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.cache[dataType]; ok {
		return res
	}
	res := r.resolve(dataType)
	r.cache[dataType] = res
	return res
}

func (r *Resolver) resolve(dataType string) *Resolved {
	res := &Resolved{
		DataType:         dataType,
		ComponentConfigs: make(map[string]ComponentSettings),
		PromptOverrides:  r.agent.Prompt,
	}

	for name, c := range r.agent.Components {
		res.ComponentConfigs[name] = ComponentSettings{LLMConfigure: true, Prompt: c.Prompt}
	}

	dt, hasDataType := r.agent.DataTypes[dataType]
	if dataType == "" {
		hasDataType = false
	}

	switch {
	case hasDataType && len(dt.Components) > 0:
		for _, c := range dt.Components {
			res.AllowedComponents = appendUnique(res.AllowedComponents, c.Component)
		}
	case len(r.agent.SelectableComponents) > 0:
		res.AllowedComponents = append([]string(nil), r.agent.SelectableComponents...)
	default:
		res.AllowedComponents = r.catalog.DynamicNames()
	}

	if !hasDataType {
		return res
	}

	res.PromptOverrides = mergePrompt(dt.Prompt, r.agent.Prompt)
	for _, c := range dt.Components {
		s := res.Settings(c.Component)
		s.LLMConfigure = c.LLMConfigured()
		s.Prompt = mergeComponentPrompt(c.Prompt, s.Prompt)
		if c.Configuration != nil {
			s.PresetTitle = c.Configuration.Title
			s.PresetFields = make([]types.DataField, len(c.Configuration.Fields))
			for i, f := range c.Configuration.Fields {
				s.PresetFields[i] = types.DataField{Name: f.Name, DataPath: f.DataPath}
			}
		}
		res.ComponentConfigs[c.Component] = s
	}
	return res
}

func mergePrompt(top, base PromptConfig) PromptConfig {
	return PromptConfig{
		SystemPromptStart:              first(top.SystemPromptStart, base.SystemPromptStart),
		ExamplesNormalComponents:       first(top.ExamplesNormalComponents, base.ExamplesNormalComponents),
		ExamplesCharts:                 first(top.ExamplesCharts, base.ExamplesCharts),
		ChartInstructionsTemplate:      first(top.ChartInstructionsTemplate, base.ChartInstructionsTemplate),
		TwoStepComponentSelectionStart: first(top.TwoStepComponentSelectionStart, base.TwoStepComponentSelectionStart),
		TwoStepFieldSelectionTemplate:  first(top.TwoStepFieldSelectionTemplate, base.TwoStepFieldSelectionTemplate),
	}
}

func mergeComponentPrompt(top, base ComponentPromptConfig) ComponentPromptConfig {
	return ComponentPromptConfig{
		Description:      first(top.Description, base.Description),
		ChartDescription: first(top.ChartDescription, base.ChartDescription),
		FieldRules:       first(top.FieldRules, base.FieldRules),
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func sortedDataTypes(m map[string]DataTypeConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
