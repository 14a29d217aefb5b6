// Package prompts builds the system and user prompts sent to the model.
package prompts

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
)

// ComponentPlaceholder must appear in the two-step field selection template.
const ComponentPlaceholder = "{component}"

// ErrMissingPlaceholder is returned when a step-2 template lacks {component}.
var ErrMissingPlaceholder = fmt.Errorf("%w: field selection template must contain %s",
	config.ErrInvalidConfig, ComponentPlaceholder)

// GlobalKey stands for "no data type" in cache keys.
const GlobalKey = "__GLOBAL__"

// Prompt kinds
const (
	KindOneStep = "one_step"
	KindStep1   = "two_step_component"
	KindStep2   = "two_step_fields"
)

const defaultCacheSize = 1024

// Composer builds system prompts from the defaults, the catalog and the
// resolved overrides, caching every result for its lifetime.
type Composer struct {
	resolver *config.Resolver
	defaults *Defaults
	cache    *lru.Cache[string, string]
}

// NewComposer validates the configured templates and returns a composer.
func NewComposer(resolver *config.Resolver) (*Composer, error) {
	d, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if !strings.Contains(d.Step2Template, ComponentPlaceholder) {
		return nil, ErrMissingPlaceholder
	}

	agent := resolver.Agent()
	templates := []string{agent.Prompt.TwoStepFieldSelectionTemplate}
	for _, dt := range agent.DataTypes {
		templates = append(templates, dt.Prompt.TwoStepFieldSelectionTemplate)
	}
	for _, t := range templates {
		if t != "" && !strings.Contains(t, ComponentPlaceholder) {
			return nil, ErrMissingPlaceholder
		}
	}

	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Composer{resolver: resolver, defaults: d, cache: cache}, nil
}

// CacheKey identifies a cached prompt.
func CacheKey(dataType, kind string) string {
	if dataType == "" {
		dataType = GlobalKey
	}
	return dataType + "|" + kind
}

// cached returns the stored prompt for key or builds and stores it.
// Concurrent builders may race; the first stored value wins.
func (c *Composer) cached(key string, build func() (string, error)) (string, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return "", err
	}
	if prev, ok, _ := c.cache.PeekOrAdd(key, v); ok {
		return prev, nil
	}
	return v, nil
}

// OneStepSystemPrompt returns the full component and field selection prompt.
func (c *Composer) OneStepSystemPrompt(dataType string) (string, error) {
	return c.cached(CacheKey(dataType, KindOneStep), func() (string, error) {
		res := c.resolver.Resolve(dataType)
		entries, err := c.entries(res)
		if err != nil {
			return "", err
		}
		return joinSections(
			first(res.PromptOverrides.SystemPromptStart, c.defaults.SystemPromptStart),
			componentsCatalog(entries),
			c.chartInstructions(res, entries),
			c.examples(res, entries),
		), nil
	})
}

// Step1SystemPrompt returns the two-step component selection prompt.
func (c *Composer) Step1SystemPrompt(dataType string) (string, error) {
	return c.cached(CacheKey(dataType, KindStep1), func() (string, error) {
		res := c.resolver.Resolve(dataType)
		entries, err := c.entries(res)
		if err != nil {
			return "", err
		}
		return joinSections(
			first(res.PromptOverrides.TwoStepComponentSelectionStart, c.defaults.Step1Start),
			componentsCatalog(entries),
		), nil
	})
}

// Step2SystemPrompt returns the two-step field selection prompt for component.
func (c *Composer) Step2SystemPrompt(dataType, component string) (string, error) {
	return c.cached(CacheKey(dataType, KindStep2+":"+component), func() (string, error) {
		res := c.resolver.Resolve(dataType)
		tmpl := first(res.PromptOverrides.TwoStepFieldSelectionTemplate, c.defaults.Step2Template)
		if !strings.Contains(tmpl, ComponentPlaceholder) {
			return "", ErrMissingPlaceholder
		}

		entries, err := c.resolver.Catalog().Select([]string{component}, res.CatalogOverrides())
		if err != nil {
			return "", err
		}
		entry := entries[0]

		rules := res.Settings(component).Prompt.FieldRules
		if entry.IsChart() {
			rules = joinLines(rules, "Field shape: "+c.defaults.FieldsByType[entry.Name], strings.TrimSpace(c.defaults.ChartRules))
		}

		return strings.NewReplacer(
			ComponentPlaceholder, component,
			"{component_description}", describe(entry),
			"{field_rules}", rules,
		).Replace(tmpl), nil
	})
}

// Prefill builds the prompt of kind for the global scope so the first
// request does not pay for it.
func (c *Composer) Prefill(kind string) error {
	var err error
	switch kind {
	case KindOneStep:
		_, err = c.OneStepSystemPrompt("")
	case KindStep1:
		_, err = c.Step1SystemPrompt("")
	default:
		err = fmt.Errorf("cannot prefill prompt kind %q", kind)
	}
	return err
}

// Len returns the number of cached prompts.
func (c *Composer) Len() int {
	return c.cache.Len()
}

func (c *Composer) entries(res *config.Resolved) ([]catalog.Entry, error) {
	entries, err := c.resolver.Catalog().Select(res.AllowedComponents, res.CatalogOverrides())
	if err != nil {
		return nil, fmt.Errorf("data type %q: %w", res.DataType, err)
	}
	if len(entries) == 0 {
		return nil, errors.New("no components are allowed")
	}
	return entries, nil
}

func componentsCatalog(entries []catalog.Entry) string {
	var sb strings.Builder
	sb.WriteString("AVAILABLE UI COMPONENTS:")
	for _, e := range entries {
		sb.WriteString("\n* ")
		sb.WriteString(e.Name)
		sb.WriteString(" - ")
		sb.WriteString(describe(e))
	}
	return sb.String()
}

func describe(e catalog.Entry) string {
	if e.Description != "" {
		return e.Description
	}
	return "custom component rendered from the whole Data"
}

func (c *Composer) chartInstructions(res *config.Resolved, entries []catalog.Entry) string {
	charts := catalog.Charts(entries)
	if len(charts) == 0 {
		return ""
	}

	var types, fields []string
	for _, e := range charts {
		line := fmt.Sprintf("* %s (%s)", e.ChartType, e.Name)
		if e.ChartDescription != "" {
			line += " - " + e.ChartDescription
		}
		types = append(types, line)
		if f := c.defaults.FieldsByType[e.Name]; f != "" {
			fields = append(fields, "* "+f)
		}
	}

	examples := res.PromptOverrides.ExamplesCharts
	if examples == "" {
		examples = examplesSection("CHART EXAMPLES:", charts, c.defaults.ChartExamples)
	}

	tmpl := first(res.PromptOverrides.ChartInstructionsTemplate, c.defaults.ChartInstructions)
	return strings.TrimSpace(strings.NewReplacer(
		"{chart_types}", strings.Join(types, "\n"),
		"{fields_by_type}", strings.Join(fields, "\n"),
		"{chart_rules}", strings.TrimSpace(c.defaults.ChartRules),
		"{examples}", examples,
	).Replace(tmpl))
}

func (c *Composer) examples(res *config.Resolved, entries []catalog.Entry) string {
	if res.PromptOverrides.ExamplesNormalComponents != "" {
		return res.PromptOverrides.ExamplesNormalComponents
	}
	var normal []catalog.Entry
	for _, e := range entries {
		if !e.IsChart() {
			normal = append(normal, e)
		}
	}
	return examplesSection("EXAMPLES:", normal, c.defaults.ComponentExamples)
}

func examplesSection(header string, entries []catalog.Entry, examples map[string]string) string {
	var parts []string
	for _, e := range entries {
		if ex := strings.TrimSpace(examples[e.Name]); ex != "" {
			parts = append(parts, ex)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(parts, "\n\n")
}

// UserPrompt formats the user query and the parsed data.
func UserPrompt(query string, data any) (string, error) {
	payload, err := jsonvalue.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize data: %w", err)
	}
	return "=== User query ===\n" + query + "\n\n=== Data ===\n" + string(payload), nil
}

func joinSections(sections ...string) string {
	var parts []string
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func joinLines(lines ...string) string {
	var parts []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "\n")
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
