package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

func movieAgent() AgentConfig {
	return AgentConfig{
		SelectableComponents: []string{"table", "one-card", "chart-bar"},
		Prompt: PromptConfig{
			SystemPromptStart: "global start",
			ExamplesCharts:    "global chart examples",
		},
		Components: map[string]ComponentConfig{
			"table": {Prompt: ComponentPromptConfig{Description: "global table"}},
		},
		DataTypes: map[string]DataTypeConfig{
			"movies": {
				Prompt: PromptConfig{SystemPromptStart: "movies start"},
				Components: []DataTypeComponentConfig{
					{Component: "my-ui-component", LLMConfigure: boolPtr(false)},
					{Component: "table", Prompt: ComponentPromptConfig{ChartDescription: "dt table chart"}},
					{
						Component:    "one-card",
						LLMConfigure: boolPtr(false),
						Configuration: &PresetConfiguration{
							Title:  "Movie",
							Fields: []PresetField{{Name: "Title", DataPath: "movie.title"}},
						},
					},
				},
			},
		},
	}
}

func TestResolveAllowedComponents(t *testing.T) {
	r := newTestResolver(t, movieAgent())

	assert.Equal(t, []string{"my-ui-component", "table", "one-card"}, r.Resolve("movies").AllowedComponents)
	assert.Equal(t, []string{"table", "one-card", "chart-bar"}, r.Resolve("").AllowedComponents)
	assert.Equal(t, []string{"table", "one-card", "chart-bar"}, r.Resolve("unknown").AllowedComponents)

	empty := newTestResolver(t, AgentConfig{})
	assert.Equal(t, catalog.New().DynamicNames(), empty.Resolve("").AllowedComponents)
}

func TestResolvePrecedence(t *testing.T) {
	r := newTestResolver(t, movieAgent())

	movies := r.Resolve("movies")
	assert.Equal(t, "movies start", movies.PromptOverrides.SystemPromptStart)
	assert.Equal(t, "global chart examples", movies.PromptOverrides.ExamplesCharts)

	global := r.Resolve("")
	assert.Equal(t, "global start", global.PromptOverrides.SystemPromptStart)

	table := movies.Settings("table")
	assert.True(t, table.LLMConfigure)
	assert.Equal(t, "global table", table.Prompt.Description)
	assert.Equal(t, "dt table chart", table.Prompt.ChartDescription)

	card := movies.Settings("one-card")
	assert.False(t, card.LLMConfigure)
	assert.Equal(t, "Movie", card.PresetTitle)
	assert.Equal(t, []types.DataField{{Name: "Title", DataPath: "movie.title"}}, card.PresetFields)

	assert.False(t, movies.Settings("my-ui-component").LLMConfigure)
	assert.True(t, movies.Settings("chart-line").LLMConfigure)

	overrides := movies.CatalogOverrides()
	assert.Equal(t, "global table", overrides["table"].Description)
	assert.NotContains(t, overrides, "one-card")
}

func TestResolveIsMemoized(t *testing.T) {
	r := newTestResolver(t, movieAgent())
	assert.Same(t, r.Resolve("movies"), r.Resolve("movies"))
	assert.True(t, r.Resolve("movies").IsAllowed("my-ui-component"))
	assert.False(t, r.Resolve("movies").IsAllowed("chart-bar"))
}

func TestHandBuildEntries(t *testing.T) {
	entries := HandBuildEntries(movieAgent())
	require.Len(t, entries, 1)
	assert.Equal(t, "my-ui-component", entries[0].Name)
}

func TestNewResolverValidation(t *testing.T) {
	cat := catalog.New()

	_, err := NewResolver(AgentConfig{SelectableComponents: []string{"carousel"}}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewResolver(AgentConfig{DataTypes: map[string]DataTypeConfig{
		"x": {Components: []DataTypeComponentConfig{{Component: "table", LLMConfigure: boolPtr(false)}}},
	}}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
