package prompts

import (
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
)

func newComposer(t *testing.T, agent config.AgentConfig) *Composer {
	t.Helper()
	r, err := config.NewResolver(agent, catalog.New(config.HandBuildEntries(agent)...))
	require.NoError(t, err)
	c, err := NewComposer(r)
	require.NoError(t, err)
	return c
}

func TestOneStepSystemPrompt(t *testing.T) {
	c := newComposer(t, config.AgentConfig{})

	p, err := c.OneStepSystemPrompt("")
	require.NoError(t, err)

	assert.Contains(t, p, "AVAILABLE UI COMPONENTS:")
	assert.Contains(t, p, "* table - ")
	assert.Contains(t, p, "CHART INSTRUCTIONS:")
	assert.Contains(t, p, "* pie (chart-pie)")
	assert.Contains(t, p, "CHART EXAMPLES:")
	assert.Contains(t, p, "EXAMPLES:")
	assert.NotContains(t, p, "{chart_types}")
	assert.NotContains(t, p, "{examples}")
}

func TestOneStepWithoutChartsOmitsChartInstructions(t *testing.T) {
	c := newComposer(t, config.AgentConfig{SelectableComponents: []string{"table", "one-card"}})

	p, err := c.OneStepSystemPrompt("")
	require.NoError(t, err)

	assert.NotContains(t, p, "CHART INSTRUCTIONS:")
	assert.NotContains(t, p, "* image - ")
	assert.Contains(t, p, "* one-card - ")
	assert.NotContains(t, p, "Play the Toy Story trailer")
}

func TestOverridePrecedence(t *testing.T) {
	c := newComposer(t, config.AgentConfig{
		Prompt: config.PromptConfig{
			SystemPromptStart:        "GLOBAL START",
			ExamplesNormalComponents: "GLOBAL EXAMPLES",
		},
		Components: map[string]config.ComponentConfig{
			"table": {Prompt: config.ComponentPromptConfig{Description: "global table description"}},
		},
		DataTypes: map[string]config.DataTypeConfig{
			"movies": {
				Prompt: config.PromptConfig{SystemPromptStart: "MOVIES START"},
				Components: []config.DataTypeComponentConfig{
					{Component: "table", Prompt: config.ComponentPromptConfig{Description: "movies table description"}},
					{Component: "chart-bar"},
				},
			},
		},
	})

	global, err := c.OneStepSystemPrompt("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(global, "GLOBAL START"))
	assert.Contains(t, global, "* table - global table description")
	assert.Contains(t, global, "GLOBAL EXAMPLES")

	movies, err := c.OneStepSystemPrompt("movies")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(movies, "MOVIES START"))
	assert.Contains(t, movies, "* table - movies table description")
	assert.Contains(t, movies, "GLOBAL EXAMPLES")
	assert.NotContains(t, movies, "* one-card - ")
}

func TestStep2SystemPrompt(t *testing.T) {
	c := newComposer(t, config.AgentConfig{
		DataTypes: map[string]config.DataTypeConfig{
			"movies": {
				Prompt: config.PromptConfig{TwoStepFieldSelectionTemplate: "Fields for {component}: {field_rules}"},
				Components: []config.DataTypeComponentConfig{
					{Component: "table", Prompt: config.ComponentPromptConfig{FieldRules: "Always include the title."}},
				},
			},
		},
	})

	p, err := c.Step2SystemPrompt("movies", "table")
	require.NoError(t, err)
	assert.Equal(t, "Fields for table: Always include the title.", p)

	p, err = c.Step2SystemPrompt("", "chart-line")
	require.NoError(t, err)
	assert.Contains(t, p, `"chart-line" UI component`)
	assert.Contains(t, p, "Field shape: line:")
	assert.NotContains(t, p, ComponentPlaceholder)

	step1, err := c.Step1SystemPrompt("movies")
	require.NoError(t, err)
	assert.Contains(t, step1, "* table - ")
	assert.NotContains(t, step1, `"fields"`)
}

func TestNewComposerMissingPlaceholder(t *testing.T) {
	agent := config.AgentConfig{
		Prompt: config.PromptConfig{TwoStepFieldSelectionTemplate: "pick fields"},
	}
	r, err := config.NewResolver(agent, catalog.New())
	require.NoError(t, err)

	_, err = NewComposer(r)
	assert.True(t, errors.Is(err, ErrMissingPlaceholder))
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestPrefill(t *testing.T) {
	c := newComposer(t, config.AgentConfig{})
	require.NoError(t, c.Prefill(KindOneStep))
	require.NoError(t, c.Prefill(KindStep1))
	assert.Equal(t, 2, c.Len())
	assert.Error(t, c.Prefill(KindStep2))
}

func TestUserPrompt(t *testing.T) {
	data, err := jsonvalue.Parse([]byte(`{"b":1,"a":"x&y"}`))
	require.NoError(t, err)

	p, err := UserPrompt("Tell me about Toy Story", data)
	require.NoError(t, err)
	assert.Equal(t, "=== User query ===\nTell me about Toy Story\n\n=== Data ===\n{\"b\":1,\"a\":\"x&y\"}", p)
}

func TestCacheDeterminism(t *testing.T) {
	c := newComposer(t, config.AgentConfig{
		DataTypes: map[string]config.DataTypeConfig{
			"movies": {Components: []config.DataTypeComponentConfig{{Component: "table"}}},
		},
	})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same data type returns the identical cached string", prop.ForAll(
		func(dataType string) bool {
			a, err := c.OneStepSystemPrompt(dataType)
			if err != nil {
				return false
			}
			b, err := c.OneStepSystemPrompt(dataType)
			if err != nil {
				return false
			}
			return a == b && unsafe.StringData(a) == unsafe.StringData(b)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)

	for _, dt := range []string{"", "movies"} {
		a, err := c.OneStepSystemPrompt(dt)
		require.NoError(t, err)
		b, err := c.OneStepSystemPrompt(dt)
		require.NoError(t, err)
		assert.Same(t, unsafe.StringData(a), unsafe.StringData(b))
	}
}
