package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
)

const sampleConfig = `
llm:
  provider: gemini
  model: gemini-2.0-flash
  timeout: 15s
engine:
  selection_strategy: two-step
  concurrency: 2
agent:
  selectable_components: [table, one-card, chart-bar]
  prompt:
    system_prompt_start: "You are a UI designer."
  data_types:
    movies.Movie:
      prompt:
        system_prompt_start: "You pick movie widgets."
      components:
        - component: my-ui-component
          llm_configure: false
          prompt:
            description: "custom movie widget"
        - component: one-card
          llm_configure: false
          configuration:
            title: "Movie"
            fields:
              - name: Title
                data_path: movie.title
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, StrategyTwoStep, cfg.Engine.SelectionStrategy)
	assert.Equal(t, 2, cfg.Engine.Concurrency)
	assert.Equal(t, DefaultMaxInputSize, cfg.Engine.MaxInputSize)

	require.Contains(t, cfg.Agent.DataTypes, "movies.Movie")
	dt := cfg.Agent.DataTypes["movies.Movie"]
	require.Len(t, dt.Components, 2)
	assert.False(t, dt.Components[0].LLMConfigured())
	assert.Equal(t, "movie.title", dt.Components[1].Configuration.Fields[0].DataPath)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NGUI_MCP_LLM_MODEL", "from-env")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
}

func TestLoadRejectsUnnamedComponent(t *testing.T) {
	_, err := Load(writeConfig(t, "agent:\n  data_types:\n    movies:\n      components:\n        - llm_configure: false\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.StrictComponentSystem = true
	cfg.Agent.SelectableComponents = []string{"table"}
	cfg.Agent.DataTypes = map[string]DataTypeConfig{
		"a.B": {Components: []DataTypeComponentConfig{{Component: "image"}}},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Engine.StrictComponentSystem)
	assert.Equal(t, cfg.LLM.Timeout, loaded.LLM.Timeout)
	assert.Equal(t, []string{"table"}, loaded.Agent.SelectableComponents)
	assert.Equal(t, "image", loaded.Agent.DataTypes["a.B"].Components[0].Component)
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Engine, cfg.Engine)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.SelectionStrategy = "three-step"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.LLM.Provider = "unknown"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Agent.DataTypes = map[string]DataTypeConfig{"x": {Components: []DataTypeComponentConfig{{}}}}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestApplyDockerDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyDockerDefaults()
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "stderr", cfg.Logging.File)

	cfg = DefaultConfig()
	cfg.Server.HTTPAddress = "127.0.0.1:9999"
	cfg.ApplyDockerDefaults()
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.HTTPAddress)
}

func newTestResolver(t *testing.T, agent AgentConfig) *Resolver {
	t.Helper()
	r, err := NewResolver(agent, catalog.New(HandBuildEntries(agent)...))
	require.NoError(t, err)
	return r
}
