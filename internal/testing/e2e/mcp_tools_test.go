package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/mcp"
	"github.com/next-gen-ui/ngui-mcp/internal/orchestrator"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/internal/render"
	"github.com/next-gen-ui/ngui-mcp/internal/selection"
	"github.com/next-gen-ui/ngui-mcp/internal/testing/mock"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

const configYAML = `
engine:
  selection_strategy: one-step
  component_system: markdown
  concurrency: 2
logging:
  level: info
agent:
  data_types:
    movies:
      components:
        - component: one-card
          llm_configure: false
          configuration:
            title: Movie
            fields:
              - name: Title
                data_path: movie.title
              - name: Year
                data_path: movie.year
        - component: movie-poster
          prompt:
            description: Poster wall for a single movie
`

// TestHarness runs the MCP server over pipes, the way a client process sees it
type TestHarness struct {
	model  *mock.ScriptedModel
	in     *io.PipeWriter
	out    *bufio.Reader
	done   chan error
	nextID int
}

func NewTestHarness(t *testing.T, model *mock.ScriptedModel) *TestHarness {
	t.Helper()
	t.Setenv("NGUI_MCP_CONFIG_DIR", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0600))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	logger := audit.NewWriterLogger(io.Discard, audit.SeverityInfo)
	t.Cleanup(func() { _ = logger.Close() })

	resolver, err := config.NewResolver(cfg.Agent, catalog.New(config.HandBuildEntries(cfg.Agent)...))
	require.NoError(t, err)
	composer, err := prompts.NewComposer(resolver)
	require.NoError(t, err)
	strategy, err := selection.New(cfg.Engine.SelectionStrategy, resolver, composer, logger)
	require.NoError(t, err)

	generator := orchestrator.New(strategy, model,
		orchestrator.WithEngineConfig(cfg.Engine),
		orchestrator.WithRenderRegistry(render.NewRegistry(render.WithLogger(logger))),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(orchestrator.MustNewMetrics(prometheus.NewRegistry())),
	)
	lister := mcp.ComponentListerFunc(func(dataType string) ([]types.ComponentInfo, error) {
		return orchestrator.Components(resolver, dataType)
	})

	server := mcp.NewServer(generator, lister, logger, &mcp.ServerOptions{
		Timeout:   30 * time.Second,
		RateLimit: 1000,
	})

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	h := &TestHarness{
		model: model,
		in:    inW,
		out:   bufio.NewReader(outR),
		done:  make(chan error, 1),
	}
	go func() {
		err := server.Serve(context.Background(), inR, outW)
		_ = outW.Close()
		h.done <- err
	}()

	t.Cleanup(func() {
		_ = inW.Close()
		select {
		case err := <-h.done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop after stdin closed")
		}
	})

	h.SendRequest(t, "initialize", map[string]interface{}{"protocolVersion": mcp.ProtocolVersion})
	return h
}

// SendRequest writes one request line and reads the matching response line
func (h *TestHarness) SendRequest(t *testing.T, method string, params interface{}) types.MCPResponse {
	t.Helper()
	h.nextID++
	data, err := json.Marshal(types.MCPRequest{JSONRPC: "2.0", ID: h.nextID, Method: method, Params: params})
	require.NoError(t, err)

	_, err = h.in.Write(append(data, '\n'))
	require.NoError(t, err)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := h.out.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case r := <-ch:
		require.NoError(t, r.err)
		var resp types.MCPResponse
		require.NoError(t, json.Unmarshal([]byte(r.line), &resp))
		assert.Equal(t, float64(h.nextID), resp.ID)
		return resp
	case <-time.After(10 * time.Second):
		t.Fatalf("no response to %s", method)
		return types.MCPResponse{}
	}
}

// CallTool invokes a tool and decodes its structured content
func (h *TestHarness) CallTool(t *testing.T, name string, args interface{}) (map[string]interface{}, bool) {
	t.Helper()
	resp := h.SendRequest(t, "tools/call", map[string]interface{}{"name": name, "arguments": args})
	require.Nil(t, resp.Error, "tool %s failed: %+v", name, resp.Error)
	return extractToolResult(t, resp)
}

func extractToolResult(t *testing.T, resp types.MCPResponse) (map[string]interface{}, bool) {
	t.Helper()
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "unexpected result %T", resp.Result)
	content := result["content"].([]interface{})
	require.Len(t, content, 1)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(content[0].(map[string]interface{})["text"].(string)), &payload))
	isError, _ := result["isError"].(bool)
	return payload, isError
}

func renderingsByID(t *testing.T, payload map[string]interface{}) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, r := range payload["renderings"].([]interface{}) {
		m := r.(map[string]interface{})
		out[m["id"].(string)] = m["content"].(string)
	}
	return out
}

func TestGenerateUITool(t *testing.T) {
	model := mock.NewScriptedModel().
		When("Toy Story", `{"component":"one-card","title":"Ignored","reason_for_selection":"single movie","confidence_score":0.9}`).
		When("Zootopia", "```json\n{\"component\":\"movie-poster\",\"title\":\"Zootopia\"}\n```").
		When("Finding Nemo", `{"component":"one-card","title":"Finding Nemo","fields":[{"name":"Title","data_path":"movie.title"}]}`)
	h := NewTestHarness(t, model)

	t.Run("ConfiguredDataType", func(t *testing.T) {
		model.Reset()
		payload, isError := h.CallTool(t, "generate_ui", map[string]interface{}{
			"user_prompt": "Show me these movies",
			"structured_data": []map[string]interface{}{
				{"id": "toy-story", "type": "movies", "data": `{"movie":{"title":"Toy Story","year":1995}}`},
				{"id": "zootopia", "type": "movies", "data": `{"movie":{"title":"Zootopia","year":2016}}`},
			},
		})
		require.False(t, isError)
		assert.Empty(t, payload["errors"])
		assert.Equal(t, 2, model.CallCount())

		renderings := renderingsByID(t, payload)
		require.Len(t, renderings, 2)

		// preset title and fields, rendered as markdown
		assert.Equal(t, "### Movie\n\n- **Title**: Toy Story\n- **Year**: 1995\n", renderings["toy-story"])

		// hand-build components have no markdown form and fall back to json
		poster := renderings["zootopia"]
		assert.Contains(t, poster, `"component":"hand-build-component"`)
		assert.Contains(t, poster, `"component_type":"movie-poster"`)
		assert.Contains(t, poster, `"Zootopia"`)

		metadata := payload["components_metadata"].([]interface{})
		require.Len(t, metadata, 2)
		assert.Equal(t, "one-card", metadata[0].(map[string]interface{})["component"])
		assert.Equal(t, "Movie", metadata[0].(map[string]interface{})["title"])
		assert.Equal(t, "90%", metadata[0].(map[string]interface{})["confidence_score"])
		assert.Equal(t, "hand-build-component", metadata[1].(map[string]interface{})["component"])
	})

	t.Run("PartialFailure", func(t *testing.T) {
		model.Reset()
		payload, isError := h.CallTool(t, "generate_ui", map[string]interface{}{
			"user_prompt": "Show me these movies",
			"structured_data": []map[string]interface{}{
				{"id": "good", "type": "movies", "data": `{"movie":{"title":"Toy Story","year":1995}}`},
				{"id": "broken", "type": "movies", "data": `{"movie": [1, 2`},
			},
		})
		assert.False(t, isError, "one rendered input is a success")
		assert.Contains(t, renderingsByID(t, payload), "good")

		errs := payload["errors"].([]interface{})
		require.Len(t, errs, 1)
		entry := errs[0].(map[string]interface{})
		assert.Equal(t, "broken", entry["id"])
		assert.Equal(t, types.StageInput, entry["stage"])
		assert.Equal(t, 1, model.CallCount(), "invalid data never reaches the model")
	})

	t.Run("UnconfiguredDataType", func(t *testing.T) {
		model.Reset()
		payload, isError := h.CallTool(t, "generate_ui", map[string]interface{}{
			"user_prompt":      "Tell me about this movie",
			"component_system": "json",
			"structured_data": []map[string]interface{}{
				{"id": "other", "type": "series", "data": `{"movie":{"title":"Finding Nemo"}}`},
			},
		})
		// series has no configuration, so the global components apply
		assert.False(t, isError)
		assert.True(t, strings.HasPrefix(renderingsByID(t, payload)["other"], `{"component":"one-card",`))
	})
}

func TestListComponentsTool(t *testing.T) {
	h := NewTestHarness(t, mock.NewScriptedModel())

	payload, isError := h.CallTool(t, "list_components", map[string]interface{}{"data_type": "movies"})
	require.False(t, isError)
	assert.Equal(t, float64(2), payload["count"])

	var names []string
	for _, c := range payload["components"].([]interface{}) {
		names = append(names, c.(map[string]interface{})["name"].(string))
	}
	assert.ElementsMatch(t, []string{"one-card", "movie-poster"}, names)

	global, _ := h.CallTool(t, "list_components", map[string]interface{}{})
	assert.Greater(t, global["count"].(float64), float64(2))
}

func TestHealthCheckTool(t *testing.T) {
	h := NewTestHarness(t, mock.NewScriptedModel())

	payload, isError := h.CallTool(t, "health_check", nil)
	assert.False(t, isError)
	assert.Contains(t, []interface{}{mcp.StatusHealthy, mcp.StatusDegraded}, payload["status"])

	resp := h.SendRequest(t, "tools/list", nil)
	require.Nil(t, resp.Error)
	tools := resp.Result.(map[string]interface{})["tools"].([]interface{})
	var names []string
	for _, tool := range tools {
		names = append(names, fmt.Sprint(tool.(map[string]interface{})["name"]))
	}
	assert.ElementsMatch(t, []string{"generate_ui", "list_components", "health_check"}, names)
}
