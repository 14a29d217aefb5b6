package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/orchestrator"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/internal/selection"
	"github.com/next-gen-ui/ngui-mcp/internal/testing/mock"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type generatorFunc func(ctx context.Context, query string, inputs []types.InputData, system string) (*types.GenerateResult, error)

func (f generatorFunc) GenerateUI(ctx context.Context, query string, inputs []types.InputData, system string) (*types.GenerateResult, error) {
	return f(ctx, query, inputs, system)
}

type listerFunc func(dataType string) ([]types.ComponentInfo, error)

func (f listerFunc) Components(dataType string) ([]types.ComponentInfo, error) { return f(dataType) }

func okGenerator() Generator {
	return generatorFunc(func(_ context.Context, _ string, inputs []types.InputData, _ string) (*types.GenerateResult, error) {
		res := &types.GenerateResult{Errors: []types.ErrorEntry{}}
		for _, in := range inputs {
			res.Renderings = append(res.Renderings, types.Rendering{ID: in.ID, Content: "{}"})
		}
		return res, nil
	})
}

func okLister() ComponentLister {
	return listerFunc(func(string) ([]types.ComponentInfo, error) {
		return []types.ComponentInfo{{Name: "one-card"}, {Name: "table"}}, nil
	})
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

const validBody = `{"user_prompt":"Tell me about Toy Story","structured_data":[{"id":"movie","data":"{\"title\":\"Toy Story\"}"}]}`

func TestGenerate(t *testing.T) {
	s := NewServer(okGenerator(), okLister(), Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", "application/json; charset=utf-8", validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Renderings []types.Rendering  `json:"renderings"`
		Errors     []types.ErrorEntry `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Renderings, 1)
	assert.Equal(t, "movie", result.Renderings[0].ID)
	assert.Empty(t, result.Errors)
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	var called bool
	gen := generatorFunc(func(context.Context, string, []types.InputData, string) (*types.GenerateResult, error) {
		called = true
		return &types.GenerateResult{}, nil
	})
	s := NewServer(gen, okLister(), Config{MaxBodyBytes: 512})

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		code        string
	}{
		{"not json", "application/json", `{"user_prompt":`, http.StatusBadRequest, codeInvalidRequest},
		{"wrong content type", "text/plain", validBody, http.StatusUnsupportedMediaType, codeUnsupportedMedia},
		{"empty prompt", "application/json", `{"structured_data":[{"data":"{}"}]}`, http.StatusBadRequest, codeInvalidRequest},
		{"no data", "application/json", `{"user_prompt":"movies","structured_data":[]}`, http.StatusBadRequest, codeInvalidRequest},
		{"duplicate ids", "application/json",
			`{"user_prompt":"movies","structured_data":[{"id":"a","data":"1"},{"id":"a","data":"2"}]}`,
			http.StatusBadRequest, codeInvalidRequest},
		{"too large", "application/json",
			`{"user_prompt":"movies","structured_data":[{"data":"` + strings.Repeat("x", 1024) + `"}]}`,
			http.StatusRequestEntityTooLarge, codeBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", tt.contentType, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCodeOf(t, rec))
		})
	}
	assert.False(t, called, "rejected requests must not reach the pipeline")
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate id", fmt.Errorf("%w: %q", orchestrator.ErrDuplicateID, "a"), http.StatusBadRequest, codeInvalidRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := generatorFunc(func(context.Context, string, []types.InputData, string) (*types.GenerateResult, error) {
				return nil, tt.err
			})
			s := NewServer(gen, okLister(), Config{})
			rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", "application/json", validBody)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCodeOf(t, rec))
		})
	}

	s := NewServer(nil, okLister(), Config{})
	rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", "application/json", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestComponents(t *testing.T) {
	var gotDataType string
	lister := listerFunc(func(dataType string) ([]types.ComponentInfo, error) {
		gotDataType = dataType
		return []types.ComponentInfo{{Name: "table", Role: "dynamic"}}, nil
	})
	s := NewServer(okGenerator(), lister, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/v1/components?data_type=movies", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "movies", gotDataType)

	var resp ComponentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "movies", resp.DataType)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "table", resp.Components[0].Name)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/components?data_type=bad%20type", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := NewServer(okGenerator(), listerFunc(func(string) ([]types.ComponentInfo, error) {
		return nil, errors.New("unknown component")
	}), Config{})
	rec = do(t, failing.Handler(), http.MethodGet, "/v1/components", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, NewServer(okGenerator(), okLister(), Config{}).Handler(), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health types.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Checks, 2)

	rec = do(t, NewServer(nil, okLister(), Config{}).Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "unhealthy", health.Status)
}

func TestGenerateEndToEndWithMetrics(t *testing.T) {
	agent := config.AgentConfig{}
	r, err := config.NewResolver(agent, catalog.New(config.HandBuildEntries(agent)...))
	require.NoError(t, err)
	c, err := prompts.NewComposer(r)
	require.NoError(t, err)
	strategy, err := selection.New(config.StrategyOneStep, r, c, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	model := mock.NewScriptedModel().When("Toy Story", `{"component":"one-card","title":"Toy Story",
	  "fields":[{"name":"Title","data_path":"movie.title"},{"name":"Year","data_path":"movie.year"}]}`)
	o := orchestrator.New(strategy, model, orchestrator.WithMetrics(orchestrator.MustNewMetrics(reg)))
	lister := listerFunc(func(dataType string) ([]types.ComponentInfo, error) {
		return orchestrator.Components(r, dataType)
	})
	s := NewServer(o, lister, Config{}, WithGatherer(reg))

	body := `{"user_prompt":"Tell me about Toy Story","structured_data":[{"id":"movie","data":"{\"movie\":{\"title\":\"Toy Story\",\"year\":1995}}"}]}`
	rec := do(t, s.Handler(), http.MethodPost, "/v1/generate", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Renderings         []types.Rendering           `json:"renderings"`
		ComponentsMetadata []types.UIComponentMetadata `json:"components_metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Renderings, 1)
	assert.True(t, strings.HasPrefix(result.Renderings[0].Content, `{"component":"one-card",`))
	require.Len(t, result.ComponentsMetadata, 1)
	assert.Equal(t, "one-card", result.ComponentsMetadata[0].Component)

	rec = do(t, s.Handler(), http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ngui_pipeline_inputs_total{status="success"} 1`)
	assert.Contains(t, rec.Body.String(), "ngui_pipeline_stage_duration_seconds")

	rec = do(t, s.Handler(), http.MethodGet, "/v1/components", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var components ComponentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &components))
	assert.NotZero(t, components.Count)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(okGenerator(), okLister(), Config{Address: "127.0.0.1:0", ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewWriterLogger(&buf, audit.SeverityInfo)
	s := NewServer(okGenerator(), okLister(), Config{}, WithLogger(logger))

	do(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	do(t, s.Handler(), http.MethodPost, "/v1/generate", "text/plain", validBody)
	require.NoError(t, logger.Close())

	var actions, results []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var event audit.AuditEvent
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		if event.Type == audit.EventRequest {
			actions = append(actions, event.Action)
			results = append(results, event.Result)
		}
	}
	assert.Equal(t, []string{"GET /healthz", "POST /v1/generate"}, actions)
	assert.Equal(t, []string{"OK", "REJECTED"}, results)
	assert.NotContains(t, buf.String(), "Toy Story")
}
