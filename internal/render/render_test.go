package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

func TestRenderJSONIsCanonical(t *testing.T) {
	img := &types.Image{
		Base: types.Base{Component: types.ComponentImage, ID: "1", Title: "Poster"},
		Src:  "https://img.example.com/p.png?a=1&b=2",
	}
	r, err := NewRegistry().Render(SystemJSON, img)
	require.NoError(t, err)
	assert.Equal(t, "1", r.ID)
	assert.Equal(t, `{"component":"image","id":"1","src":"https://img.example.com/p.png?a=1&b=2","title":"Poster"}`, r.Content)
}

func TestRenderJSONRoundTrip(t *testing.T) {
	two := 2.0
	variants := []types.ComponentData{
		&types.OneCard{
			Base:   types.Base{Component: types.ComponentOneCard, ID: "a", Title: "Toy Story"},
			Fields: []types.SimpleField{{Name: "Title", DataPath: "$..movie.title", Data: []any{"Toy Story"}}},
		},
		&types.Chart{
			Base:      types.Base{Component: types.ComponentChartPie, ID: "b", Title: "Genres"},
			ChartType: types.ChartPie,
			Data:      []types.Series{{Name: "Genres", Data: []types.DataPoint{{X: "Drama", Y: &two}, {X: "gap"}}}},
		},
		&types.VideoPlayer{
			Base:      types.Base{Component: types.ComponentVideoPlayer, ID: "c"},
			Src:       "https://www.youtube.com/embed/abcdefg",
			Thumbnail: "https://img.youtube.com/vi/abcdefg/maxresdefault.jpg",
		},
	}

	for _, v := range variants {
		t.Run(v.ComponentName(), func(t *testing.T) {
			content, err := RenderJSON(v)
			require.NoError(t, err)
			back, err := types.UnmarshalComponentData([]byte(content))
			require.NoError(t, err)
			assert.Equal(t, v, back)
		})
	}
}

func TestRenderJSONHandBuild(t *testing.T) {
	data, err := jsonvalue.Parse([]byte(`{"movie":{"title":"Toy Story","year":1995}}`))
	require.NoError(t, err)
	hb := &types.HandBuildComponent{
		Base:          types.Base{Component: types.ComponentHandBuild, ID: "1"},
		ComponentType: "my-ui-component",
		Data:          data,
	}

	content, err := RenderJSON(hb)
	require.NoError(t, err)
	assert.Equal(t, `{"component":"hand-build-component","component_type":"my-ui-component","data":{"movie":{"title":"Toy Story","year":1995}},"id":"1"}`, content)
}

func TestRenderJSONKeepsLargeIntegers(t *testing.T) {
	data, err := jsonvalue.Parse([]byte(`{"order":{"id":9007199254740993,"lines":[-9007199254740995,3]},"price":1.50}`))
	require.NoError(t, err)
	hb := &types.HandBuildComponent{
		Base:          types.Base{Component: types.ComponentHandBuild, ID: "1"},
		ComponentType: "order-view",
		Data:          data,
	}

	content, err := RenderJSON(hb)
	require.NoError(t, err)
	assert.Equal(t, `{"component":"hand-build-component","component_type":"order-view","data":{"order":{"id":9007199254740993,"lines":[-9007199254740995,3]},"price":1.5},"id":"1"}`, content)

	reparsed, err := jsonvalue.Parse([]byte(content))
	require.NoError(t, err)
	obj := reparsed.(*jsonvalue.Object)
	got, _ := obj.Get("data")
	assert.Equal(t, data, got)
}

func TestMarkdownTable(t *testing.T) {
	table := &types.Table{
		Base:    types.Base{Component: types.ComponentTable, ID: "1", Title: "Movies"},
		Columns: []string{"Title", "Year"},
		Rows:    [][]any{{"Toy Story", int64(1995)}, {"A|B", nil}},
	}
	r, err := NewRegistry().Render(SystemMarkdown, table)
	require.NoError(t, err)
	assert.Equal(t, "### Movies\n\n| Title | Year |\n| --- | --- |\n| Toy Story | 1995 |\n| A\\|B |  |\n", r.Content)
}

func TestMarkdownOneCard(t *testing.T) {
	card := &types.OneCard{
		Base:   types.Base{Component: types.ComponentOneCard, ID: "1", Title: "Toy Story"},
		Image:  "https://img.example.com/p.png",
		Fields: []types.SimpleField{{Name: "Genres", Data: []any{"Animation", "Comedy"}}},
	}
	content, err := markdownOneCard(card)
	require.NoError(t, err)
	assert.Equal(t, "### Toy Story\n\n![Toy Story](https://img.example.com/p.png)\n\n- **Genres**: Animation, Comedy\n", content)
}

func TestMarkdownSetOfCards(t *testing.T) {
	cards := &types.SetOfCards{
		Base:          types.Base{Component: types.ComponentSetOfCards, ID: "1"},
		SubtitleField: &types.ArrayField{Name: "Name", Data: []any{"A", nil}},
		Fields:        []types.ArrayField{{Name: "Year", Data: []any{int64(1999), int64(2019)}}},
	}
	content, err := markdownSetOfCards(cards)
	require.NoError(t, err)
	assert.Equal(t, "#### A\n\n- **Year**: 1999\n\n#### Item 2\n\n- **Year**: 2019\n", content)
}

func TestMarkdownFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewWriterLogger(&buf, audit.SeverityInfo)
	r := NewRegistry(WithLogger(logger))

	audio := &types.AudioPlayer{Base: types.Base{Component: types.ComponentAudioPlayer, ID: "1"}, Src: "https://x.example.com/a.mp3"}
	out, err := r.Render(SystemMarkdown, audio)
	require.NoError(t, err)
	assert.Equal(t, `{"component":"audio-player","id":"1","src":"https://x.example.com/a.mp3"}`, out.Content)

	require.NoError(t, logger.Close())
	assert.Contains(t, buf.String(), "component not supported, using json")
}

func TestUnknownSystem(t *testing.T) {
	img := &types.Image{Base: types.Base{Component: types.ComponentImage, ID: "1"}, Src: "https://x.example.com/a.png"}

	out, err := NewRegistry().Render("patternfly", img)
	require.NoError(t, err)
	assert.Equal(t, `{"component":"image","id":"1","src":"https://x.example.com/a.png"}`, out.Content)

	_, err = NewRegistry(WithStrict(true)).Render("patternfly", img)
	require.Error(t, err)
	assert.Equal(t, types.CodeRenderUnknownSystem, types.CodeOf(err))
}

func TestRegisterSystem(t *testing.T) {
	r := NewRegistry()
	r.Register("upper", factoryFunc(func(component string) (Strategy, error) {
		return StrategyFunc(func(d types.ComponentData) (string, error) {
			return "<" + d.ComponentName() + ">", nil
		}), nil
	}))
	assert.Equal(t, []string{"json", "markdown", "upper"}, r.Systems())
	assert.True(t, r.Has("upper"))

	out, err := r.Render("upper", &types.Image{Base: types.Base{Component: types.ComponentImage, ID: "7"}})
	require.NoError(t, err)
	assert.Equal(t, types.Rendering{ID: "7", Content: "<image>"}, out)
}

func TestRenderFailureIsInternal(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", factoryFunc(func(string) (Strategy, error) {
		return StrategyFunc(func(types.ComponentData) (string, error) {
			return "", errors.New("boom")
		}), nil
	}))
	_, err := r.Render("broken", &types.Image{Base: types.Base{Component: types.ComponentImage}})
	assert.Equal(t, types.CodeInternal, types.CodeOf(err))
}

type factoryFunc func(component string) (Strategy, error)

func (f factoryFunc) GetRenderStrategy(component string) (Strategy, error) { return f(component) }
