package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

func TestBuiltins(t *testing.T) {
	c := New()

	assert.Len(t, c.Names(), 11)
	assert.Equal(t, c.Names(), c.DynamicNames())

	for _, name := range []string{"one-card", "set-of-cards", "table", "image", "video-player", "audio-player",
		"chart-bar", "chart-line", "chart-pie", "chart-donut", "chart-mirrored-bar"} {
		e, ok := c.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, RoleDynamic, e.Role)
		assert.NotEmpty(t, e.Description)
		assert.Equal(t, types.IsChartComponent(name), e.IsChart(), name)
	}

	pie, _ := c.Get(types.ComponentChartPie)
	assert.Equal(t, types.ChartPie, pie.ChartType)
}

func TestHandBuildRegistration(t *testing.T) {
	c := New(
		Entry{Name: "my-ui-component", Description: "custom movie widget", ChartType: "bar"},
		Entry{Name: types.ComponentTable, Description: "should not replace the built-in"},
		Entry{Name: ""},
	)

	assert.Len(t, c.Names(), 12)
	assert.True(t, c.IsHandBuild("my-ui-component"))
	assert.False(t, c.IsDynamic("my-ui-component"))
	assert.True(t, c.IsDynamic(types.ComponentTable))
	assert.False(t, c.Has("unknown"))

	e, _ := c.Get("my-ui-component")
	assert.Empty(t, e.ChartType)

	table, _ := c.Get(types.ComponentTable)
	assert.NotEqual(t, "should not replace the built-in", table.Description)
}

func TestSelectAppliesOverrides(t *testing.T) {
	c := New()

	entries, err := c.Select([]string{"table", "chart-bar"}, map[string]Override{
		"table":     {Description: "movies table"},
		"chart-bar": {ChartDescription: "bars per genre"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "movies table", entries[0].Description)
	assert.Equal(t, "bars per genre", entries[1].ChartDescription)
	assert.NotEmpty(t, entries[1].Description)

	assert.Len(t, Charts(entries), 1)

	_, err = c.Select([]string{"carousel"}, nil)
	assert.Error(t, err)
}

func TestInfoSorted(t *testing.T) {
	c := New()
	entries, err := c.Select([]string{"table", "chart-bar", "image"}, nil)
	require.NoError(t, err)

	info := Info(entries)
	assert.Equal(t, "chart-bar", info[0].Name)
	assert.Equal(t, "bar", info[0].ChartType)
	assert.Equal(t, "dynamic", info[0].Role)
	assert.Equal(t, "table", info[2].Name)
}
