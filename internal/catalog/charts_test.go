package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

func TestChartTypeFromText(t *testing.T) {
	tests := map[string]string{
		"A pie chart shows the share":          types.ChartPie,
		"Donut works for proportions":          types.ChartDonut,
		"mirrored bar compares two sides":      types.ChartMirroredBar,
		"trend over time, so a line":           types.ChartLine,
		"Bar chart compares categories":        types.ChartBar,
		"a line or a bar would both work":      "",
		"pipeline throughput":                  "",
		"Comparing values across categories":   "",
		"Sidebar and baseline are not matches": "",
	}
	for text, want := range tests {
		assert.Equal(t, want, ChartTypeFromText(text), text)
	}
}

func TestIsChartType(t *testing.T) {
	for _, ct := range []string{"bar", "line", "pie", "donut", "mirrored-bar"} {
		assert.True(t, IsChartType(ct), ct)
	}
	assert.False(t, IsChartType("radar"))
	assert.False(t, IsChartType(""))
}
