package selection

import (
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// correctChartType switches a chart selection to the chart type its reason
// names, if that chart component is allowed. It returns the previous
// component when a correction was made.
func correctChartType(md *types.UIComponentMetadata, isAllowed func(string) bool) (string, bool) {
	if !types.IsChartComponent(md.Component) {
		return "", false
	}
	current := strings.TrimPrefix(md.Component, types.ChartComponentPrefix)
	md.ChartType = current

	reasoned := catalog.ChartTypeFromText(md.ReasonForSelection)
	if reasoned == "" || reasoned == current {
		return "", false
	}
	target := types.ChartComponentFor(reasoned)
	if !isAllowed(target) {
		return "", false
	}

	prev := md.Component
	md.Component = target
	md.ChartType = reasoned
	return prev, true
}
