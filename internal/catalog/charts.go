package catalog

import (
	"regexp"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

var chartKeywords = []struct {
	re        *regexp.Regexp
	chartType string
}{
	{regexp.MustCompile(`(?i)\bmirrored\b`), types.ChartMirroredBar},
	{regexp.MustCompile(`(?i)\bdonut\b`), types.ChartDonut},
	{regexp.MustCompile(`(?i)\bpie\b`), types.ChartPie},
	{regexp.MustCompile(`(?i)\bline\b`), types.ChartLine},
	{regexp.MustCompile(`(?i)\bbar\b`), types.ChartBar},
}

// ChartTypeFromText returns the chart type named in text. It returns ""
// when no keyword or more than one chart type is mentioned. "mirrored bar"
// counts as a single mention of mirrored-bar.
func ChartTypeFromText(text string) string {
	found := ""
	for _, kw := range chartKeywords {
		if !kw.re.MatchString(text) {
			continue
		}
		if kw.chartType == types.ChartBar && found == types.ChartMirroredBar {
			continue
		}
		if found != "" {
			return ""
		}
		found = kw.chartType
	}
	return found
}

// IsChartType reports whether t is one of the built-in chart types.
func IsChartType(t string) bool {
	switch t {
	case types.ChartBar, types.ChartLine, types.ChartPie, types.ChartDonut, types.ChartMirroredBar:
		return true
	}
	return false
}
