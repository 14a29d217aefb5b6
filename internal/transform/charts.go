package transform

import (
	"regexp"
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/jsonpath"
	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// chartHints maps wording that implies a chart type without naming it.
var chartHints = []struct {
	re        *regexp.Regexp
	chartType string
}{
	{regexp.MustCompile(`(?i)\b(distribution|proportions?|share|percentages?|breakdown)\b`), types.ChartPie},
	{regexp.MustCompile(`(?i)\b(trends?|over time|timeline|growth)\b`), types.ChartLine},
}

// inferChartType picks the chart type for md. An explicit chart type wins,
// then keywords in the title and reason, then the component name.
func inferChartType(md *types.UIComponentMetadata) (string, bool) {
	if md.ChartType != "" {
		return md.ChartType, catalog.IsChartType(md.ChartType)
	}
	for _, text := range []string{md.Title, md.ReasonForSelection} {
		if t := catalog.ChartTypeFromText(text); t != "" {
			return t, true
		}
		for _, h := range chartHints {
			if h.re.MatchString(text) {
				return h.chartType, true
			}
		}
	}
	if t := strings.TrimPrefix(md.Component, types.ChartComponentPrefix); catalog.IsChartType(t) {
		return t, true
	}
	return types.ChartBar, true
}

type chartTransformer struct{}

func (chartTransformer) build(c *Context) types.ComponentData {
	chartType, ok := inferChartType(c.Metadata)
	if !ok {
		out := &types.Chart{Base: c.base(c.Metadata.Component), ChartType: chartType, Data: []types.Series{}}
		c.Fail(types.CodeTransformInvalidChart, "unknown chart type %q", chartType)
		return out
	}

	out := &types.Chart{
		Base:      c.base(types.ChartComponentFor(chartType)),
		ChartType: chartType,
		Data:      []types.Series{},
	}

	switch {
	case len(c.Fields) == 0:
	case len(c.Fields) == 1 && (chartType == types.ChartPie || chartType == types.ChartDonut):
		out.Data = append(out.Data, frequencies(c.Fields[0]))
	case chartType == types.ChartLine && len(c.Fields) == 3 && c.groupedBySeries():
		out.XAxisLabel = c.Fields[1].Name
		out.Data = c.seriesPerContainer()
	default:
		out.XAxisLabel = c.Fields[0].Name
		out.Data = c.seriesPerField()
		if !hasNumericY(out.Data) && hasPoints(out.Data) {
			c.Fail(types.CodeTransformInvalidChart, "no numeric values in fields %s", fieldNames(c.Fields[1:]))
			return out
		}
	}

	if !hasPoints(out.Data) {
		c.Fail(types.CodeTransformNoData, "chart has no data points")
	}
	return out
}

// frequencies counts the scalar values of f in order of first appearance.
func frequencies(f Field) types.Series {
	s := types.Series{Name: f.Name, Data: []types.DataPoint{}}
	index := map[string]int{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case nil:
		case []any:
			for _, e := range t {
				walk(e)
			}
		default:
			if !jsonvalue.IsScalar(t) {
				return
			}
			key := jsonvalue.String(t)
			i, seen := index[key]
			if !seen {
				i = len(s.Data)
				index[key] = i
				zero := 0.0
				s.Data = append(s.Data, types.DataPoint{X: key, Y: &zero})
			}
			*s.Data[i].Y++
		}
	}
	for _, v := range f.Data {
		walk(v)
	}
	return s
}

// seriesPerField uses the first field as the x axis and every other field
// as one series.
func (c *Context) seriesPerField() []types.Series {
	x := c.Fields[0]
	out := make([]types.Series, 0, len(c.Fields)-1)
	for _, f := range c.Fields[1:] {
		out = append(out, points(f.Name, x.Data, f.Data))
	}
	return out
}

// groupedBySeries reports whether the first field identifies a series whose
// points live in a nested array of the same item.
func (c *Context) groupedBySeries() bool {
	idOuter, _, ok := jsonpath.SplitWildcard(c.Fields[0].DataPath)
	if !ok {
		return false
	}
	yOuter, _, ok := jsonpath.SplitWildcard(c.Fields[2].DataPath)
	return ok && yOuter != idOuter
}

// seriesPerContainer emits one series per element of the array holding the
// series ids. Points are read from inside that element only.
func (c *Context) seriesPerContainer() []types.Series {
	outer, rest, _ := jsonpath.SplitWildcard(c.Fields[0].DataPath)
	var containers []any
	for _, v := range jsonpath.Evaluate(outer, c.root) {
		if arr, ok := v.([]any); ok {
			containers = append(containers, arr...)
		}
	}

	out := []types.Series{}
	byName := map[string]int{}
	for _, item := range containers {
		id := collapse(jsonpath.EvaluateRelative(rest, item))
		if id == nil {
			continue
		}
		name := jsonvalue.String(id)
		s := points(name, itemValues(c.Fields[1].DataPath, item), itemValues(c.Fields[2].DataPath, item))
		if i, ok := byName[name]; ok {
			out[i].Data = append(out[i].Data, s.Data...)
			continue
		}
		byName[name] = len(out)
		out = append(out, s)
	}
	return out
}

// points pairs xs with ys by index. Items without an x value are dropped;
// non-numeric y values become gaps.
func points(name string, xs, ys []any) types.Series {
	s := types.Series{Name: name, Data: []types.DataPoint{}}
	for i, x := range xs {
		if x == nil {
			continue
		}
		p := types.DataPoint{X: jsonvalue.String(x)}
		if i < len(ys) {
			if y, ok := jsonvalue.Float(ys[i]); ok {
				p.Y = &y
			}
		}
		s.Data = append(s.Data, p)
	}
	return s
}

func hasPoints(series []types.Series) bool {
	for _, s := range series {
		if len(s.Data) > 0 {
			return true
		}
	}
	return false
}

func hasNumericY(series []types.Series) bool {
	for _, s := range series {
		for _, p := range s.Data {
			if p.Y != nil {
				return true
			}
		}
	}
	return false
}

func fieldNames(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}
