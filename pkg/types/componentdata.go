package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Component names
const (
	ComponentOneCard          = "one-card"
	ComponentSetOfCards       = "set-of-cards"
	ComponentTable            = "table"
	ComponentImage            = "image"
	ComponentVideoPlayer      = "video-player"
	ComponentAudioPlayer      = "audio-player"
	ComponentChartBar         = "chart-bar"
	ComponentChartLine        = "chart-line"
	ComponentChartPie         = "chart-pie"
	ComponentChartDonut       = "chart-donut"
	ComponentChartMirroredBar = "chart-mirrored-bar"
	ComponentHandBuild        = "hand-build-component"
)

// Chart types
const (
	ChartBar         = "bar"
	ChartLine        = "line"
	ChartPie         = "pie"
	ChartDonut       = "donut"
	ChartMirroredBar = "mirrored-bar"
)

// ChartComponentPrefix is shared by every chart component name.
const ChartComponentPrefix = "chart-"

// IsChartComponent reports whether name is one of the chart-* components.
func IsChartComponent(name string) bool {
	return strings.HasPrefix(name, ChartComponentPrefix)
}

// ChartComponentFor returns the component name for a chart type.
func ChartComponentFor(chartType string) string {
	return ChartComponentPrefix + chartType
}

// ComponentData is the typed, render-ready payload for one component.
type ComponentData interface {
	ComponentName() string
	ComponentID() string
	ComponentTitle() string
}

// Base holds the envelope shared by every variant.
type Base struct {
	Component string `json:"component"`
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
}

func (b Base) ComponentName() string { return b.Component }
func (b Base) ComponentID() string { return b.ID }
func (b Base) ComponentTitle() string { return b.Title }

// SimpleField holds a scalar or a list of scalars.
type SimpleField struct {
	Name     string `json:"name"`
	DataPath string `json:"data_path"`
	Data     []any  `json:"data"`
}

// ArrayField holds index-aligned values; a nil entry marks a missing value.
type ArrayField struct {
	Name     string `json:"name"`
	DataPath string `json:"data_path"`
	Data     []any  `json:"data"`
}

// DataPoint is one chart point. A nil Y is a gap.
type DataPoint struct {
	X string   `json:"x"`
	Y *float64 `json:"y"`
}

// Series is a named list of chart points.
type Series struct {
	Name string      `json:"name"`
	Data []DataPoint `json:"data"`
}

// OneCard shows a single item.
type OneCard struct {
	Base
	Fields []SimpleField `json:"fields"`
	Image  string        `json:"image,omitempty"`
}

// SetOfCards shows a list of similar items as cards.
type SetOfCards struct {
	Base
	Fields        []ArrayField `json:"fields"`
	SubtitleField *ArrayField  `json:"subtitle_field,omitempty"`
	ImageField    *ArrayField  `json:"image_field,omitempty"`
}

// Table shows index-aligned rows.
type Table struct {
	Base
	Fields  []ArrayField `json:"fields"`
	Columns []string     `json:"columns"`
	Rows    [][]any      `json:"rows"`
}

// Chart covers all chart-* components, discriminated by ChartType.
type Chart struct {
	Base
	ChartType  string   `json:"chartType"`
	XAxisLabel string   `json:"x_axis_label,omitempty"`
	Data       []Series `json:"data"`
}

// Image shows a single picture.
type Image struct {
	Base
	Src string `json:"src"`
}

// VideoPlayer plays a video; Src is an embeddable URL.
type VideoPlayer struct {
	Base
	Src       string `json:"src"`
	Thumbnail string `json:"thumbnail"`
}

// AudioPlayer plays an audio file.
type AudioPlayer struct {
	Base
	Src   string `json:"src"`
	Image string `json:"image,omitempty"`
}

// HandBuildComponent is rendered downstream from the raw parsed input.
type HandBuildComponent struct {
	Base
	ComponentType string `json:"component_type"`
	Data          any    `json:"data"`
}

// UnmarshalComponentData decodes a serialized variant using its component tag.
func UnmarshalComponentData(data []byte) (ComponentData, error) {
	var head struct {
		Component string `json:"component"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read component tag: %w", err)
	}

	var v ComponentData
	switch {
	case head.Component == ComponentOneCard:
		v = &OneCard{}
	case head.Component == ComponentSetOfCards:
		v = &SetOfCards{}
	case head.Component == ComponentTable:
		v = &Table{}
	case head.Component == ComponentImage:
		v = &Image{}
	case head.Component == ComponentVideoPlayer:
		v = &VideoPlayer{}
	case head.Component == ComponentAudioPlayer:
		v = &AudioPlayer{}
	case head.Component == ComponentHandBuild:
		v = &HandBuildComponent{}
	case IsChartComponent(head.Component):
		v = &Chart{}
	default:
		return nil, fmt.Errorf("unknown component %q", head.Component)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", head.Component, err)
	}
	return v, nil
}
