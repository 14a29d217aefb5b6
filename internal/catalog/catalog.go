// Package catalog is the registry of UI components the selection step may choose from.
package catalog

import (
	"fmt"
	"sort"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Role tells whether a component's fields are chosen by the model.
type Role string

const (
	RoleDynamic   Role = "dynamic"
	RoleHandBuild Role = "hand-build"
)

// Entry describes one component.
type Entry struct {
	Name             string
	Description      string
	ChartType        string
	Role             Role
	ChartDescription string
}

// IsChart reports whether the entry is a chart component.
func (e Entry) IsChart() bool {
	return e.ChartType != ""
}

// Override replaces descriptions field by field; empty values keep the original.
type Override struct {
	Description      string
	ChartDescription string
}

// Apply returns e with the non-empty override fields applied.
func (o Override) Apply(e Entry) Entry {
	if o.Description != "" {
		e.Description = o.Description
	}
	if o.ChartDescription != "" {
		e.ChartDescription = o.ChartDescription
	}
	return e
}

var builtins = []Entry{
	{
		Name:        types.ComponentOneCard,
		Description: "component to visualize multiple fields from one-item data. One image can be shown if url is available together with other fields. Array of simple values from one-item data can be shown as a field. Array of objects can't be shown as a field.",
	},
	{
		Name:        types.ComponentSetOfCards,
		Description: "component to visualize multiple items as a set of cards, each showing the same fields. One subtitle and one image per card can be shown. Use for lists of items when a table would hide important images or long texts.",
	},
	{
		Name:        types.ComponentTable,
		Description: "component to visualize array of objects with multiple items (typically 3 or more) in a tabular format. Use when user explicitly requests a table, or for data with many items (especially >6), multiple fields, and when no specific visualization (like chart) is more suitable.",
	},
	{
		Name:        types.ComponentImage,
		Description: "component to visualize one image from one-item data. Use it only if no other fields are relevant for the user query and the data contains an image url.",
	},
	{
		Name:        types.ComponentVideoPlayer,
		Description: "component to play video from one-item data. Videos like trailers, promo videos. Data must contain url pointing to the video to be shown, e.g. https://www.youtube.com/watch?v=v-PjgYDrg70",
	},
	{
		Name:        types.ComponentAudioPlayer,
		Description: "component to play audio from one-item data. Data must contain url pointing to an mp3 file.",
	},
	{
		Name:             types.ComponentChartBar,
		Description:      "component to compare values across categories using vertical bars.",
		ChartType:        types.ChartBar,
		ChartDescription: "Compare categories; one or more numeric series, x-axis is a category or label field.",
	},
	{
		Name:             types.ComponentChartLine,
		Description:      "component to show trends of numeric values over time or over an ordered sequence.",
		ChartType:        types.ChartLine,
		ChartDescription: "Trends over time; x-axis is a date, year or ordered value. Several series may be grouped by an id field.",
	},
	{
		Name:             types.ComponentChartPie,
		Description:      "component to show proportions of a whole for a small number of categories.",
		ChartType:        types.ChartPie,
		ChartDescription: "Proportions of a whole; either one category field (values are counted) or a category field and one numeric field.",
	},
	{
		Name:             types.ComponentChartDonut,
		Description:      "component to show proportions of a whole with a hole in the center for a total or label.",
		ChartType:        types.ChartDonut,
		ChartDescription: "Same data shape as pie; use when the user asks for a donut or ring chart.",
	},
	{
		Name:             types.ComponentChartMirroredBar,
		Description:      "component to compare two numeric metrics per category side by side in opposite directions.",
		ChartType:        types.ChartMirroredBar,
		ChartDescription: "Two numeric series mirrored around the axis; x-axis is a category field. Exactly three fields: category, metric A, metric B.",
	},
}

// Catalog is an immutable set of component entries.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// New builds a catalog from the built-in components plus handBuild names.
// Names that clash with a built-in keep the built-in entry.
func New(handBuild ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry)}
	for _, e := range builtins {
		e.Role = RoleDynamic
		c.add(e)
	}
	for _, e := range handBuild {
		if _, exists := c.entries[e.Name]; exists || e.Name == "" {
			continue
		}
		e.Role = RoleHandBuild
		e.ChartType = ""
		c.add(e)
	}
	return c
}

func (c *Catalog) add(e Entry) {
	c.entries[e.Name] = e
	c.order = append(c.order, e.Name)
}

// Get returns the entry for name.
func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Has reports whether name is known.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// IsDynamic reports whether name is a known component whose fields the model picks.
func (c *Catalog) IsDynamic(name string) bool {
	e, ok := c.entries[name]
	return ok && e.Role == RoleDynamic
}

// IsHandBuild reports whether name is a registered hand-build component.
func (c *Catalog) IsHandBuild(name string) bool {
	e, ok := c.entries[name]
	return ok && e.Role == RoleHandBuild
}

// Names lists all components, built-ins first, in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// DynamicNames lists the built-in components.
func (c *Catalog) DynamicNames() []string {
	var out []string
	for _, n := range c.order {
		if c.entries[n].Role == RoleDynamic {
			out = append(out, n)
		}
	}
	return out
}

// Select returns entries for names in the given order with overrides applied.
// Unknown names produce an error.
func (c *Catalog) Select(names []string, overrides map[string]Override) ([]Entry, error) {
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		e, ok := c.entries[n]
		if !ok {
			return nil, fmt.Errorf("unknown component %q", n)
		}
		if o, ok := overrides[n]; ok {
			e = o.Apply(e)
		}
		out = append(out, e)
	}
	return out, nil
}

// Charts returns the chart entries among entries.
func Charts(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.IsChart() {
			out = append(out, e)
		}
	}
	return out
}

// Info converts entries to their public listing form, sorted by name.
func Info(entries []Entry) []types.ComponentInfo {
	out := make([]types.ComponentInfo, len(entries))
	for i, e := range entries {
		out[i] = types.ComponentInfo{
			Name:             e.Name,
			Description:      e.Description,
			ChartType:        e.ChartType,
			Role:             string(e.Role),
			ChartDescription: e.ChartDescription,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
