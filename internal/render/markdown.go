package render

import (
	"fmt"
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

type markdownFactory struct{}

func (markdownFactory) GetRenderStrategy(component string) (Strategy, error) {
	switch component {
	case types.ComponentTable:
		return StrategyFunc(markdownTable), nil
	case types.ComponentOneCard:
		return StrategyFunc(markdownOneCard), nil
	case types.ComponentSetOfCards:
		return StrategyFunc(markdownSetOfCards), nil
	case types.ComponentImage:
		return StrategyFunc(markdownImage), nil
	}
	return nil, fmt.Errorf("markdown %s: %w", component, ErrUnsupported)
}

func unexpected(want string, data types.ComponentData) error {
	return fmt.Errorf("expected %s data, got %T", want, data)
}

func heading(b *strings.Builder, level int, title string) {
	if title == "" {
		return
	}
	b.WriteString(strings.Repeat("#", level))
	b.WriteByte(' ')
	b.WriteString(title)
	b.WriteString("\n\n")
}

// cell formats a value for inline Markdown. Lists are comma separated.
func cell(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, e := range list {
			if e != nil {
				parts = append(parts, cell(e))
			}
		}
		return strings.Join(parts, ", ")
	}
	s := jsonvalue.String(v)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func markdownTable(data types.ComponentData) (string, error) {
	t, ok := data.(*types.Table)
	if !ok {
		return "", unexpected(types.ComponentTable, data)
	}
	var b strings.Builder
	heading(&b, 3, t.Title)

	header := make([]string, len(t.Columns))
	sep := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = cell(c)
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String(), nil
}

func markdownOneCard(data types.ComponentData) (string, error) {
	c, ok := data.(*types.OneCard)
	if !ok {
		return "", unexpected(types.ComponentOneCard, data)
	}
	var b strings.Builder
	heading(&b, 3, c.Title)
	if c.Image != "" {
		fmt.Fprintf(&b, "![%s](%s)\n\n", c.Title, c.Image)
	}
	for _, f := range c.Fields {
		fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, cell(f.Data))
	}
	return b.String(), nil
}

func markdownSetOfCards(data types.ComponentData) (string, error) {
	s, ok := data.(*types.SetOfCards)
	if !ok {
		return "", unexpected(types.ComponentSetOfCards, data)
	}
	var b strings.Builder
	heading(&b, 3, s.Title)

	items := 0
	all := append([]types.ArrayField{}, s.Fields...)
	if s.SubtitleField != nil {
		all = append(all, *s.SubtitleField)
	}
	if s.ImageField != nil {
		all = append(all, *s.ImageField)
	}
	for _, f := range all {
		if len(f.Data) > items {
			items = len(f.Data)
		}
	}

	for i := 0; i < items; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		subtitle := fmt.Sprintf("Item %d", i+1)
		if s.SubtitleField != nil {
			if v := cell(at(s.SubtitleField.Data, i)); v != "" {
				subtitle = v
			}
		}
		heading(&b, 4, subtitle)
		if s.ImageField != nil {
			if src := cell(at(s.ImageField.Data, i)); src != "" {
				fmt.Fprintf(&b, "![%s](%s)\n\n", subtitle, src)
			}
		}
		for _, f := range s.Fields {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, cell(at(f.Data, i)))
		}
	}
	return b.String(), nil
}

func markdownImage(data types.ComponentData) (string, error) {
	img, ok := data.(*types.Image)
	if !ok {
		return "", unexpected(types.ComponentImage, data)
	}
	return fmt.Sprintf("![%s](%s)\n", img.Title, img.Src), nil
}

func at(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}
	return nil
}
