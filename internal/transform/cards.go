package transform

import (
	"strings"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

type oneCardTransformer struct{}

func (oneCardTransformer) build(c *Context) types.ComponentData {
	out := &types.OneCard{Base: c.base(types.ComponentOneCard)}
	if !c.hasData() {
		c.Fail(types.CodeTransformNoData, "none of the selected fields matched the data")
	}

	idx, img := firstMatch(c.Fields, IsImageURL)
	if idx < 0 {
		for i, f := range c.Fields {
			if !isImageName(f.Name) {
				continue
			}
			if s := fieldStrings(f); len(s) > 0 && isURL(s[0]) {
				idx, img = i, s[0]
				break
			}
		}
	}

	if idx >= 0 {
		out.Image = img
		c.Fields = remove(c.Fields, idx)
	}
	out.Fields = c.simpleFields()
	return out
}

type setOfCardsTransformer struct{}

func (setOfCardsTransformer) build(c *Context) types.ComponentData {
	out := &types.SetOfCards{Base: c.base(types.ComponentSetOfCards)}
	if !c.hasData() {
		c.Fail(types.CodeTransformNoData, "none of the selected fields matched the data")
	}

	subtitle, image := -1, -1
	for i, f := range c.Fields {
		switch strings.ToLower(strings.TrimSpace(f.Name)) {
		case "title", "name", "header":
			if subtitle < 0 {
				subtitle = i
			}
		}
	}
	for i, f := range c.Fields {
		if i == subtitle {
			continue
		}
		if _, s := firstMatch([]Field{f}, IsImageURL); s != "" {
			image = i
			break
		}
	}

	out.Fields = make([]types.ArrayField, 0, len(c.Fields))
	for i, f := range c.Fields {
		af := arrayField(f)
		switch i {
		case subtitle:
			out.SubtitleField = &af
		case image:
			out.ImageField = &af
		default:
			out.Fields = append(out.Fields, af)
		}
	}
	return out
}

type tableTransformer struct{}

func (tableTransformer) build(c *Context) types.ComponentData {
	out := &types.Table{
		Base:    c.base(types.ComponentTable),
		Fields:  c.arrayFields(),
		Columns: make([]string, len(c.Fields)),
		Rows:    [][]any{},
	}
	rows := 0
	for i, f := range c.Fields {
		out.Columns[i] = f.Name
		if len(f.Data) > rows {
			rows = len(f.Data)
		}
	}
	for r := 0; r < rows; r++ {
		row := make([]any, len(c.Fields))
		for i, f := range c.Fields {
			if r < len(f.Data) {
				row[i] = f.Data[r]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if !c.hasData() {
		c.Fail(types.CodeTransformNoData, "none of the selected fields matched the data")
	}
	return out
}

func remove(fields []Field, idx int) []Field {
	out := make([]Field, 0, len(fields)-1)
	out = append(out, fields[:idx]...)
	return append(out, fields[idx+1:]...)
}
