package transform

import (
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonpath"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// ValidationErrors collects the problems found while building component data.
type ValidationErrors []*types.Error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes every entry to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out
}

// Field is a selected field during transformation.
type Field struct {
	Name     string
	DataPath string
	valid    bool
	Data     []any
}

// Context carries one component through preprocess, extract and build.
type Context struct {
	Metadata *types.UIComponentMetadata
	Fields   []Field
	Errors   ValidationErrors

	root any
}

// Preprocess sanitizes every data path and copies the field list.
// Fields whose path cannot be sanitized keep the original path and never match.
func Preprocess(md *types.UIComponentMetadata) *Context {
	c := &Context{Metadata: md, Fields: make([]Field, len(md.Fields))}
	for i, f := range md.Fields {
		path, ok := jsonpath.Sanitize(f.DataPath)
		if !ok {
			path = f.DataPath
		}
		c.Fields[i] = Field{Name: f.Name, DataPath: path, valid: ok, Data: []any{}}
	}
	return c
}

// Fail records a validation problem.
func (c *Context) Fail(code types.Code, format string, args ...interface{}) {
	c.Errors = append(c.Errors, types.NewError(code, format, args...))
}

// ExtractSingle fills each field with the values its path matches. A single
// matched array is flattened into its elements.
func (c *Context) ExtractSingle(data any) {
	c.root = data
	for i := range c.Fields {
		f := &c.Fields[i]
		if !f.valid {
			continue
		}
		values := jsonpath.Evaluate(f.DataPath, data)
		if len(values) == 1 {
			if arr, ok := values[0].([]any); ok {
				values = withoutNulls(arr)
			}
		}
		f.Data = values
	}
}

// ExtractArray fills each field with one value per item and pads every
// field with nil to the longest one, so index i of every field refers to
// the same item.
func (c *Context) ExtractArray(data any) {
	c.root = data
	longest := 0
	for i := range c.Fields {
		f := &c.Fields[i]
		if !f.valid {
			continue
		}
		f.Data = itemValues(f.DataPath, data)
		if len(f.Data) > longest {
			longest = len(f.Data)
		}
	}
	for i := range c.Fields {
		for len(c.Fields[i].Data) < longest {
			c.Fields[i].Data = append(c.Fields[i].Data, nil)
		}
	}
}

// itemValues evaluates path so that the result has one entry per array item.
// A path with one [*] is evaluated separately for each element of the
// array before it; an element lacking the value yields nil. A leading [*]
// selects the elements of a root array.
func itemValues(path string, root any) []any {
	if rest, ok := strings.CutPrefix(path, jsonpath.DescendantPrefix+jsonpath.Wildcard); ok {
		if arr, isArray := root.([]any); isArray {
			return perItem(arr, strings.TrimPrefix(rest, "."))
		}
	}
	if outer, rest, ok := jsonpath.SplitWildcard(path); ok {
		var items []any
		for _, container := range jsonpath.Evaluate(outer, root) {
			if arr, ok := container.([]any); ok {
				items = append(items, arr...)
			}
		}
		if len(items) > 0 {
			return perItem(items, rest)
		}
	}

	values := jsonpath.Evaluate(path, root)
	if len(values) == 1 {
		if arr, ok := values[0].([]any); ok {
			return append([]any{}, arr...)
		}
	}
	return values
}

func perItem(items []any, rest string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = collapse(jsonpath.EvaluateRelative(rest, item))
	}
	return out
}

func collapse(values []any) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}

func withoutNulls(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// hasData reports whether any field matched a non-nil value.
func (c *Context) hasData() bool {
	for _, f := range c.Fields {
		for _, v := range f.Data {
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (c *Context) base(component string) types.Base {
	return types.Base{Component: component, ID: c.Metadata.ID, Title: c.Metadata.Title}
}

func (c *Context) simpleFields() []types.SimpleField {
	out := make([]types.SimpleField, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, types.SimpleField{Name: f.Name, DataPath: f.DataPath, Data: f.Data})
	}
	return out
}

func (c *Context) arrayFields() []types.ArrayField {
	out := make([]types.ArrayField, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, arrayField(f))
	}
	return out
}

func arrayField(f Field) types.ArrayField {
	return types.ArrayField{Name: f.Name, DataPath: f.DataPath, Data: f.Data}
}
