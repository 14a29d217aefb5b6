package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
)

type stepKind int

const (
	stepName stepKind = iota
	stepWildcard
	stepIndex
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// parse splits a path body (without the leading $ prefix) into steps.
func parse(body string) ([]step, error) {
	var steps []step
	i := 0
	for i < len(body) {
		switch body[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(body[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket at %d", i)
			}
			inner := body[i+1 : i+end]
			if inner == "*" {
				steps = append(steps, step{kind: stepWildcard})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("invalid index %q", inner)
				}
				steps = append(steps, step{kind: stepIndex, index: n})
			}
			i += end + 1
		default:
			j := i
			for j < len(body) && body[j] != '.' && body[j] != '[' {
				j++
			}
			name := body[i:j]
			if name == "*" {
				steps = append(steps, step{kind: stepWildcard})
			} else {
				steps = append(steps, step{kind: stepName, name: name})
			}
			i = j
		}
	}
	return steps, nil
}

// Evaluate returns every non-null value matched by expr in document order.
// Paths starting with "$.." match their first step at any depth; other paths
// are resolved from root. Missing segments produce an empty result.
func Evaluate(expr string, root any) []any {
	expr = strings.TrimSpace(expr)
	descendant := false
	switch {
	case strings.HasPrefix(expr, DescendantPrefix):
		descendant = true
		expr = expr[len(DescendantPrefix):]
	case strings.HasPrefix(expr, "$."):
		expr = expr[2:]
	case strings.HasPrefix(expr, "$"):
		expr = expr[1:]
	}

	steps, err := parse(expr)
	if err != nil {
		return nil
	}

	var nodes []any
	if descendant && len(steps) > 0 {
		var all []any
		collect(root, &all)
		for _, n := range all {
			nodes = append(nodes, apply(steps[0], n, false)...)
		}
		steps = steps[1:]
	} else {
		nodes = []any{root}
	}

	for _, s := range steps {
		var next []any
		for _, n := range nodes {
			next = append(next, apply(s, n, true)...)
		}
		nodes = next
	}
	return dropNulls(nodes)
}

// EvaluateRelative resolves expr against node with child semantics only.
func EvaluateRelative(expr string, node any) []any {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return dropNulls([]any{node})
	}
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	return Evaluate(expr, node)
}

// collect appends node and all of its descendants in pre-order.
func collect(node any, out *[]any) {
	*out = append(*out, node)
	switch t := node.(type) {
	case *jsonvalue.Object:
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			collect(v, out)
		}
	case []any:
		for _, v := range t {
			collect(v, out)
		}
	}
}

// apply resolves one step against node. With mapArrays a name step applied
// to an array maps over its object elements; descendant matching never does,
// since it already visits the elements.
func apply(s step, node any, mapArrays bool) []any {
	switch s.kind {
	case stepName:
		switch t := node.(type) {
		case *jsonvalue.Object:
			if v, ok := t.Get(s.name); ok {
				return []any{v}
			}
		case []any:
			if !mapArrays {
				return nil
			}
			var out []any
			for _, e := range t {
				if obj, ok := e.(*jsonvalue.Object); ok {
					if v, ok := obj.Get(s.name); ok {
						out = append(out, v)
					}
				}
			}
			return out
		}
	case stepWildcard:
		switch t := node.(type) {
		case []any:
			return append([]any(nil), t...)
		case *jsonvalue.Object:
			out := make([]any, 0, t.Len())
			for _, k := range t.Keys() {
				v, _ := t.Get(k)
				out = append(out, v)
			}
			return out
		}
	case stepIndex:
		if arr, ok := node.([]any); ok {
			i := s.index
			if i < 0 {
				i += len(arr)
			}
			if i >= 0 && i < len(arr) {
				return []any{arr[i]}
			}
		}
	}
	return nil
}

func dropNulls(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
