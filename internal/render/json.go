package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// maxExactInt is the largest integer an IEEE 754 double holds exactly.
const maxExactInt = 1 << 53

type jsonFactory struct{}

func (jsonFactory) GetRenderStrategy(string) (Strategy, error) {
	return StrategyFunc(RenderJSON), nil
}

// RenderJSON serializes data as RFC 8785 canonical JSON. Integers beyond
// 2^53 keep their original digits.
func RenderJSON(data types.ComponentData) (string, error) {
	raw, err := jsonvalue.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", data.ComponentName(), err)
	}
	raw, large, err := shieldLargeIntegers(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", data.ComponentName(), err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", data.ComponentName(), err)
	}

	out := string(canonical)
	for i, digits := range large {
		// jcs escapes the leading NUL of a placeholder as \u0000
		out = strings.Replace(out, `"\u0000`+placeholderTag+strconv.Itoa(i)+`"`, digits, 1)
	}
	return out, nil
}

const placeholderTag = "ngui-int:"

func placeholder(i int) string {
	return "\x00" + placeholderTag + strconv.Itoa(i)
}

// shieldLargeIntegers replaces integers jcs would round with placeholder
// strings and returns their digits by placeholder index.
func shieldLargeIntegers(raw []byte) ([]byte, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, nil, err
	}

	var large []string
	var walk func(any) any
	walk = func(node any) any {
		switch t := node.(type) {
		case map[string]any:
			for k, e := range t {
				t[k] = walk(e)
			}
		case []any:
			for i, e := range t {
				t[i] = walk(e)
			}
		case json.Number:
			if isLargeInteger(t) {
				large = append(large, t.String())
				return placeholder(len(large) - 1)
			}
		}
		return node
	}
	v = walk(v)
	if len(large) == 0 {
		return raw, nil, nil
	}

	shielded, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return shielded, large, nil
}

func isLargeInteger(n json.Number) bool {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// out of int64 range
		return true
	}
	return i > maxExactInt || i < -maxExactInt
}
