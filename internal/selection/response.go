package selection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

const thinkEndTag = "</think>"

// TrimToJSON drops reasoning output and any prose around the first JSON
// object or array in raw. Text without brackets is returned unchanged.
func TrimToJSON(raw string) string {
	if i := strings.LastIndex(raw, thinkEndTag); i >= 0 {
		raw = raw[i+len(thinkEndTag):]
	}

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}

	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return raw[start:]
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return raw[start : i+1]
			}
		}
	}
	// Unbalanced, most likely a truncated answer; leave it to the repair step.
	return raw[start:]
}

// decodeLenient parses text as JSON, repairing it first if strict parsing fails.
// Numbers are kept as json.Number.
func decodeLenient(text string) (any, error) {
	v, err := decodeStrict(text)
	if err == nil {
		return v, nil
	}
	repaired, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		return nil, types.WrapError(types.CodeSelectionMalformedJSON, err, "model response is not valid JSON")
	}
	v, rerr = decodeStrict(repaired)
	if rerr != nil {
		return nil, types.WrapError(types.CodeSelectionMalformedJSON, rerr, "model response is not valid JSON")
	}
	return v, nil
}

func decodeStrict(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// aliases maps spellings seen from different models to the canonical keys.
var aliases = map[string]string{
	"reasonForTheComponentSelection": "reason_for_selection",
	"reasonForSelection":             "reason_for_selection",
	"reason":                         "reason_for_selection",
	"confidenceScore":                "confidence_score",
	"confidence":                     "confidence_score",
	"chartType":                      "chart_type",
	"dataPath":                       "data_path",
	"data_path_expression":           "data_path",
	"path":                           "data_path",
	"label":                          "name",
}

// canonicalize rewrites alias keys in place, recursing into objects and arrays.
// A canonical key present in the input wins over its aliases.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = canonicalize(val)
		}
		for alias, canonical := range aliases {
			if val, ok := t[alias]; ok {
				if _, exists := t[canonical]; !exists {
					t[canonical] = val
				}
				delete(t, alias)
			}
		}
		return t
	case []any:
		for i := range t {
			t[i] = canonicalize(t[i])
		}
		return t
	default:
		return v
	}
}

// componentChoice is the decoded component part of a response.
type componentChoice struct {
	Component  string
	Title      string
	Reason     string
	Confidence string
	ChartType  string
}

func parseComponentChoice(obj map[string]any) (componentChoice, error) {
	for _, key := range []string{"component", "title"} {
		if v, ok := obj[key]; !ok || v == nil {
			return componentChoice{}, types.NewError(types.CodeSelectionMissingField, "model response has no %q", key)
		}
	}
	c := componentChoice{
		Component:  strings.TrimSpace(scalarString(obj["component"])),
		Title:      strings.TrimSpace(scalarString(obj["title"])),
		Reason:     scalarString(obj["reason_for_selection"]),
		Confidence: NormalizeConfidence(obj["confidence_score"]),
		ChartType:  strings.TrimSpace(scalarString(obj["chart_type"])),
	}
	if c.Component == "" {
		return c, types.NewError(types.CodeSelectionMissingField, "model response has an empty %q", "component")
	}
	return c, nil
}

func parseFields(v any) ([]types.DataField, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, types.NewError(types.CodeSelectionMalformedJSON, "\"fields\" must be an array")
	}
	fields := make([]types.DataField, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, types.NewError(types.CodeSelectionMalformedJSON, "fields[%d] must be an object", i)
		}
		path := strings.TrimSpace(scalarString(obj["data_path"]))
		if path == "" {
			return nil, types.NewError(types.CodeSelectionMissingField, "fields[%d] has no %q", i, "data_path")
		}
		name := strings.TrimSpace(scalarString(obj["name"]))
		if name == "" {
			name = defaultFieldName(path)
		}
		fields = append(fields, types.DataField{Name: name, DataPath: path})
	}
	return fields, nil
}

// defaultFieldName uses the last path segment as label.
func defaultFieldName(path string) string {
	path = strings.TrimSpace(path)
	for strings.HasSuffix(path, "]") {
		i := strings.LastIndex(path, "[")
		if i < 0 {
			break
		}
		path = path[:i]
	}
	if i := strings.LastIndexAny(path, ".]"); i >= 0 {
		path = path[i+1:]
	}
	return strings.Trim(path, "$.[]*")
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(bytes.TrimSpace(b))
	}
}

// NormalizeConfidence renders a confidence value as a percentage:
// 0.85 and "0.85" become "85%", 85 becomes "85%", "85 %" becomes "85%".
// Values that are not numeric are returned as given.
func NormalizeConfidence(v any) string {
	s := strings.TrimSpace(scalarString(v))
	if s == "" {
		return ""
	}
	num := strings.TrimSpace(strings.TrimSuffix(s, "%"))
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return s
	}
	if !strings.HasSuffix(s, "%") && f <= 1 {
		f *= 100
	}
	f = math.Round(f*100) / 100
	return strconv.FormatFloat(f, 'f', -1, 64) + "%"
}
