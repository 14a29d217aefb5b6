package inputdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/next-gen-ui/ngui-mcp/internal/jsonvalue"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

type jsonTransformer struct{}

func (jsonTransformer) Name() string { return NameJSON }

func (jsonTransformer) Detect(input *types.InputData) bool {
	s := strings.TrimSpace(input.Data)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func (jsonTransformer) Transform(raw string) (any, error) {
	v, err := jsonvalue.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := rejectScalarRoot(v); err != nil {
		return nil, err
	}
	return v, nil
}

type yamlTransformer struct{}

func (yamlTransformer) Name() string { return NameYAML }

func (yamlTransformer) Detect(input *types.InputData) bool {
	v, err := jsonvalue.ParseYAML([]byte(input.Data))
	if err != nil {
		return false
	}
	return !jsonvalue.IsScalar(v)
}

func (yamlTransformer) Transform(raw string) (any, error) {
	v, err := jsonvalue.ParseYAML([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := rejectScalarRoot(v); err != nil {
		return nil, err
	}
	return v, nil
}

type csvTransformer struct {
	name string
	sep  rune
}

func newCSVTransformer(name string, sep rune) csvTransformer {
	return csvTransformer{name: name, sep: sep}
}

func (c csvTransformer) Name() string { return c.name }

// Detect accepts input whose header has the separator and whose records all
// have the same number of columns.
func (c csvTransformer) Detect(input *types.InputData) bool {
	header, _, _ := strings.Cut(strings.TrimSpace(input.Data), "\n")
	if !strings.ContainsRune(header, c.sep) {
		return false
	}
	records, err := c.read(input.Data)
	return err == nil && len(records) >= 2 && len(records[0]) >= 2
}

func (c csvTransformer) Transform(raw string) (any, error) {
	records, err := c.read(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", c.name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	return buildRows(records[0], records[1:]), nil
}

func (c csvTransformer) read(raw string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(raw)))
	r.Comma = c.sep
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

var columnSeparator = regexp.MustCompile(`\s{2,}|\t`)

type fwcTableTransformer struct{}

func (fwcTableTransformer) Name() string { return NameFWCTable }

func (fwcTableTransformer) Detect(input *types.InputData) bool {
	lines := nonEmptyLines(input.Data)
	if len(lines) < 2 {
		return false
	}
	return len(splitColumns(lines[0])) >= 2
}

func (fwcTableTransformer) Transform(raw string) (any, error) {
	lines := nonEmptyLines(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	header := splitColumns(lines[0])
	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cols := splitColumns(line)
		if len(cols) > len(header) {
			last := strings.Join(cols[len(header)-1:], " ")
			cols = append(cols[:len(header)-1], last)
		}
		rows = append(rows, cols)
	}
	return buildRows(header, rows), nil
}

func nonEmptyLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, "\r"))
		}
	}
	return out
}

func splitColumns(line string) []string {
	parts := columnSeparator.Split(strings.TrimSpace(line), -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildRows(header []string, records [][]string) []any {
	names := SanitizeHeaders(header)
	rows := make([]any, 0, len(records))
	for _, rec := range records {
		obj := jsonvalue.NewObject()
		for i, name := range names {
			if i < len(rec) {
				obj.Set(name, CoerceScalar(rec[i]))
			} else {
				obj.Set(name, nil)
			}
		}
		rows = append(rows, obj)
	}
	return rows
}

var (
	invalidIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
	floatPattern      = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
)

// SanitizeHeaders turns column headers into identifiers. Repeated names get a numeric suffix.
func SanitizeHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		name := invalidIdentChars.ReplaceAllString(strings.TrimSpace(h), "_")
		switch {
		case name == "":
			name = fmt.Sprintf("field_%d", i+1)
		case name[0] >= '0' && name[0] <= '9':
			name = "field_" + name
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}

// CoerceScalar converts a table cell into int64, float64, bool or a trimmed string.
func CoerceScalar(s string) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if floatPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
