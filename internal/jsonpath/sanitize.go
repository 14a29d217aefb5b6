// Package jsonpath implements the restricted JSONPath dialect used in
// component field data paths: $..<name>(.<name>|[*]|[N])*
package jsonpath

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// DescendantPrefix starts every sanitized path.
	DescendantPrefix = "$.."
	// Wildcard selects every element of an array.
	Wildcard = "[*]"
)

var (
	bracketPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)
	indexPattern   = regexp.MustCompile(`^\d+$`)
)

// Sanitize rewrites a data path emitted by a model into the canonical form.
// It returns false when nothing usable is left or when the path walks
// through more than one array dimension.
func Sanitize(expr string) (string, bool) {
	p := strings.TrimSpace(expr)
	if p == "" || p == "$" {
		return "", false
	}

	p = strings.NewReplacer("{", "", "}", "").Replace(p)
	p = strings.TrimSpace(p)
	switch {
	case strings.HasPrefix(p, "$.."):
		p = p[3:]
	case strings.HasPrefix(p, "$."):
		p = p[2:]
	case strings.HasPrefix(p, "$"):
		p = p[1:]
	}
	p = strings.TrimSpace(strings.TrimLeftFunc(p, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	}))

	p = bracketPattern.ReplaceAllStringFunc(p, func(m string) string {
		inner := strings.TrimSpace(m[1 : len(m)-1])
		if indexPattern.MatchString(inner) {
			return "[" + inner + "]"
		}
		return Wildcard
	})
	p = starSegments(p)

	// an array selected at the leaf is returned whole
	if strings.HasSuffix(p, Wildcard) {
		p = strings.TrimSpace(strings.TrimSuffix(p, Wildcard))
		if strings.HasSuffix(p, Wildcard) {
			return "", false
		}
	}
	if p == "" {
		return "", false
	}

	if countWildcards(p) > 1 {
		return "", false
	}
	return DescendantPrefix + p, true
}

// starSegments rewrites "*" name steps as [*] so they count as array
// dimensions. Tokens are split the way parse splits them.
func starSegments(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); {
		switch body[i] {
		case '[':
			end := strings.IndexByte(body[i:], ']')
			if end < 0 {
				b.WriteString(body[i:])
				return b.String()
			}
			b.WriteString(body[i : i+end+1])
			i += end + 1
		case '.':
			b.WriteByte('.')
			i++
		default:
			j := i
			for j < len(body) && body[j] != '.' && body[j] != '[' {
				j++
			}
			if name := body[i:j]; name == "*" {
				prev := strings.TrimSuffix(b.String(), ".")
				b.Reset()
				b.WriteString(prev)
				b.WriteString(Wildcard)
			} else {
				b.WriteString(name)
			}
			i = j
		}
	}
	return b.String()
}

// countWildcards counts [*] occurrences not at the very start of the body.
func countWildcards(body string) int {
	n := strings.Count(body, Wildcard)
	if strings.HasPrefix(body, Wildcard) {
		n--
	}
	return n
}

// Wildcards returns how many [*] a sanitized path contains.
func Wildcards(expr string) int {
	return strings.Count(expr, Wildcard)
}

// SplitWildcard splits a sanitized path with exactly one non-leading [*]
// into the path selecting the array and the path relative to each element.
// "$..movies[*].nested.title" gives ("$..movies", "nested.title").
func SplitWildcard(expr string) (outer, rest string, ok bool) {
	if Wildcards(expr) != 1 {
		return "", "", false
	}
	i := strings.Index(expr, Wildcard)
	outer = expr[:i]
	if outer == DescendantPrefix || outer == "" {
		return "", "", false
	}
	rest = strings.TrimPrefix(expr[i+len(Wildcard):], ".")
	return outer, rest, true
}
