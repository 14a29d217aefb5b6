package jsonpath

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "empty", in: "", ok: false},
		{name: "whitespace", in: "   ", ok: false},
		{name: "root only", in: "$", ok: false},
		{name: "plain field", in: "movie.title", want: "$..movie.title", ok: true},
		{name: "already sanitized", in: "$..movie.title", want: "$..movie.title", ok: true},
		{name: "single dollar dot", in: "$.movie.title", want: "$..movie.title", ok: true},
		{name: "braces", in: "{$.movie.title}", want: "$..movie.title", ok: true},
		{name: "empty brackets and trailing wildcard", in: "movies[].title[]", want: "$..movies[*].title", ok: true},
		{name: "descriptive index", in: "movies[size up to 6].title", want: "$..movies[*].title", ok: true},
		{name: "numeric index kept", in: "movies[0].title", want: "$..movies[0].title", ok: true},
		{name: "root index", in: "$[0].x", want: "$..[0].x", ok: true},
		{name: "leading wildcard not counted", in: "[*].name[*].x", want: "$..[*].name[*].x", ok: true},
		{name: "two dimensions", in: "a[*].b[*].c", ok: false},
		{name: "three dimensions", in: "a[*].b[*].c[*]", ok: false},
		{name: "double trailing wildcard", in: "a[*][*]", ok: false},
		{name: "star step counts as dimension", in: "a[*].b.*.c", ok: false},
		{name: "two star steps", in: "a.*.b.*.c", ok: false},
		{name: "star after index", in: "a[*].b[0]*.c", ok: false},
		{name: "star step", in: "movies.*.title", want: "$..movies[*].title", ok: true},
		{name: "trailing star step", in: "movies.*", want: "$..movies", ok: true},
		{name: "only wildcard", in: "[]", ok: false},
		{name: "surrounding space", in: "  movies[*].title  ", want: "$..movies[*].title", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sanitize(tt.in)
			if ok != tt.ok {
				t.Fatalf("Sanitize(%q) ok = %v, want %v (got %q)", tt.in, ok, tt.ok, got)
			}
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitWildcard(t *testing.T) {
	outer, rest, ok := SplitWildcard("$..movies[*].nested.title")
	if !ok || outer != "$..movies" || rest != "nested.title" {
		t.Errorf("got (%q, %q, %v)", outer, rest, ok)
	}

	outer, rest, ok = SplitWildcard("$..movies[*]")
	if !ok || outer != "$..movies" || rest != "" {
		t.Errorf("got (%q, %q, %v)", outer, rest, ok)
	}

	if _, _, ok := SplitWildcard("$..[*].name"); ok {
		t.Error("leading wildcard should not split")
	}
	if _, _, ok := SplitWildcard("$..movie.title"); ok {
		t.Error("path without wildcard should not split")
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	alphabet := []string{"a", "b", "title", ".", "..", "$", "$.", "$..", "[", "]", "[]", "[*]", "[0]", "[12]", "[x y]", "{", "}", " ", "\t", "*", ".*"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("sanitize(sanitize(x)) == sanitize(x)", prop.ForAll(
		func(idx []int) bool {
			var sb strings.Builder
			for _, i := range idx {
				sb.WriteString(alphabet[i])
			}
			once, ok := Sanitize(sb.String())
			if !ok {
				return true
			}
			twice, ok := Sanitize(once)
			return ok && twice == once
		},
		gen.SliceOf(gen.IntRange(0, len(alphabet)-1)),
	))

	properties.Property("sanitized paths walk at most one array dimension", prop.ForAll(
		func(idx []int) bool {
			var sb strings.Builder
			for _, i := range idx {
				sb.WriteString(alphabet[i])
			}
			out, ok := Sanitize(sb.String())
			if !ok {
				return true
			}
			steps, err := parse(strings.TrimPrefix(out, DescendantPrefix))
			if err != nil {
				return true
			}
			wildcards := 0
			for i, s := range steps {
				if s.kind == stepWildcard && i > 0 {
					wildcards++
				}
			}
			return wildcards <= 1
		},
		gen.SliceOf(gen.IntRange(0, len(alphabet)-1)),
	))

	properties.Property("sanitized paths start with the descendant prefix", prop.ForAll(
		func(s string) bool {
			out, ok := Sanitize(s)
			return !ok || strings.HasPrefix(out, DescendantPrefix)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
