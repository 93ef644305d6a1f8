package profile

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Set is a set of normalized skills or other tokens.
type Set map[string]struct{}

// NormalizeSkill trims, case-folds and collapses inner whitespace.
func NormalizeSkill(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

// NormalizeLocation uses the same folding as skills so that "Nairobi" and
// "NAIROBI" compare equal.
func NormalizeLocation(s string) string {
	return NormalizeSkill(s)
}

var aliases = map[string]string{
	"golang":     "go",
	"k8s":        "kubernetes",
	"js":         "javascript",
	"ts":         "typescript",
	"postgres":   "postgresql",
	"node":       "node.js",
	"nodejs":     "node.js",
	"ci cd":      "ci/cd",
	"cicd":       "ci/cd",
	"rest":       "rest api",
	"ml":         "machine learning",
	"sklearn":    "scikit-learn",
	"py":         "python",
	"gcp":        "google cloud",
	"amazon aws": "aws",
}

// CanonicalSkill normalizes s and maps well-known aliases to one spelling.
func CanonicalSkill(s string) string {
	n := NormalizeSkill(s)
	if c, ok := aliases[n]; ok {
		return c
	}
	return n
}

// NewSet builds a Set from raw skills. Empty entries are dropped. When
// canonical is set, aliases collapse into one entry.
func NewSet(skills []string, canonical bool) Set {
	set := make(Set, len(skills))
	for _, s := range skills {
		var n string
		if canonical {
			n = CanonicalSkill(s)
		} else {
			n = NormalizeSkill(s)
		}
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

func (s Set) Len() int { return len(s) }

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Intersect returns the elements present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for v := range s {
		if other.Has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Minus returns the elements of s missing from other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for v := range s {
		if !other.Has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Sorted returns the elements in ascending order. It never returns nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
