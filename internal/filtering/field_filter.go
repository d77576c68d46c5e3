package filtering

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

type pattern struct {
	source string
	glob   glob.Glob
}

// FieldFilter decides which registry fields are exposed as readouts
type FieldFilter struct {
	include []pattern
	exclude []pattern
}

// NewFieldFilter compiles the include and exclude patterns.
func NewFieldFilter(include, exclude []string) (*FieldFilter, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &FieldFilter{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, p := range patterns {
		// filepath.Match rejects malformed classes that glob.Compile accepts
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, pattern{source: p, glob: g})
	}
	return out, nil
}

// ShouldInclude reports whether field is selected and why.
func (f *FieldFilter) ShouldInclude(field string) (bool, string) {
	for _, p := range f.exclude {
		if p.glob.Match(field) {
			return false, fmt.Sprintf("excluded by pattern '%s'", p.source)
		}
	}

	if len(f.include) == 0 {
		return true, "no include patterns specified"
	}
	for _, p := range f.include {
		if p.glob.Match(field) {
			return true, fmt.Sprintf("included by pattern '%s'", p.source)
		}
	}
	return false, "no match found in include patterns"
}

// Select returns the fields of candidates that pass the filter, keeping their order.
func (f *FieldFilter) Select(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if ok, _ := f.ShouldInclude(c); ok {
			out = append(out, c)
		}
	}
	return out
}

// Unmatched returns the include patterns that select none of candidates.
func (f *FieldFilter) Unmatched(candidates []string) []string {
	var out []string
	for _, p := range f.include {
		matched := false
		for _, c := range candidates {
			if p.glob.Match(c) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, p.source)
		}
	}
	return out
}
