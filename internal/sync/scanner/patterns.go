package scanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// sep stands in for "/" while matching so that "*" crosses directory
// boundaries the way shell fnmatch does.
const sep = "\x00"

// ExcludeFilter drops paths containing any of its fragments.
// A fragment f excludes a path when the path matches the glob "*f*"; glob
// metacharacters inside the fragment keep their meaning.
type ExcludeFilter struct {
	fragments []string
	patterns  []string
}

// NewExcludeFilter compiles the given fragments. Empty fragments are ignored.
func NewExcludeFilter(fragments []string) (*ExcludeFilter, error) {
	f := &ExcludeFilter{}
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		pattern := "*" + escapeFragment(filepath.ToSlash(fragment)) + "*"
		pattern = strings.ReplaceAll(pattern, "/", sep)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", fragment)
		}
		f.fragments = append(f.fragments, fragment)
		f.patterns = append(f.patterns, pattern)
	}
	return f, nil
}

// Fragments returns the fragments the filter was built from.
func (f *ExcludeFilter) Fragments() []string {
	return f.fragments
}

// Excluded reports whether path matches any fragment.
func (f *ExcludeFilter) Excluded(path string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}

	name := strings.ReplaceAll(filepath.ToSlash(path), "/", sep)
	for _, pattern := range f.patterns {
		match, err := doublestar.Match(pattern, name)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// Filter returns the paths not excluded, preserving order.
func (f *ExcludeFilter) Filter(paths []string) []string {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !f.Excluded(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// escapeFragment quotes the characters that are special to doublestar but
// literal in shell globs.
func escapeFragment(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `{`, `\{`, `}`, `\}`)
	return r.Replace(fragment)
}
