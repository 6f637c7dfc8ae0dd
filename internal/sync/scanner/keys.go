package scanner

import (
	"fmt"
	"strings"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

// SplitPath splits a path on either separator, dropping empty and "." components.
func SplitPath(p string) []string {
	fields := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})

	parts := fields[:0]
	for _, f := range fields {
		if f != "." {
			parts = append(parts, f)
		}
	}
	return parts
}

// RelativeDir strips base from dir component by component.
// It fails when dir is not base or a descendant of it; a directory whose
// name merely starts with the base name is not a descendant.
func RelativeDir(base, dir string) ([]string, error) {
	baseParts := SplitPath(base)
	dirParts := SplitPath(dir)

	if len(dirParts) < len(baseParts) {
		return nil, fmt.Errorf("%w: %s is not under %s", deperrors.ErrInvalidInput, dir, base)
	}
	for i, part := range baseParts {
		if dirParts[i] != part {
			return nil, fmt.Errorf("%w: %s is not under %s", deperrors.ErrInvalidInput, dir, base)
		}
	}

	rel := make([]string, len(dirParts)-len(baseParts))
	copy(rel, dirParts[len(baseParts):])
	return rel, nil
}

// BuildKey returns the destination key <release>/<dir...>/<name>.
func BuildKey(release string, dir []string, name string) string {
	parts := make([]string, 0, len(dir)+2)
	parts = append(parts, release)
	parts = append(parts, dir...)
	parts = append(parts, name)
	return strings.Join(parts, "/")
}

// ParseKey splits a destination key back into release, directory components and file name.
func ParseKey(key string) (release string, dir []string, name string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return "", nil, "", fmt.Errorf("%w: key %q has no release prefix", deperrors.ErrInvalidInput, key)
	}
	for _, p := range parts {
		if p == "" {
			return "", nil, "", fmt.Errorf("%w: key %q has an empty component", deperrors.ErrInvalidInput, key)
		}
	}

	dir = parts[1 : len(parts)-1]
	if len(dir) == 0 {
		dir = nil
	}
	return parts[0], dir, parts[len(parts)-1], nil
}

// NormalizeSyncDir trims leading and trailing dots from a configured sync
// directory, so "./templates" and "templates" name the same tree.
func NormalizeSyncDir(dir string) []string {
	return SplitPath(strings.Trim(dir, "."))
}
