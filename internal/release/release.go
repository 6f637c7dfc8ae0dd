// Package release derives the release tag used as the destination key prefix.
//
// The tag is an explicit override when configured, otherwise the HEAD commit
// of the repository enclosing the sync base. Slashes are replaced with dots so
// a branch-like override cannot add key levels.
package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Null is the tag used when no repository or commit is available.
const Null = "null"

// ErrNoRepository is returned when no repository encloses the given path.
var ErrNoRepository = errors.New("no git repository")

// ErrNoCommit is returned when the repository has no HEAD commit yet.
var ErrNoCommit = errors.New("repository has no commits")

// Commit returns the HEAD commit hash of the repository enclosing path.
// Parent directories are searched for the repository root.
func Commit(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w at %s", ErrNoRepository, path)
		}
		return "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommit
		}
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return head.Hash().String(), nil
}

// Resolve returns the release tag for a sync rooted at base.
// A non-empty override wins; otherwise the HEAD commit is used, falling back
// to Null when there is no repository or no commit.
func Resolve(base, override string) (string, error) {
	if override != "" {
		return Normalize(override), nil
	}

	commit, err := Commit(base)
	switch {
	case errors.Is(err, ErrNoRepository), errors.Is(err, ErrNoCommit):
		return Null, nil
	case err != nil:
		return "", err
	}
	return Normalize(commit), nil
}

var separators = strings.NewReplacer("/", ".", "\\", ".")

// Normalize replaces path separators so the tag is a single key component.
func Normalize(tag string) string {
	return separators.Replace(tag)
}
