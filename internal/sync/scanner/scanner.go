package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
)

// Scanner walks sync directories inside a filesystem.
type Scanner struct {
	filesystem billy.Filesystem
	base       string
	release    string
	filter     *ExcludeFilter
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBase sets the sync base inside the filesystem. Sync directories are
// resolved below it and destination keys are relative to it.
func WithBase(base string) Option {
	return func(s *Scanner) {
		s.base = base
	}
}

// WithLogger sets the logger used for walk notices.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner creates a scanner producing keys under release.
func NewScanner(filesystem billy.Filesystem, release string, filter *ExcludeFilter, opts ...Option) *Scanner {
	s := &Scanner{
		filesystem: filesystem,
		release:    release,
		filter:     filter,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every sync directory in order and returns the candidates.
// Files within a directory tree are returned in lexical order. A file
// reachable from more than one sync directory is returned once, for the
// first directory that reaches it.
func (s *Scanner) Scan(ctx context.Context, syncDirs []string) ([]deptypes.Candidate, error) {
	var (
		candidates []deptypes.Candidate
		seen       = make(map[string]struct{})
	)

	for _, syncDir := range syncDirs {
		found, err := s.ScanDir(ctx, syncDir)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if _, dup := seen[c.Path]; dup {
				s.logger.Debug("Skipping file reached by more than one sync dir", "path", c.Path, "sync_dir", syncDir)
				continue
			}
			seen[c.Path] = struct{}{}
			candidates = append(candidates, c)
		}
	}

	return candidates, nil
}

// ScanDir walks a single sync directory.
// A missing directory yields no candidates. A symlinked sync directory is
// followed; symlinks below it are followed for files and skipped for
// directories, so a link cycle cannot be walked.
func (s *Scanner) ScanDir(ctx context.Context, syncDir string) ([]deptypes.Candidate, error) {
	root := path.Join(append(SplitPath(s.base), NormalizeSyncDir(syncDir)...)...)
	if root == "" {
		root = "."
	}

	info, err := s.filesystem.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Sync dir does not exist", "sync_dir", syncDir, "path", root)
			return nil, nil
		}
		return nil, s.walkError(root, err)
	}
	if !info.IsDir() {
		s.logger.Warn("Sync dir is not a directory", "sync_dir", syncDir, "path", root)
		return nil, nil
	}

	var candidates []deptypes.Candidate
	err = s.walk(ctx, root, func(p string, size int64) error {
		if s.filter.Excluded(p) {
			s.logger.Debug("Excluded", "path", p)
			return nil
		}

		c, err := s.candidate(p, size)
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
		return nil
	})
	if err != nil {
		return nil, s.walkError(root, err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
	return candidates, nil
}

// walk calls visit for every regular file below dir with the size of its
// content. Symlinked files report the size of their target.
func (s *Scanner) walk(ctx context.Context, dir string, visit func(p string, size int64) error) error {
	entries, err := s.filesystem.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		// Check if context is cancelled
		if err := ctx.Err(); err != nil {
			return err
		}

		// memfs reports its root as a child of itself.
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}

		p := path.Join(dir, entry.Name())
		info := entry

		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := s.filesystem.Stat(p)
			if err != nil {
				s.logger.Warn("Skipping broken symlink", "path", p, "error", err)
				continue
			}
			if target.IsDir() {
				s.logger.Debug("Skipping symlinked directory", "path", p)
				continue
			}
			info = target
		}

		if info.IsDir() {
			if err := s.walk(ctx, p, visit); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			s.logger.Debug("Skipping special file", "path", p, "mode", info.Mode())
			continue
		}

		if err := visit(p, info.Size()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) candidate(p string, size int64) (deptypes.Candidate, error) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return deptypes.Candidate{}, fmt.Errorf("%w: empty path", deperrors.ErrInvalidInput)
	}
	name := parts[len(parts)-1]

	dir, err := RelativeDir(s.base, path.Join(parts[:len(parts)-1]...))
	if err != nil {
		return deptypes.Candidate{}, err
	}

	return deptypes.Candidate{
		Path: path.Join(parts...),
		Dir:  dir,
		Name: name,
		Key:  BuildKey(s.release, dir, name),
		Size: size,
	}, nil
}

func (s *Scanner) walkError(root string, err error) error {
	return deperrors.NewError("walk", err).
		WithPath(root).
		WithCode(deperrors.CodeWalkFailed)
}
