package testutil

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
)

// CalculateETag calculates the single-part ETag for the given data.
func CalculateETag(data []byte) string {
	h := md5.Sum(data)
	return fmt.Sprintf(`"%x"`, h)
}

// GenerateRandomData generates deterministic pseudo-random data of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	r := rand.New(rand.NewSource(int64(size))) //nolint:gosec // test data
	_, _ = r.Read(data)
	return data
}

// NewTree returns an in-memory filesystem holding files.
func NewTree(t *testing.T, files map[string][]byte) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	WriteTree(t, fs, files)
	return fs
}

// WriteTree writes files into fs, creating parent directories.
func WriteTree(t *testing.T, fs billy.Filesystem, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, content, 0o644))
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return logging.Discard()
}
